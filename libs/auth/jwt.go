package auth

import (
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired and ErrMissingOwner also match ErrInvalidToken.
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrMissingOwner = fmt.Errorf("%w: missing owner_id", ErrInvalidToken)
)

// Claims are issued by the identity collaborator; OwnerID is the tenant every
// appointment operation is scoped to.
type Claims struct {
	Sub     string `json:"sub"`
	OwnerID string `json:"owner_id"`
	Role    string `json:"role"`
	Exp     int64  `json:"exp"`
	Iat     int64  `json:"iat"`
}

// Validate applies the tenant rules: a token past its exp is expired and a token without
// an owner_id cannot be scoped to a tenant. Exp of zero never expires.
func (c Claims) Validate(now time.Time) error {
	if c.Exp > 0 && now.Unix() > c.Exp {
		return ErrTokenExpired
	}
	if strings.TrimSpace(c.OwnerID) == "" {
		return ErrMissingOwner
	}
	return nil
}

type Header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
	Kid string `json:"kid,omitempty"`
}

func ParseHeader(token string) (*Header, error) {
	parts, err := split(token)
	if err != nil {
		return nil, err
	}
	var header Header
	if err := decodeSegment(parts[0], &header); err != nil {
		return nil, err
	}
	return &header, nil
}

func SignHS256(claims Claims, secret string) (string, error) {
	unsigned, err := encodeUnsigned(Header{Alg: "HS256", Typ: "JWT"}, claims)
	if err != nil {
		return "", err
	}
	return unsigned + "." + base64.RawURLEncoding.EncodeToString(hmacSHA256(unsigned, secret)), nil
}

// ParseAndVerifyHS256 checks the signature against secret, then Validate.
func ParseAndVerifyHS256(token, secret string) (*Claims, error) {
	return verify(token, func(unsigned string, sig []byte) bool {
		return hmac.Equal(sig, hmacSHA256(unsigned, secret))
	})
}

// VerifyRS256 checks the signature against an RSA public key, then Validate.
func VerifyRS256(token string, pubKey crypto.PublicKey) (*Claims, error) {
	rsaKey, ok := pubKey.(*rsa.PublicKey)
	if !ok {
		return nil, ErrInvalidToken
	}
	return verify(token, func(unsigned string, sig []byte) bool {
		hash := sha256.Sum256([]byte(unsigned))
		return rsa.VerifyPKCS1v15(rsaKey, crypto.SHA256, hash[:], sig) == nil
	})
}

func verify(token string, signed func(unsigned string, sig []byte) bool) (*Claims, error) {
	parts, err := split(token)
	if err != nil {
		return nil, err
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil || !signed(parts[0]+"."+parts[1], sig) {
		return nil, ErrInvalidToken
	}
	var claims Claims
	if err := decodeSegment(parts[1], &claims); err != nil {
		return nil, err
	}
	if err := claims.Validate(time.Now()); err != nil {
		return nil, err
	}
	return &claims, nil
}

func split(token string) ([]string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}
	return parts, nil
}

func decodeSegment(seg string, v any) error {
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		return ErrInvalidToken
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return ErrInvalidToken
	}
	return nil
}

func encodeUnsigned(header Header, claims Claims) (string, error) {
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(headerJSON) + "." + base64.RawURLEncoding.EncodeToString(payloadJSON), nil
}

func hmacSHA256(data, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(data))
	return mac.Sum(nil)
}
