package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/visitbook/libs/auth"
	"github.com/md-rashed-zaman/visitbook/libs/httpx"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/lifecycle"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage/storagetest"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	store := storagetest.Open(t)
	storagetest.Seed(t, store, storagetest.DefaultTenant())
	storagetest.Seed(t, store, storagetest.OtherTenant())
	svc := lifecycle.NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)), lifecycle.Config{
		Now: func() time.Time { return time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC) },
	})
	mux := http.NewServeMux()
	New(svc).Register(mux)
	return TenantAuth{}.Middleware(mux)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(httpx.OwnerIDHeader, "owner-1")
	req.Header.Set(UserIDHeader, "helper-1")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	return rw
}

func decode[T any](t *testing.T, rw *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rw.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rw.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rw *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rw.Code != code {
		t.Fatalf("expected %d, got %d: %s", code, rw.Code, rw.Body.String())
	}
}

const weeklyBody = `{
	"customer_id": "cust-1",
	"assigned_helper_id": "helper-1",
	"date": "2024-01-01",
	"start_time": "09:00",
	"end_time": "11:00",
	"price": 100,
	"is_recurring": true,
	"recurrence_rule": "FREQ=WEEKLY",
	"checklist_snapshot": ["Kitchen", "Bathrooms"]
}`

func TestAppointmentLifecycleOverHTTP(t *testing.T) {
	h := newTestServer(t)

	rw := do(t, h, http.MethodPost, "/api/v1/appointments", weeklyBody)
	expectStatus(t, rw, http.StatusCreated)
	created := decode[appointmentResponse](t, rw)
	if created.RecurrenceSeriesID != created.ID {
		t.Fatalf("expected series id %s, got %s", created.ID, created.RecurrenceSeriesID)
	}
	if created.HelperFee == nil || *created.HelperFee != "25.00" {
		t.Fatalf("expected helper fee 25.00, got %v", created.HelperFee)
	}

	rw = do(t, h, http.MethodGet, "/api/v1/appointments/"+created.ID, "")
	expectStatus(t, rw, http.StatusOK)
	if got := decode[appointmentResponse](t, rw); len(got.Checklist) != 2 || got.Customer == nil {
		t.Fatalf("expected checklist and customer on detail, got %+v", got)
	}

	rw = do(t, h, http.MethodPost, "/api/v1/appointments/"+created.ID+"/finish", "")
	expectStatus(t, rw, http.StatusOK)
	finished := decode[appointmentResponse](t, rw)
	if finished.Status != "COMPLETED" || !strings.HasPrefix(finished.InvoiceNumber, "INV-20240101-") {
		t.Fatalf("unexpected finish response: %+v", finished)
	}
	if len(finished.Transactions) != 1 || finished.Transactions[0].Amount != "100.00" || finished.Transactions[0].Status != "PENDING" {
		t.Fatalf("unexpected ledger: %+v", finished.Transactions)
	}

	rw = do(t, h, http.MethodPost, "/api/v1/appointments/"+created.ID+"/cancel", "")
	expectStatus(t, rw, http.StatusConflict)
	if e := decode[errorResponse](t, rw); e.Code != "INVALID_TRANSITION" {
		t.Fatalf("expected INVALID_TRANSITION, got %s", e.Code)
	}

	rw = do(t, h, http.MethodPost, "/api/v1/appointments/"+created.ID+"/ledger/paid", "")
	expectStatus(t, rw, http.StatusOK)

	rw = do(t, h, http.MethodDelete, "/api/v1/appointments/"+created.ID+"/series", "")
	expectStatus(t, rw, http.StatusOK)
	deleted := decode[struct {
		Deleted []string `json:"deleted"`
	}](t, rw)
	if len(deleted.Deleted) != 5 {
		t.Fatalf("expected 5 deleted, got %d", len(deleted.Deleted))
	}

	rw = do(t, h, http.MethodGet, "/api/v1/appointments/"+created.ID, "")
	expectStatus(t, rw, http.StatusNotFound)
}

func TestErrorMapping(t *testing.T) {
	h := newTestServer(t)
	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown appointment", http.MethodGet, "/api/v1/appointments/nope", "", http.StatusNotFound, "APPOINTMENT_NOT_FOUND"},
		{"foreign customer", http.MethodPost, "/api/v1/appointments", `{"customer_id":"cust-9","date":"2024-01-02","start_time":"09:00","price":50}`, http.StatusNotFound, "CUSTOMER_NOT_FOUND"},
		{"foreign helper", http.MethodPost, "/api/v1/appointments", `{"customer_id":"cust-1","assigned_helper_id":"helper-9","date":"2024-01-02","start_time":"09:00","price":50}`, http.StatusNotFound, "HELPER_NOT_FOUND"},
		{"bad date", http.MethodPost, "/api/v1/appointments", `{"customer_id":"cust-1","date":"01/02/2024","start_time":"09:00","price":50}`, http.StatusBadRequest, "INVALID_DATE"},
		{"bad json", http.MethodPost, "/api/v1/appointments", `{"customer_id":`, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad status", http.MethodPost, "/api/v1/appointments/nope/status", `{"status":"PAUSED"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad month", http.MethodGet, "/api/v1/calendar/month?month=2024-13", "", http.StatusBadRequest, "INVALID_DATE"},
		{"unknown checklist item", http.MethodPost, "/api/v1/checklist/nope/toggle", "", http.StatusNotFound, "CHECKLIST_ITEM_NOT_FOUND"},
		{"fee quote without price", http.MethodGet, "/api/v1/helpers/helper-1/fee", "", http.StatusBadRequest, "INVALID_INPUT"},
		{"fee quote for NaN", http.MethodGet, "/api/v1/helpers/helper-1/fee?price=NaN", "", http.StatusBadRequest, "INVALID_INPUT"},
		{"fee quote for infinity", http.MethodGet, "/api/v1/helpers/helper-1/fee?price=Inf", "", http.StatusBadRequest, "INVALID_INPUT"},
		{"fee quote for foreign helper", http.MethodGet, "/api/v1/helpers/helper-9/fee?price=100", "", http.StatusNotFound, "HELPER_NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rw := do(t, h, tc.method, tc.path, tc.body)
			expectStatus(t, rw, tc.status)
			if e := decode[errorResponse](t, rw); string(e.Code) != tc.code {
				t.Fatalf("expected %s, got %s", tc.code, e.Code)
			}
		})
	}
}

func TestQuoteFee(t *testing.T) {
	h := newTestServer(t)
	cases := []struct {
		helper string
		price  string
		fee    string
	}{
		{"helper-1", "100", "25.00"},
		{"helper-1", "10.10", "2.53"},
		{"helper-2", "100", "35.00"},
	}
	for _, tc := range cases {
		rw := do(t, h, http.MethodGet, "/api/v1/helpers/"+tc.helper+"/fee?price="+tc.price, "")
		expectStatus(t, rw, http.StatusOK)
		if got := decode[feeQuoteResponse](t, rw); got.HelperFee != tc.fee || got.HelperID != tc.helper {
			t.Fatalf("%s at %s: expected %s, got %+v", tc.helper, tc.price, tc.fee, got)
		}
	}
}

func TestPatchHelperFee(t *testing.T) {
	h := newTestServer(t)
	rw := do(t, h, http.MethodPost, "/api/v1/appointments",
		`{"customer_id":"cust-1","assigned_helper_id":"helper-1","date":"2024-01-02","start_time":"09:00","price":"80","helper_fee":"10"}`)
	expectStatus(t, rw, http.StatusCreated)
	appt := decode[appointmentResponse](t, rw)
	if *appt.HelperFee != "10.00" {
		t.Fatalf("expected explicit fee 10.00, got %s", *appt.HelperFee)
	}

	rw = do(t, h, http.MethodPatch, "/api/v1/appointments/"+appt.ID, `{"notes":"Back door"}`)
	expectStatus(t, rw, http.StatusOK)
	if got := decode[appointmentResponse](t, rw); *got.HelperFee != "10.00" || got.Notes != "Back door" {
		t.Fatalf("notes-only patch changed fee: %+v", got)
	}

	rw = do(t, h, http.MethodPatch, "/api/v1/appointments/"+appt.ID, `{"helper_fee":null}`)
	expectStatus(t, rw, http.StatusOK)
	if got := decode[appointmentResponse](t, rw); *got.HelperFee != "20.00" {
		t.Fatalf("expected recomputed fee 20.00, got %s", *got.HelperFee)
	}
}

func TestChecklistAndCalendarRoutes(t *testing.T) {
	h := newTestServer(t)
	rw := do(t, h, http.MethodPost, "/api/v1/appointments", weeklyBody)
	expectStatus(t, rw, http.StatusCreated)
	appt := decode[appointmentResponse](t, rw)

	rw = do(t, h, http.MethodPost, "/api/v1/appointments/"+appt.ID+"/checklist", `{"title":"Oven"}`)
	expectStatus(t, rw, http.StatusCreated)
	item := decode[checklistItemResponse](t, rw)

	rw = do(t, h, http.MethodPost, "/api/v1/checklist/"+item.ID+"/toggle", "")
	expectStatus(t, rw, http.StatusOK)
	toggled := decode[checklistItemResponse](t, rw)
	if toggled.CompletedAt == nil || toggled.CompletedByID == nil || *toggled.CompletedByID != "helper-1" {
		t.Fatalf("expected item completed by helper-1, got %+v", toggled)
	}

	rw = do(t, h, http.MethodGet, "/api/v1/calendar/week?date=2024-01-03", "")
	expectStatus(t, rw, http.StatusOK)
	week := decode[rangeResponse](t, rw)
	if week.From != "2024-01-01" || len(week.Appointments) != 1 {
		t.Fatalf("unexpected week: %+v", week)
	}

	rw = do(t, h, http.MethodGet, "/api/v1/calendar/month?month=2024-01", "")
	expectStatus(t, rw, http.StatusOK)
	if month := decode[rangeResponse](t, rw); len(month.Appointments) != 5 {
		t.Fatalf("expected 5 appointments in January, got %d", len(month.Appointments))
	}

	rw = do(t, h, http.MethodGet, "/api/v1/helpers/helper-1/summary?date=2024-01-08", "")
	expectStatus(t, rw, http.StatusOK)
	sum := decode[summaryResponse](t, rw)
	if sum.Scheduled != 1 || sum.TotalFees != "25.00" || sum.CompletedFees != "0.00" {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestTenantAuthTrustsGatewayHeader(t *testing.T) {
	h := TenantAuth{}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rw.Code)
	}

	req.Header.Set(httpx.OwnerIDHeader, "owner-1")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
}

func TestTenantAuthHS256(t *testing.T) {
	secret := "test-secret"
	var gotOwner, gotUser string
	h := TenantAuth{Secret: secret}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOwner, gotUser = ownerID(r), userID(r)
		w.WriteHeader(http.StatusOK)
	}))

	token, err := auth.SignHS256(auth.Claims{
		Sub:     "user-1",
		OwnerID: "owner-1",
		Role:    "owner",
		Iat:     time.Now().Unix(),
		Exp:     time.Now().Add(time.Hour).Unix(),
	}, secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(httpx.OwnerIDHeader, "owner-2")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	if gotOwner != "owner-1" || gotUser != "user-1" {
		t.Fatalf("expected claims identity, got owner=%q user=%q", gotOwner, gotUser)
	}

	noOwner, err := auth.SignHS256(auth.Claims{Sub: "user-1", Exp: time.Now().Add(time.Hour).Unix()}, secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	expired, err := auth.SignHS256(auth.Claims{Sub: "user-1", OwnerID: "owner-1", Exp: time.Now().Add(-time.Minute).Unix()}, secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	foreign, err := auth.SignHS256(auth.Claims{Sub: "user-1", OwnerID: "owner-1", Exp: time.Now().Add(time.Hour).Unix()}, "other-secret")
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	gotOwner = ""
	for _, tc := range []struct {
		bearer string
		reason string
	}{
		{"badtoken", "invalid token"},
		{noOwner, "missing owner_id"},
		{expired, "expired"},
		{foreign, "invalid token"},
	} {
		req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
		req.Header.Set("Authorization", "Bearer "+tc.bearer)
		req.Header.Set(httpx.OwnerIDHeader, "owner-1")
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		if rw.Code != http.StatusUnauthorized || !strings.Contains(rw.Body.String(), tc.reason) {
			t.Fatalf("expected 401 %q, got %d %q", tc.reason, rw.Code, rw.Body.String())
		}
	}
	if gotOwner != "" {
		t.Fatalf("rejected token reached the handler as %q", gotOwner)
	}
}

func TestCORSPolicyAdmitsAppointmentPreflight(t *testing.T) {
	h := httpx.WithCORS(CORSPolicy([]string{"https://app.example.com"}))(newTestServer(t))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/appointments/appt-1", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type,x-owner-id,x-user-id,x-request-id")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	expectStatus(t, rw, http.StatusNoContent)
	if got := rw.Header().Get("Access-Control-Allow-Headers"); got != "Authorization, Content-Type, X-Owner-Id, X-User-Id, X-Request-Id" {
		t.Fatalf("unexpected allow headers %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/appointments/appt-1", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	expectStatus(t, rw, http.StatusForbidden)

	rw = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(weeklyBody))
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set(httpx.OwnerIDHeader, "owner-1")
	h.ServeHTTP(rw, req)
	expectStatus(t, rw, http.StatusCreated)
	if got := rw.Header().Get("Access-Control-Expose-Headers"); got != httpx.RequestIDHeader {
		t.Fatalf("unexpected expose headers %q", got)
	}
}
