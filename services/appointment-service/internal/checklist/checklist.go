// Package checklist maintains the ordered task list attached to an appointment.
package checklist

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
	"golang.org/x/text/unicode/norm"
)

var ErrEmptyTitle = errors.New("checklist item title is empty")

type Synchronizer struct {
	templates Templates
}

func NewSynchronizer(templates Templates) *Synchronizer {
	return &Synchronizer{templates: templates}
}

// ReplaceFromSnapshot swaps the appointment's items for titles, in order. An empty
// snapshot leaves the current items alone. The caller's unit of work makes the delete and
// the inserts atomic.
func (s *Synchronizer) ReplaceFromSnapshot(ctx context.Context, repo storage.ChecklistRepo, appointmentID string, titles []string) ([]model.ChecklistItem, error) {
	cleaned := CleanTitles(titles)
	if len(cleaned) == 0 {
		return nil, nil
	}
	if err := repo.DeleteChecklist(ctx, appointmentID); err != nil {
		return nil, err
	}
	return insertAll(ctx, repo, appointmentID, cleaned)
}

// EnsureDefault seeds an appointment that has no items. Sources are tried in order:
// the appointment's snapshot, its notes, the customer's notes, then the template for the
// customer's service cadence.
func (s *Synchronizer) EnsureDefault(ctx context.Context, repo storage.ChecklistRepo, appt model.Appointment, customer *model.Customer) ([]model.ChecklistItem, error) {
	existing, err := repo.ListChecklist(ctx, appt.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}
	return insertAll(ctx, repo, appt.ID, s.DefaultTitles(appt, customer))
}

// DefaultTitles is the title list EnsureDefault would seed.
func (s *Synchronizer) DefaultTitles(appt model.Appointment, customer *model.Customer) []string {
	if titles := CleanTitles(appt.ChecklistSnapshot); len(titles) > 0 {
		return titles
	}
	if titles := NoteLines(appt.Notes); len(titles) > 0 {
		return titles
	}
	serviceType := ""
	if customer != nil {
		if titles := NoteLines(customer.Notes); len(titles) > 0 {
			return titles
		}
		serviceType = customer.ServiceType
	}
	if titles := CleanTitles(s.templates.For(CadenceFor(serviceType))); len(titles) > 0 {
		return titles
	}
	return CleanTitles(s.templates.Generic)
}

// AddItem appends a manual item after the existing ones.
func (s *Synchronizer) AddItem(ctx context.Context, repo storage.ChecklistRepo, appointmentID, title string) (model.ChecklistItem, error) {
	title = cleanTitle(title)
	if title == "" {
		return model.ChecklistItem{}, ErrEmptyTitle
	}
	existing, err := repo.ListChecklist(ctx, appointmentID)
	if err != nil {
		return model.ChecklistItem{}, err
	}
	next := 0
	for _, item := range existing {
		if item.SortOrder >= next {
			next = item.SortOrder + 1
		}
	}
	item := model.ChecklistItem{AppointmentID: appointmentID, Title: title, SortOrder: next}
	if err := repo.InsertChecklistItem(ctx, &item); err != nil {
		return model.ChecklistItem{}, err
	}
	return item, nil
}

// Toggle flips an item between done and open. CompletedAt and CompletedByID always move
// together.
func (s *Synchronizer) Toggle(ctx context.Context, repo storage.ChecklistRepo, ownerID, itemID, userID string, at time.Time) (model.ChecklistItem, error) {
	item, err := repo.GetChecklistItem(ctx, ownerID, itemID)
	if err != nil {
		return model.ChecklistItem{}, err
	}
	if item.Done() {
		item.CompletedAt, item.CompletedByID = nil, nil
	} else {
		at = at.UTC()
		user := userID
		item.CompletedAt, item.CompletedByID = &at, &user
	}
	if err := repo.SetChecklistCompletion(ctx, item.ID, item.CompletedAt, item.CompletedByID); err != nil {
		return model.ChecklistItem{}, err
	}
	return item, nil
}

func insertAll(ctx context.Context, repo storage.ChecklistRepo, appointmentID string, titles []string) ([]model.ChecklistItem, error) {
	items := make([]model.ChecklistItem, 0, len(titles))
	for i, title := range titles {
		item := model.ChecklistItem{AppointmentID: appointmentID, Title: title, SortOrder: i}
		if err := repo.InsertChecklistItem(ctx, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// NoteLines turns free-form notes into item titles, one per non-blank line.
func NoteLines(notes string) []string {
	notes = strings.ReplaceAll(notes, "\r\n", "\n")
	return CleanTitles(strings.Split(notes, "\n"))
}

// CleanTitles normalizes each title and drops the blank ones.
func CleanTitles(titles []string) []string {
	var out []string
	for _, t := range titles {
		if t = cleanTitle(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

var bulletPrefixes = []string{"[ ]", "[x]", "[X]", "- ", "* ", "• ", "•", "-", "*"}

func cleanTitle(raw string) string {
	s := strings.TrimSpace(norm.NFC.String(raw))
	for _, p := range bulletPrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(strings.TrimPrefix(s, p))
			break
		}
	}
	s = trimOrdinal(s)
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// trimOrdinal strips a leading "1." or "2)" list marker.
func trimOrdinal(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(s) || (s[i] != '.' && s[i] != ')') {
		return s
	}
	if i+1 < len(s) && s[i+1] != ' ' {
		return s
	}
	return strings.TrimSpace(s[i+1:])
}
