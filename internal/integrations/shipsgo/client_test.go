package shipsgo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"shiptrack/internal/domain"
	"shiptrack/internal/domain/models"
)

func TestTruncateKeepsRunes(t *testing.T) {
	s := strings.Repeat("é", 5)
	got := truncate(s, 3)
	if got != "ééé..." || !utf8.ValidString(got) {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncate("  short  ", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestTrackErrorBodyStaysValidUTF8(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "a"+strings.Repeat("ü", 300), http.StatusBadGateway)
	}))
	defer srv.Close()

	_, _, err := NewClient(srv.URL, "k", srv.Client()).Track(context.Background(), models.TrackingQuery{Type: models.IdentifierBL, Value: "MEDU1"})
	if !domain.IsProvider(err) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if !utf8.ValidString(err.Error()) {
		t.Fatalf("error message split a rune: %q", err.Error())
	}
}

func TestTrackDropsUndatedMilestones(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"status":"IN_TRANSIT","milestones":[
			{"event":"Loaded on vessel","date":"2024-03-01T10:00:00Z"},
			{"event":"Transshipment","date":"soon"},
			{"event":"Discharged at port","date":"2024-03-20"},
			{"event":"Gate out","date":""}
		]}}`))
	}))
	defer srv.Close()

	d, _, err := NewClient(srv.URL, "k", srv.Client()).Track(context.Background(), models.TrackingQuery{Type: models.IdentifierBL, Value: "MEDU1"})
	if err != nil {
		t.Fatalf("Track returned error: %v", err)
	}
	if len(d.Milestones) != 2 || d.Milestones[0].Event != "Loaded on vessel" || d.Milestones[1].Event != "Discharged at port" {
		t.Fatalf("unexpected milestones: %+v", d.Milestones)
	}
	for _, m := range d.Milestones {
		if m.Date.IsZero() {
			t.Fatalf("zero-dated milestone kept: %+v", m)
		}
	}
}
