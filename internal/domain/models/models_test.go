package models

import (
	"testing"
	"time"

	"shiptrack/internal/domain"

	"github.com/shopspring/decimal"
)

func TestParseShipmentStatus(t *testing.T) {
	for _, st := range ShipmentStatuses() {
		got, err := ParseShipmentStatus(" " + string(st) + " ")
		if err != nil || got != st {
			t.Fatalf("expected %q to parse, got %q err=%v", st, got, err)
		}
	}
	if got, err := ParseShipmentStatus("IN_TRANSIT"); err != nil || got != StatusInTransit {
		t.Fatalf("expected case-insensitive parse, got %q err=%v", got, err)
	}
	for _, raw := range []string{"", "lost", "in transit"} {
		if _, err := ParseShipmentStatus(raw); !domain.IsValidation(err) {
			t.Fatalf("expected validation error for %q, got %v", raw, err)
		}
	}
}

func TestValidateContainerNumber(t *testing.T) {
	cases := map[string]bool{
		"MSKU1234567":  true,
		"msku1234567":  false,
		"MSK1234567":   false,
		"MSKU123456":   false,
		"MSKU12345678": false,
		"MSKU12345A7":  false,
		"":             false,
	}
	for in, ok := range cases {
		err := ValidateContainerNumber(in)
		if ok && err != nil {
			t.Fatalf("%q should be valid: %v", in, err)
		}
		if !ok && !domain.IsValidation(err) {
			t.Fatalf("%q should be rejected, got %v", in, err)
		}
	}
}

func TestTrackingQueryNormalizes(t *testing.T) {
	q, err := TrackingQuery{Type: IdentifierContainer, Value: " msku1234567 "}.Validate()
	if err != nil || q.Value != "MSKU1234567" {
		t.Fatalf("expected normalized container, got %q err=%v", q.Value, err)
	}
	if _, err := (TrackingQuery{Type: IdentifierBL}).Validate(); !domain.IsValidation(err) {
		t.Fatalf("empty bl should fail, got %v", err)
	}
	if q, ok := FirstIdentifier("", "MEDU123", "BK1"); !ok || q.Type != IdentifierBL {
		t.Fatalf("expected bl to win over booking, got %+v", q)
	}
	if _, ok := FirstIdentifier(" ", "", ""); ok {
		t.Fatalf("blank identifiers must not produce a query")
	}
}

func TestSuggestStatusUsesLatestMilestone(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	d := TrackingData{
		Status: "IN_TRANSIT",
		Milestones: []Milestone{
			{Event: "Discharged at port", Date: base.Add(72 * time.Hour)},
			{Event: "Loaded on vessel", Date: base},
			{Event: "Vessel departed", Date: base.Add(24 * time.Hour)},
		},
	}
	d.SortMilestones()
	if m, _ := d.LatestMilestone(); m.Event != "Discharged at port" {
		t.Fatalf("unexpected latest milestone %q", m.Event)
	}
	if st, ok := SuggestStatus(d); !ok || st != StatusAtPort {
		t.Fatalf("expected at_port, got %q ok=%v", st, ok)
	}

	cases := []struct {
		event string
		want  ShipmentStatus
	}{
		{"Empty returned to depot", StatusDelivered},
		{"Customs hold released", StatusCustomsClearance},
		{"Gate in at origin terminal", StatusShipped},
		{"Transshipment at Algeciras", StatusInTransit},
		{"Voyage delayed by weather", StatusDelayed},
	}
	for _, tc := range cases {
		got, ok := SuggestStatus(TrackingData{Milestones: []Milestone{{Event: tc.event}}})
		if !ok || got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.event, tc.want, got)
		}
	}

	if st, ok := SuggestStatus(TrackingData{Status: "in_transit"}); !ok || st != StatusInTransit {
		t.Fatalf("expected fallback to provider status, got %q", st)
	}
	if _, ok := SuggestStatus(TrackingData{Status: "unknown"}); ok {
		t.Fatalf("unrecognized wording must not suggest a status")
	}
}

func TestDerivePaymentStatus(t *testing.T) {
	due := decimal.NewFromInt(1000)
	cases := []struct {
		paid string
		want PaymentStatus
	}{
		{"0", PaymentUnpaid},
		{"0.01", PaymentPartial},
		{"999.99", PaymentPartial},
		{"1000", PaymentPaid},
	}
	for _, tc := range cases {
		if got := DerivePaymentStatus(due, decimal.RequireFromString(tc.paid)); got != tc.want {
			t.Fatalf("paid %s: expected %q, got %q", tc.paid, tc.want, got)
		}
	}
}

func TestSummarizeCountsLegacyLumpSum(t *testing.T) {
	s := Shipment{
		Currency:          CurrencyUSD,
		TotalCost:         decimal.NewFromInt(800),
		AdditionalCharges: decimal.NewFromInt(200),
		AdminAmountPaid:   decimal.NewFromInt(100),
		PaymentStatus:     PaymentPaid,
	}
	sum := Summarize(s, []PaymentRecord{{Amount: decimal.NewFromInt(400)}})
	if !sum.TotalDue.Equal(decimal.NewFromInt(1000)) || !sum.TotalPaid.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("unexpected totals: %+v", sum)
	}
	if !sum.Remaining.Equal(decimal.NewFromInt(500)) || sum.DerivedPaymentStatus != PaymentPartial || !sum.Divergent {
		t.Fatalf("unexpected derived view: %+v", sum)
	}
}

func TestPublicShipmentHidesMoney(t *testing.T) {
	s := Shipment{TrackingNumber: "GH1", Status: StatusAtPort, TotalCost: decimal.NewFromInt(5)}
	p := s.Public()
	if p.TrackingNumber != "GH1" || p.StatusLabel != "At Port" {
		t.Fatalf("unexpected public view: %+v", p)
	}
}

func TestValidateMoney(t *testing.T) {
	cases := map[string]bool{
		"0":                true,
		"10.5":             true,
		"10.50":            true,
		"10.500":           true,
		"-3.25":            true,
		"999999999999.99":  true,
		"0.004":            false,
		"10.125":           false,
		"1000000000000":    false,
		"-1000000000000.5": false,
	}
	for in, ok := range cases {
		err := ValidateMoney("amount", decimal.RequireFromString(in))
		if ok && err != nil {
			t.Fatalf("%s should be accepted: %v", in, err)
		}
		if !ok && !domain.IsValidation(err) {
			t.Fatalf("%s should be rejected, got %v", in, err)
		}
	}
}
