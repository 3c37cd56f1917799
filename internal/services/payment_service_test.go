package services

import (
	"context"
	"errors"
	"testing"

	"shiptrack/internal/domain"
	"shiptrack/internal/domain/models"
)

func TestAddPaymentIsAdditive(t *testing.T) {
	ss, ps, _ := testServices("")
	sh := createShipment(t, ss)
	ctx := context.Background()

	for _, amt := range []string{"0.01", "120.50", "79.49", "300"} {
		before, err := ps.TotalPaid(ctx, sh.ID)
		if err != nil {
			t.Fatalf("TotalPaid returned error: %v", err)
		}
		if _, _, err := ps.AddPayment(ctx, sh.ID, AddPaymentInput{Amount: dec(amt), Method: "cash"}, adminActor); err != nil {
			t.Fatalf("AddPayment(%s) returned error: %v", amt, err)
		}
		after, _ := ps.TotalPaid(ctx, sh.ID)
		if !after.Equal(before.Add(dec(amt))) {
			t.Fatalf("expected %s + %s, got %s", before, amt, after)
		}
	}
}

func TestAddPaymentRejectsNonPositive(t *testing.T) {
	ss, ps, _ := testServices("")
	sh := createShipment(t, ss)
	for _, amt := range []string{"0", "-10"} {
		if _, _, err := ps.AddPayment(context.Background(), sh.ID, AddPaymentInput{Amount: dec(amt), Method: "cash"}, adminActor); !domain.IsValidation(err) {
			t.Fatalf("amount %s: expected validation error, got %v", amt, err)
		}
	}
}

func TestAddPaymentRejectsSubCentAmounts(t *testing.T) {
	ss, ps, _ := testServices("")
	sh := createShipment(t, ss)
	ctx := context.Background()
	for _, amt := range []string{"0.004", "10.125"} {
		_, _, err := ps.AddPayment(ctx, sh.ID, AddPaymentInput{Amount: dec(amt), Method: "cash"}, adminActor)
		var verr domain.ValidationError
		if !errors.As(err, &verr) || verr.Field != "amount" {
			t.Fatalf("amount %s: expected amount validation error, got %v", amt, err)
		}
	}
	list, err := ps.ListPayments(ctx, sh.ID)
	if err != nil || len(list) != 0 {
		t.Fatalf("rejected amounts must not reach the ledger: %+v err=%v", list, err)
	}
	if _, _, err := ps.AddPayment(ctx, sh.ID, AddPaymentInput{Amount: dec("10.50"), Method: "cash"}, adminActor); err != nil {
		t.Fatalf("two decimal places should pass: %v", err)
	}
}

func TestAddPaymentCurrencyMustMatch(t *testing.T) {
	ss, ps, _ := testServices("")
	sh := createShipment(t, ss)
	_, _, err := ps.AddPayment(context.Background(), sh.ID, AddPaymentInput{Amount: dec("10"), Currency: "EUR", Method: "cash"}, adminActor)
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error for EUR on USD shipment, got %v", err)
	}
	rec, _, err := ps.AddPayment(context.Background(), sh.ID, AddPaymentInput{Amount: dec("10"), Method: "bank_transfer"}, adminActor)
	if err != nil {
		t.Fatalf("AddPayment returned error: %v", err)
	}
	if rec.Currency != models.CurrencyUSD || rec.RecordedBy != adminActor.UserID {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestAddPaymentRejectsOverpayment(t *testing.T) {
	ss, ps, _ := testServices("")
	sh := createShipment(t, ss)
	ctx := context.Background()
	if _, _, err := ps.AddPayment(ctx, sh.ID, AddPaymentInput{Amount: dec("999"), Method: "cash"}, adminActor); err != nil {
		t.Fatalf("AddPayment returned error: %v", err)
	}
	if _, _, err := ps.AddPayment(ctx, sh.ID, AddPaymentInput{Amount: dec("1.01"), Method: "cash"}, adminActor); !domain.IsValidation(err) {
		t.Fatalf("expected overpayment to be rejected, got %v", err)
	}
	list, _ := ps.ListPayments(ctx, sh.ID)
	if len(list) != 1 {
		t.Fatalf("rejected payment must not be stored, got %d records", len(list))
	}
}

func TestAddPaymentUnknownMethodAndShipment(t *testing.T) {
	ss, ps, _ := testServices("")
	sh := createShipment(t, ss)
	if _, _, err := ps.AddPayment(context.Background(), sh.ID, AddPaymentInput{Amount: dec("1"), Method: "barter"}, adminActor); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, _, err := ps.AddPayment(context.Background(), 999, AddPaymentInput{Amount: dec("1"), Method: "cash"}, adminActor); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	cases := []struct{ due, paid, want string }{
		{"1000", "0", "1000"},
		{"1000", "400", "600"},
		{"1000", "1000", "0"},
		{"1000", "1500", "0"},
	}
	for _, c := range cases {
		got := models.Remaining(dec(c.due), dec(c.paid))
		if !got.Equal(dec(c.want)) {
			t.Fatalf("Remaining(%s,%s) = %s, want %s", c.due, c.paid, got, c.want)
		}
	}
}

func TestLegacyLumpSumCountsTowardsTotalPaid(t *testing.T) {
	ss, ps, _ := testServices("")
	in := validShipmentInput()
	in.AdminAmountPaid = dec("250")
	sh, err := ss.CreateShipment(context.Background(), in, adminActor)
	if err != nil {
		t.Fatalf("CreateShipment returned error: %v", err)
	}
	if sh.PaymentStatus != models.PaymentPartial {
		t.Fatalf("expected partial from lump sum, got %s", sh.PaymentStatus)
	}
	if _, _, err := ps.AddPayment(context.Background(), sh.ID, AddPaymentInput{Amount: dec("750.01"), Method: "cash"}, adminActor); !domain.IsValidation(err) {
		t.Fatalf("lump sum must count against the cap, got %v", err)
	}
	rem, _ := ps.Remaining(context.Background(), sh.ID)
	if !rem.Equal(dec("750")) {
		t.Fatalf("expected 750 remaining, got %s", rem)
	}
}

func TestPaymentLifecycleScenario(t *testing.T) {
	ss, ps, _ := testServices("strict")
	ctx := context.Background()
	sh := createShipment(t, ss)

	_, updated, err := ps.AddPayment(ctx, sh.ID, AddPaymentInput{Amount: dec("400"), Currency: "USD", Method: "cash"}, adminActor)
	if err != nil {
		t.Fatalf("first payment failed: %v", err)
	}
	if updated.PaymentStatus != models.PaymentPartial {
		t.Fatalf("expected partial after 400, got %s", updated.PaymentStatus)
	}
	sum, _ := ps.Summary(ctx, sh.ID)
	if !sum.TotalPaid.Equal(dec("400")) || !sum.Remaining.Equal(dec("600")) {
		t.Fatalf("expected paid=400 remaining=600, got %s/%s", sum.TotalPaid, sum.Remaining)
	}

	if _, _, err := ps.AddPayment(ctx, sh.ID, AddPaymentInput{Amount: dec("600"), Currency: "USD", Method: "bank_transfer"}, adminActor); err != nil {
		t.Fatalf("second payment failed: %v", err)
	}
	rem, _ := ps.Remaining(ctx, sh.ID)
	if !rem.IsZero() {
		t.Fatalf("expected nothing remaining, got %s", rem)
	}

	res, err := ss.SetPaymentStatus(ctx, sh.ID, PaymentStatusInput{PaymentStatus: "paid"}, adminActor)
	if err != nil {
		t.Fatalf("SetPaymentStatus returned error: %v", err)
	}
	stored, _ := ss.GetShipment(ctx, sh.ID)
	if stored.PaymentStatus != models.PaymentPaid || res.Divergent {
		t.Fatalf("expected stored paid without divergence, got %s divergent=%t", stored.PaymentStatus, res.Divergent)
	}

	// the stored value is independent: an override can still move it away from the ledger
	if _, err := ss.SetPaymentStatus(ctx, sh.ID, PaymentStatusInput{PaymentStatus: "partial", Override: true}, adminActor); err != nil {
		t.Fatalf("override returned error: %v", err)
	}
	sum, _ = ps.Summary(ctx, sh.ID)
	if sum.StoredPaymentStatus != models.PaymentPartial || sum.DerivedPaymentStatus != models.PaymentPaid || !sum.Divergent {
		t.Fatalf("unexpected summary after override: %+v", sum)
	}
}
