package models

import (
	"time"

	"shiptrack/internal/domain"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places stored for every amount.
const MoneyScale = 2

// MaxMoney is the largest amount a DECIMAL(14,2) column holds.
var MaxMoney = decimal.RequireFromString("999999999999.99")

// ValidateMoney rejects amounts the money columns would round or overflow.
func ValidateMoney(field string, d decimal.Decimal) error {
	if !d.Equal(d.Truncate(MoneyScale)) {
		return domain.ValidationError{Field: field, Msg: "must have at most 2 decimal places"}
	}
	if d.Abs().GreaterThan(MaxMoney) {
		return domain.ValidationError{Field: field, Msg: "exceeds the largest storable amount"}
	}
	return nil
}

// PaymentRecord is one immutable ledger line of a shipment.
type PaymentRecord struct {
	ID              int64           `json:"id"`
	ShipmentID      int64           `json:"shipmentId"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        Currency        `json:"currency"`
	Method          PaymentMethod   `json:"method"`
	PaymentDate     time.Time       `json:"paymentDate"`
	ReferenceNumber string          `json:"referenceNumber,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	RecordedBy      int64           `json:"recordedBy"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// LedgerSummary aggregates a shipment's ledger against what is due.
type LedgerSummary struct {
	ShipmentID           int64           `json:"shipmentId"`
	Currency             Currency        `json:"currency"`
	TotalDue             decimal.Decimal `json:"totalDue"`
	TotalPaid            decimal.Decimal `json:"totalPaid"`
	Remaining            decimal.Decimal `json:"remaining"`
	PaymentCount         int             `json:"paymentCount"`
	DerivedPaymentStatus PaymentStatus   `json:"derivedPaymentStatus"`
	StoredPaymentStatus  PaymentStatus   `json:"storedPaymentStatus"`
	Divergent            bool            `json:"divergent"`
}

// TotalDue is totalCost plus additionalCharges.
func TotalDue(s Shipment) decimal.Decimal {
	return s.TotalCost.Add(s.AdditionalCharges)
}

// TotalPaid adds the legacy lump sum to the sum of ledger amounts.
func TotalPaid(s Shipment, ledgerSum decimal.Decimal) decimal.Decimal {
	return ledgerSum.Add(s.AdminAmountPaid)
}

// SumPayments adds up ledger amounts in creation order.
func SumPayments(payments []PaymentRecord) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// Remaining never goes below zero.
func Remaining(due, paid decimal.Decimal) decimal.Decimal {
	rest := due.Sub(paid)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// DerivePaymentStatus: unpaid when nothing is paid, paid once paid covers due, partial otherwise.
func DerivePaymentStatus(due, paid decimal.Decimal) PaymentStatus {
	switch {
	case !paid.IsPositive():
		return PaymentUnpaid
	case paid.GreaterThanOrEqual(due):
		return PaymentPaid
	default:
		return PaymentPartial
	}
}

// Summarize builds the ledger view for a shipment.
func Summarize(s Shipment, payments []PaymentRecord) LedgerSummary {
	due := TotalDue(s)
	paid := TotalPaid(s, SumPayments(payments))
	derived := DerivePaymentStatus(due, paid)
	return LedgerSummary{
		ShipmentID:           s.ID,
		Currency:             s.Currency,
		TotalDue:             due,
		TotalPaid:            paid,
		Remaining:            Remaining(due, paid),
		PaymentCount:         len(payments),
		DerivedPaymentStatus: derived,
		StoredPaymentStatus:  s.PaymentStatus,
		Divergent:            derived != s.PaymentStatus,
	}
}
