package models

import (
	"strings"

	"shiptrack/internal/domain"
)

// ShipmentStatus is the closed set of shipment states. Any value may be set
// from any other; the order below only describes the normal forward progression.
type ShipmentStatus string

const (
	StatusPending          ShipmentStatus = "pending"
	StatusProcessing       ShipmentStatus = "processing"
	StatusShipped          ShipmentStatus = "shipped"
	StatusInTransit        ShipmentStatus = "in_transit"
	StatusAtPort           ShipmentStatus = "at_port"
	StatusCustomsClearance ShipmentStatus = "customs_clearance"
	StatusDelivered        ShipmentStatus = "delivered"
	StatusDelayed          ShipmentStatus = "delayed"
	StatusCancelled        ShipmentStatus = "cancelled"
)

type statusInfo struct {
	Label       string
	Order       int
	Exceptional bool
	Terminal    bool
}

var shipmentStatuses = map[ShipmentStatus]statusInfo{
	StatusPending:          {Label: "Pending", Order: 1},
	StatusProcessing:       {Label: "Processing", Order: 2},
	StatusShipped:          {Label: "Shipped", Order: 3},
	StatusInTransit:        {Label: "In Transit", Order: 4},
	StatusAtPort:           {Label: "At Port", Order: 5},
	StatusCustomsClearance: {Label: "Customs Clearance", Order: 6},
	StatusDelivered:        {Label: "Delivered", Order: 7, Terminal: true},
	StatusDelayed:          {Label: "Delayed", Order: 8, Exceptional: true},
	StatusCancelled:        {Label: "Cancelled", Order: 9, Exceptional: true, Terminal: true},
}

// ShipmentStatuses lists every status in enum order.
func ShipmentStatuses() []ShipmentStatus {
	return []ShipmentStatus{
		StatusPending,
		StatusProcessing,
		StatusShipped,
		StatusInTransit,
		StatusAtPort,
		StatusCustomsClearance,
		StatusDelivered,
		StatusDelayed,
		StatusCancelled,
	}
}

// ParseShipmentStatus accepts the canonical value case-insensitively.
func ParseShipmentStatus(raw string) (ShipmentStatus, error) {
	s := ShipmentStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", domain.ValidationError{Field: "status", Msg: "unknown status " + quote(raw)}
	}
	return s, nil
}

func (s ShipmentStatus) Valid() bool {
	_, ok := shipmentStatuses[s]
	return ok
}

func (s ShipmentStatus) Label() string { return shipmentStatuses[s].Label }

func (s ShipmentStatus) Order() int { return shipmentStatuses[s].Order }

func (s ShipmentStatus) IsExceptional() bool { return shipmentStatuses[s].Exceptional }

func (s ShipmentStatus) IsTerminal() bool { return shipmentStatuses[s].Terminal }

// PaymentStatus is stored on the shipment as a cache of the ledger state.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

var paymentStatusLabels = map[PaymentStatus]string{
	PaymentUnpaid:  "Unpaid",
	PaymentPartial: "Partially Paid",
	PaymentPaid:    "Paid",
}

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	p := PaymentStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", domain.ValidationError{Field: "paymentStatus", Msg: "unknown payment status " + quote(raw)}
	}
	return p, nil
}

func (p PaymentStatus) Valid() bool {
	_, ok := paymentStatusLabels[p]
	return ok
}

func (p PaymentStatus) Label() string { return paymentStatusLabels[p] }

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyLYD Currency = "LYD"
)

func ParseCurrency(raw string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(raw)))
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyLYD:
		return c, nil
	}
	return "", domain.ValidationError{Field: "currency", Msg: "unsupported currency " + quote(raw)}
}

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodCheck        PaymentMethod = "check"
	MethodOther        PaymentMethod = "other"
)

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case MethodCash, MethodBankTransfer, MethodCreditCard, MethodCheck, MethodOther:
		return m, nil
	}
	return "", domain.ValidationError{Field: "method", Msg: "unknown payment method " + quote(raw)}
}

func quote(s string) string { return `"` + s + `"` }
