package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shiptrack/internal/domain"
	"shiptrack/internal/domain/models"
	"shiptrack/internal/monitoring"
	"shiptrack/internal/repositories"
	"shiptrack/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStore interface {
	Append(ctx context.Context, shipmentID int64, build repositories.AppendFunc) (models.PaymentRecord, models.Shipment, error)
	ListByShipment(ctx context.Context, shipmentID int64) ([]models.PaymentRecord, error)
}

type ShipmentReader interface {
	GetByID(ctx context.Context, id int64) (models.Shipment, error)
}

// PaymentService keeps the per-shipment ledger and the cached payment status in step.
type PaymentService struct {
	Payments  PaymentStore
	Shipments ShipmentReader
	RequestID string
}

func (s PaymentService) payments() PaymentStore {
	if s.Payments != nil {
		return s.Payments
	}
	return repositories.PaymentRepository{}
}

func (s PaymentService) shipments() ShipmentReader {
	if s.Shipments != nil {
		return s.Shipments
	}
	return repositories.ShipmentRepository{}
}

type AddPaymentInput struct {
	Amount          decimal.Decimal
	Currency        string
	Method          string
	PaymentDate     time.Time
	ReferenceNumber string
	Notes           string
}

// AddPayment appends one ledger line. The amount must be positive, in the
// shipment's currency, and must not push total paid past total due.
func (s PaymentService) AddPayment(ctx context.Context, shipmentID int64, in AddPaymentInput, actor domain.RequestContext) (models.PaymentRecord, models.Shipment, error) {
	if shipmentID <= 0 {
		return models.PaymentRecord{}, models.Shipment{}, domain.ValidationError{Field: "id", Msg: "invalid shipment id"}
	}
	if !in.Amount.IsPositive() {
		return models.PaymentRecord{}, models.Shipment{}, domain.ValidationError{Field: "amount", Msg: "must be greater than 0"}
	}
	if err := models.ValidateMoney("amount", in.Amount); err != nil {
		return models.PaymentRecord{}, models.Shipment{}, err
	}
	method, err := models.ParsePaymentMethod(in.Method)
	if err != nil {
		return models.PaymentRecord{}, models.Shipment{}, err
	}
	var currency models.Currency
	if strings.TrimSpace(in.Currency) != "" {
		if currency, err = models.ParseCurrency(in.Currency); err != nil {
			return models.PaymentRecord{}, models.Shipment{}, err
		}
	}
	paidAt := in.PaymentDate
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}
	ref := strings.TrimSpace(in.ReferenceNumber)
	if ref == "" {
		ref = NewReceiptReference()
	}

	rec, updated, err := s.payments().Append(ctx, shipmentID, func(sh models.Shipment, ledgerSum decimal.Decimal) (models.PaymentRecord, models.PaymentStatus, error) {
		cur := currency
		if cur == "" {
			cur = sh.Currency
		}
		if cur != sh.Currency {
			return models.PaymentRecord{}, "", domain.ValidationError{
				Field: "currency",
				Msg:   fmt.Sprintf("shipment is billed in %s", sh.Currency),
			}
		}

		due := models.TotalDue(sh)
		paid := models.TotalPaid(sh, ledgerSum).Add(in.Amount)
		if paid.GreaterThan(due) {
			remaining := models.Remaining(due, models.TotalPaid(sh, ledgerSum))
			return models.PaymentRecord{}, "", domain.ValidationError{
				Field: "amount",
				Msg:   "exceeds remaining balance of " + utils.FormatMoney(remaining, string(sh.Currency)),
			}
		}

		return models.PaymentRecord{
			Amount:          in.Amount,
			Currency:        cur,
			Method:          method,
			PaymentDate:     paidAt,
			ReferenceNumber: ref,
			Notes:           strings.TrimSpace(in.Notes),
			RecordedBy:      actor.UserID,
		}, models.DerivePaymentStatus(due, paid), nil
	})
	if err != nil {
		return models.PaymentRecord{}, models.Shipment{}, err
	}

	monitoring.PaymentsRecordedTotal.WithLabelValues(string(rec.Currency)).Inc()
	utils.LogEvent(s.RequestID, "payment", "add",
		fmt.Sprintf("shipment_id=%d payment_id=%d amount=%s %s status=%s actor=%d",
			shipmentID, rec.ID, rec.Amount.StringFixed(2), rec.Currency, updated.PaymentStatus, actor.UserID))
	return rec, updated, nil
}

// NewReceiptReference labels payments recorded without an external reference.
func NewReceiptReference() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "RCPT-" + id[:10]
}

func (s PaymentService) ListPayments(ctx context.Context, shipmentID int64) ([]models.PaymentRecord, error) {
	if _, err := s.shipments().GetByID(ctx, shipmentID); err != nil {
		return nil, err
	}
	return s.payments().ListByShipment(ctx, shipmentID)
}

// Summary compares the ledger with what the shipment owes.
func (s PaymentService) Summary(ctx context.Context, shipmentID int64) (models.LedgerSummary, error) {
	sh, err := s.shipments().GetByID(ctx, shipmentID)
	if err != nil {
		return models.LedgerSummary{}, err
	}
	return s.SummaryFor(ctx, sh)
}

func (s PaymentService) SummaryFor(ctx context.Context, sh models.Shipment) (models.LedgerSummary, error) {
	list, err := s.payments().ListByShipment(ctx, sh.ID)
	if err != nil {
		return models.LedgerSummary{}, err
	}
	return models.Summarize(sh, list), nil
}

func (s PaymentService) TotalPaid(ctx context.Context, shipmentID int64) (decimal.Decimal, error) {
	sum, err := s.Summary(ctx, shipmentID)
	if err != nil {
		return decimal.Zero, err
	}
	return sum.TotalPaid, nil
}

func (s PaymentService) Remaining(ctx context.Context, shipmentID int64) (decimal.Decimal, error) {
	sum, err := s.Summary(ctx, shipmentID)
	if err != nil {
		return decimal.Zero, err
	}
	return sum.Remaining, nil
}
