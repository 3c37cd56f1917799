package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shiptrack/internal/config"
	"shiptrack/internal/domain"
	"shiptrack/internal/domain/models"
	"shiptrack/internal/monitoring"
	"shiptrack/internal/repositories"
	"shiptrack/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ShipmentStore interface {
	Create(ctx context.Context, s models.Shipment) (models.Shipment, error)
	GetByID(ctx context.Context, id int64) (models.Shipment, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (models.Shipment, error)
	List(ctx context.Context, f repositories.ShipmentFilter, p domain.Pagination) ([]models.Shipment, int, error)
	Delete(ctx context.Context, id int64) error
	Mutate(ctx context.Context, id, expectedVersion int64, fn repositories.MutateFunc) (models.Shipment, models.ShipmentUpdate, error)
	ListUpdates(ctx context.Context, shipmentID int64, p domain.Pagination) ([]models.ShipmentUpdate, int, error)
}

type ClientReader interface {
	GetByID(ctx context.Context, id int64) (models.Client, error)
}

// Reconciler merges a stored shipment with live tracking data.
type Reconciler interface {
	Reconcile(ctx context.Context, s models.Shipment) models.Reconciliation
}

// ShipmentService owns the status / payment-status / warehouse-arrival rules.
type ShipmentService struct {
	Shipments   ShipmentStore
	Clients     ClientReader
	PaymentMode config.PaymentStatusMode
	RequestID   string
}

func (s ShipmentService) shipments() ShipmentStore {
	if s.Shipments != nil {
		return s.Shipments
	}
	return repositories.ShipmentRepository{}
}

func (s ShipmentService) clients() ClientReader {
	if s.Clients != nil {
		return s.Clients
	}
	return repositories.ClientRepository{}
}

type CreateShipmentInput struct {
	TrackingNumber    string
	ClientID          int64
	OriginPort        string
	DestinationPort   string
	Weight            float64
	Volume            *float64
	Value             decimal.Decimal
	Currency          string
	TotalCost         decimal.Decimal
	AdditionalCharges decimal.Decimal
	AdminAmountPaid   decimal.Decimal
	Status            string
	ContainerNumber   string
	BLNumber          string
	BookingNumber     string
	EnableTracking    *bool
	VesselName        string
	VesselMMSI        string
	VesselIMO         string
	CurrentLocation   string
	Notes             string
}

func (s ShipmentService) CreateShipment(ctx context.Context, in CreateShipmentInput, actor domain.RequestContext) (models.Shipment, error) {
	sh, err := buildShipment(in)
	if err != nil {
		return models.Shipment{}, err
	}
	if _, err := s.clients().GetByID(ctx, sh.ClientID); err != nil {
		return models.Shipment{}, err
	}

	created, err := s.shipments().Create(ctx, sh)
	if err != nil {
		return models.Shipment{}, err
	}
	utils.LogEvent(s.RequestID, "shipment", "create",
		fmt.Sprintf("id=%d tracking=%s client=%d actor=%d", created.ID, created.TrackingNumber, created.ClientID, actor.UserID))
	return created, nil
}

func buildShipment(in CreateShipmentInput) (models.Shipment, error) {
	if in.ClientID <= 0 {
		return models.Shipment{}, domain.ValidationError{Field: "clientId", Msg: "required"}
	}
	origin := utils.NormalizeSpace(in.OriginPort)
	dest := utils.NormalizeSpace(in.DestinationPort)
	if origin == "" {
		return models.Shipment{}, domain.ValidationError{Field: "originPort", Msg: "required"}
	}
	if dest == "" {
		return models.Shipment{}, domain.ValidationError{Field: "destinationPort", Msg: "required"}
	}
	if in.Weight <= 0 {
		return models.Shipment{}, domain.ValidationError{Field: "weight", Msg: "must be greater than 0"}
	}
	if in.Volume != nil && *in.Volume < 0 {
		return models.Shipment{}, domain.ValidationError{Field: "volume", Msg: "must not be negative"}
	}
	if !in.Value.IsPositive() {
		return models.Shipment{}, domain.ValidationError{Field: "value", Msg: "must be greater than 0"}
	}
	currency, err := models.ParseCurrency(in.Currency)
	if err != nil {
		return models.Shipment{}, err
	}
	if !in.TotalCost.IsPositive() {
		return models.Shipment{}, domain.ValidationError{Field: "totalCost", Msg: "must be greater than 0"}
	}
	if in.AdditionalCharges.IsNegative() {
		return models.Shipment{}, domain.ValidationError{Field: "additionalCharges", Msg: "must not be negative"}
	}
	if in.AdminAmountPaid.IsNegative() {
		return models.Shipment{}, domain.ValidationError{Field: "adminAmountPaid", Msg: "must not be negative"}
	}
	for _, m := range []struct {
		field  string
		amount decimal.Decimal
	}{
		{"value", in.Value},
		{"totalCost", in.TotalCost},
		{"additionalCharges", in.AdditionalCharges},
		{"adminAmountPaid", in.AdminAmountPaid},
	} {
		if err := models.ValidateMoney(m.field, m.amount); err != nil {
			return models.Shipment{}, err
		}
	}

	status := models.StatusPending
	if strings.TrimSpace(in.Status) != "" {
		if status, err = models.ParseShipmentStatus(in.Status); err != nil {
			return models.Shipment{}, err
		}
	}

	tracking := models.NormalizeIdentifier(in.TrackingNumber)
	if tracking == "" {
		tracking = NewTrackingNumber()
	} else if err := models.ValidateTrackingNumber(tracking); err != nil {
		return models.Shipment{}, err
	}

	container := models.NormalizeIdentifier(in.ContainerNumber)
	if container != "" {
		if err := models.ValidateContainerNumber(container); err != nil {
			return models.Shipment{}, err
		}
	}

	enable := true
	if in.EnableTracking != nil {
		enable = *in.EnableTracking
	}

	sh := models.Shipment{
		TrackingNumber:    tracking,
		ClientID:          in.ClientID,
		OriginPort:        origin,
		DestinationPort:   dest,
		Weight:            in.Weight,
		Volume:            in.Volume,
		Value:             in.Value,
		Currency:          currency,
		TotalCost:         in.TotalCost,
		AdditionalCharges: in.AdditionalCharges,
		AdminAmountPaid:   in.AdminAmountPaid,
		Status:            status,
		ContainerNumber:   container,
		BLNumber:          models.NormalizeIdentifier(in.BLNumber),
		BookingNumber:     models.NormalizeIdentifier(in.BookingNumber),
		EnableTracking:    enable,
		VesselName:        strings.TrimSpace(in.VesselName),
		VesselMMSI:        strings.TrimSpace(in.VesselMMSI),
		VesselIMO:         strings.TrimSpace(in.VesselIMO),
		CurrentLocation:   strings.TrimSpace(in.CurrentLocation),
		Notes:             strings.TrimSpace(in.Notes),
	}
	due := models.TotalDue(sh)
	if sh.AdminAmountPaid.GreaterThan(due) {
		return models.Shipment{}, domain.ValidationError{Field: "adminAmountPaid", Msg: "exceeds total cost plus additional charges"}
	}
	sh.PaymentStatus = models.DerivePaymentStatus(due, sh.AdminAmountPaid)
	return sh, nil
}

func (s ShipmentService) mutate(ctx context.Context, id, version int64, fn repositories.MutateFunc) (models.Shipment, models.ShipmentUpdate, error) {
	sh, upd, err := s.shipments().Mutate(ctx, id, version, fn)
	if err != nil {
		return sh, upd, err
	}
	monitoring.ShipmentUpdatesTotal.WithLabelValues(string(upd.UpdateType)).Inc()
	return sh, upd, nil
}

// NewTrackingNumber returns "GH" followed by 10 uppercase hex characters.
func NewTrackingNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "GH" + id[:10]
}

func (s ShipmentService) GetShipment(ctx context.Context, id int64) (models.Shipment, error) {
	return s.shipments().GetByID(ctx, id)
}

func (s ShipmentService) GetByTrackingNumber(ctx context.Context, trackingNumber string) (models.Shipment, error) {
	tn := models.NormalizeIdentifier(trackingNumber)
	if err := models.ValidateTrackingNumber(tn); err != nil {
		// Malformed codes cannot exist; answer like an unknown number.
		return models.Shipment{}, domain.NotFoundError{Resource: "shipment", Err: err}
	}
	return s.shipments().GetByTrackingNumber(ctx, tn)
}

// GetClientShipment hides other clients' shipments behind NotFound.
func (s ShipmentService) GetClientShipment(ctx context.Context, clientID, id int64) (models.Shipment, error) {
	sh, err := s.shipments().GetByID(ctx, id)
	if err != nil {
		return models.Shipment{}, err
	}
	if clientID <= 0 || sh.ClientID != clientID {
		return models.Shipment{}, notFoundShipment()
	}
	return sh, nil
}

func notFoundShipment() error {
	return domain.NotFoundError{Resource: "shipment"}
}

func (s ShipmentService) ListShipments(ctx context.Context, f repositories.ShipmentFilter, p domain.Pagination) ([]models.Shipment, domain.Pagination, error) {
	list, total, err := s.shipments().List(ctx, f, p)
	if err != nil {
		return nil, p, err
	}
	return list, p.WithTotal(total), nil
}

func (s ShipmentService) DeleteShipment(ctx context.Context, id int64, actor domain.RequestContext) error {
	if !actor.IsAdmin() {
		return domain.ForbiddenError{Msg: "only admins may delete shipments"}
	}
	if err := s.shipments().Delete(ctx, id); err != nil {
		return err
	}
	utils.LogEvent(s.RequestID, "shipment", "delete", fmt.Sprintf("id=%d actor=%d", id, actor.UserID))
	return nil
}

// SetStatus accepts any status value regardless of the current one and
// appends exactly one history entry.
func (s ShipmentService) SetStatus(ctx context.Context, id int64, raw, notes string, version int64, actor domain.RequestContext) (models.Shipment, error) {
	status, err := models.ParseShipmentStatus(raw)
	if err != nil {
		return models.Shipment{}, err
	}
	notes = strings.TrimSpace(notes)

	updated, _, err := s.mutate(ctx, id, version, func(sh *models.Shipment, _ decimal.Decimal) (models.ShipmentUpdate, error) {
		prev := sh.Status
		sh.Status = status
		if status == models.StatusDelivered && sh.DeliveredAt == nil {
			now := time.Now().UTC()
			sh.DeliveredAt = &now
		}
		return models.ShipmentUpdate{
			UpdateType:    models.UpdateStatus,
			PreviousValue: string(prev),
			NewValue:      string(status),
			Location:      sh.CurrentLocation,
			Notes:         notes,
			ActorID:       actor.UserID,
			ActorRole:     actor.Role,
		}, nil
	})
	if err != nil {
		return models.Shipment{}, err
	}
	utils.LogEvent(s.RequestID, "shipment", "set_status",
		fmt.Sprintf("id=%d status=%s version=%d actor=%d", id, status, updated.Version, actor.UserID))
	return updated, nil
}

// SetLocation records the shipment's current location.
func (s ShipmentService) SetLocation(ctx context.Context, id int64, location, notes string, version int64, actor domain.RequestContext) (models.Shipment, error) {
	location = utils.NormalizeSpace(location)
	if location == "" {
		return models.Shipment{}, domain.ValidationError{Field: "location", Msg: "required"}
	}
	notes = strings.TrimSpace(notes)

	updated, _, err := s.mutate(ctx, id, version, func(sh *models.Shipment, _ decimal.Decimal) (models.ShipmentUpdate, error) {
		prev := sh.CurrentLocation
		sh.CurrentLocation = location
		return models.ShipmentUpdate{
			UpdateType:    models.UpdateLocation,
			PreviousValue: prev,
			NewValue:      location,
			Location:      location,
			Notes:         notes,
			ActorID:       actor.UserID,
			ActorRole:     actor.Role,
		}, nil
	})
	if err != nil {
		return models.Shipment{}, err
	}
	utils.LogEvent(s.RequestID, "shipment", "set_location", fmt.Sprintf("id=%d actor=%d", id, actor.UserID))
	return updated, nil
}

type PaymentStatusInput struct {
	PaymentStatus string
	// Override stores a value that contradicts the ledger (write-offs and similar).
	Override bool
	Notes    string
	Version  int64
}

type PaymentStatusResult struct {
	Shipment  models.Shipment      `json:"shipment"`
	Derived   models.PaymentStatus `json:"derivedPaymentStatus"`
	Divergent bool                 `json:"divergent"`
}

// SetPaymentStatus stores the payment status. In strict mode a value that
// differs from the ledger-derived one is rejected unless Override is set;
// in manual mode it is stored and flagged as divergent.
func (s ShipmentService) SetPaymentStatus(ctx context.Context, id int64, in PaymentStatusInput, actor domain.RequestContext) (PaymentStatusResult, error) {
	next, err := models.ParsePaymentStatus(in.PaymentStatus)
	if err != nil {
		return PaymentStatusResult{}, err
	}
	strict := s.PaymentMode != config.PaymentModeManual
	notes := strings.TrimSpace(in.Notes)

	var derived models.PaymentStatus
	updated, _, err := s.mutate(ctx, id, in.Version, func(sh *models.Shipment, ledgerSum decimal.Decimal) (models.ShipmentUpdate, error) {
		due := models.TotalDue(*sh)
		derived = models.DerivePaymentStatus(due, models.TotalPaid(*sh, ledgerSum))
		if strict && !in.Override && next != derived {
			return models.ShipmentUpdate{}, domain.ValidationError{
				Field: "paymentStatus",
				Msg:   fmt.Sprintf("ledger derives %q; set override to store %q", derived, next),
			}
		}
		prev := sh.PaymentStatus
		sh.PaymentStatus = next

		n := notes
		if next != derived {
			n = strings.TrimSpace(fmt.Sprintf("manual override, ledger derives %s. %s", derived, notes))
		}
		return models.ShipmentUpdate{
			UpdateType:    models.UpdatePaymentStatus,
			PreviousValue: string(prev),
			NewValue:      string(next),
			Notes:         n,
			ActorID:       actor.UserID,
			ActorRole:     actor.Role,
		}, nil
	})
	if err != nil {
		return PaymentStatusResult{}, err
	}

	res := PaymentStatusResult{Shipment: updated, Derived: derived, Divergent: next != derived}
	msg := fmt.Sprintf("id=%d payment_status=%s derived=%s actor=%d", id, next, derived, actor.UserID)
	if res.Divergent {
		msg += " divergent=true"
	}
	utils.LogEvent(s.RequestID, "shipment", "set_payment_status", msg)
	return res, nil
}

type WarehouseArrivalInput struct {
	WarehouseLocation string
	Condition         string
	Notes             string
	DisableTracking   bool
	Version           int64
}

// MarkWarehouseArrival delivers the shipment into a warehouse in one step.
// Re-marking an already delivered shipment overwrites location and condition.
func (s ShipmentService) MarkWarehouseArrival(ctx context.Context, id int64, in WarehouseArrivalInput, actor domain.RequestContext) (models.Shipment, error) {
	location := utils.NormalizeSpace(in.WarehouseLocation)
	if location == "" {
		return models.Shipment{}, domain.ValidationError{Field: "warehouseLocation", Msg: "required"}
	}
	condition := strings.ToLower(utils.NormalizeSpace(in.Condition))
	if condition == "" {
		return models.Shipment{}, domain.ValidationError{Field: "condition", Msg: "required"}
	}
	notes := strings.TrimSpace(in.Notes)

	updated, _, err := s.mutate(ctx, id, in.Version, func(sh *models.Shipment, _ decimal.Decimal) (models.ShipmentUpdate, error) {
		prev := sh.Status
		sh.Status = models.StatusDelivered
		sh.WarehouseLocation = location
		sh.WarehouseCondition = condition
		sh.CurrentLocation = location
		if sh.DeliveredAt == nil {
			now := time.Now().UTC()
			sh.DeliveredAt = &now
		}
		if in.DisableTracking {
			sh.EnableTracking = false
		}
		return models.ShipmentUpdate{
			UpdateType:    models.UpdateWarehouseArrival,
			PreviousValue: string(prev),
			NewValue:      string(models.StatusDelivered),
			Location:      location,
			Notes:         strings.TrimSpace("condition: " + condition + ". " + notes),
			ActorID:       actor.UserID,
			ActorRole:     actor.Role,
		}, nil
	})
	if err != nil {
		return models.Shipment{}, err
	}
	utils.LogEvent(s.RequestID, "shipment", "warehouse_arrival",
		fmt.Sprintf("id=%d location=%q tracking_enabled=%t actor=%d", id, location, updated.EnableTracking, actor.UserID))
	return updated, nil
}

// ListHistory returns the update log oldest first.
func (s ShipmentService) ListHistory(ctx context.Context, id int64, p domain.Pagination) ([]models.ShipmentUpdate, domain.Pagination, error) {
	if _, err := s.shipments().GetByID(ctx, id); err != nil {
		return nil, p, err
	}
	list, total, err := s.shipments().ListUpdates(ctx, id, p)
	if err != nil {
		return nil, p, err
	}
	return list, p.WithTotal(total), nil
}

// ApplyTrackingStatus is the explicit admin step that turns a tracking
// suggestion into a stored status. Nothing is written when there is no
// suggestion or it already matches.
func (s ShipmentService) ApplyTrackingStatus(ctx context.Context, id, version int64, tracker Reconciler, actor domain.RequestContext) (models.Shipment, models.Reconciliation, bool, error) {
	sh, err := s.shipments().GetByID(ctx, id)
	if err != nil {
		return models.Shipment{}, models.Reconciliation{}, false, err
	}
	rec := tracker.Reconcile(ctx, sh)
	suggested := rec.Tracking.SuggestedStatus
	if !rec.Tracking.Success || suggested == "" || suggested == sh.Status {
		return sh, rec, false, nil
	}

	note := "applied from tracking milestone"
	if m, ok := latestMilestone(rec.Tracking); ok {
		note = fmt.Sprintf("applied from tracking milestone %q at %s", m.Event, utils.Fallback(m.Location, "unknown location"))
	}
	updated, err := s.SetStatus(ctx, id, string(suggested), note, version, actor)
	if err != nil {
		return models.Shipment{}, rec, false, err
	}
	rec.Shipment = updated
	rec.StatusMatches = true
	return updated, rec, true, nil
}

func latestMilestone(r models.TrackingResult) (models.Milestone, bool) {
	if r.Data == nil {
		return models.Milestone{}, false
	}
	return r.Data.LatestMilestone()
}
