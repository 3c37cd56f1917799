package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	intconfig "shiptrack/internal/config"
	intdb "shiptrack/internal/db"
	"shiptrack/internal/domain"
	"shiptrack/internal/domain/models"

	"github.com/shopspring/decimal"
)

const shipmentColumns = `id, tracking_number, client_id, origin_port, destination_port,
		weight, volume, value, currency, total_cost, additional_charges, admin_amount_paid,
		status, payment_status,
		COALESCE(container_number,''), COALESCE(bl_number,''), COALESCE(booking_number,''), enable_tracking,
		COALESCE(vessel_name,''), COALESCE(vessel_mmsi,''), COALESCE(vessel_imo,''),
		COALESCE(current_location,''), COALESCE(warehouse_location,''), COALESCE(warehouse_condition,''),
		delivered_at, COALESCE(notes,''), version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// ShipmentFilter narrows List; zero values mean "any".
type ShipmentFilter struct {
	ClientID int64
	Status   models.ShipmentStatus
	Query    string
}

// MutateFunc changes the locked shipment in place and describes the change
// as a history entry. ledgerSum is the sum of payment amounts read in the same tx.
type MutateFunc func(s *models.Shipment, ledgerSum decimal.Decimal) (models.ShipmentUpdate, error)

type ShipmentRepository struct {
	DB *sql.DB
}

func (r ShipmentRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r ShipmentRepository) Create(ctx context.Context, s models.Shipment) (models.Shipment, error) {
	db := r.db()
	if db == nil {
		return models.Shipment{}, domain.InternalError{Msg: "database not connected"}
	}

	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt, s.Version = now, now, 1

	var volume any
	if s.Volume != nil {
		volume = *s.Volume
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO shipments (
			tracking_number, client_id, origin_port, destination_port,
			weight, volume, value, currency, total_cost, additional_charges, admin_amount_paid,
			status, payment_status,
			container_number, bl_number, booking_number, enable_tracking,
			vessel_name, vessel_mmsi, vessel_imo, current_location, notes,
			version, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.TrackingNumber, s.ClientID, s.OriginPort, s.DestinationPort,
		s.Weight, volume, s.Value, string(s.Currency), s.TotalCost, s.AdditionalCharges, s.AdminAmountPaid,
		string(s.Status), string(s.PaymentStatus),
		intdb.NullIfEmpty(s.ContainerNumber), intdb.NullIfEmpty(s.BLNumber), intdb.NullIfEmpty(s.BookingNumber), s.EnableTracking,
		intdb.NullIfEmpty(s.VesselName), intdb.NullIfEmpty(s.VesselMMSI), intdb.NullIfEmpty(s.VesselIMO),
		intdb.NullIfEmpty(s.CurrentLocation), intdb.NullIfEmpty(s.Notes),
		s.Version, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return models.Shipment{}, domain.ConflictError{Resource: "shipment", Msg: "tracking number already exists", Err: err}
		}
		return models.Shipment{}, domain.InternalError{Msg: "failed to insert shipment", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Shipment{}, domain.InternalError{Msg: "failed to read shipment id", Err: err}
	}
	s.ID = id
	return s, nil
}

func (r ShipmentRepository) GetByID(ctx context.Context, id int64) (models.Shipment, error) {
	if id <= 0 {
		return models.Shipment{}, domain.ValidationError{Field: "id", Msg: "invalid shipment id"}
	}
	db := r.db()
	if db == nil {
		return models.Shipment{}, domain.InternalError{Msg: "database not connected"}
	}
	row := db.QueryRowContext(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = ? LIMIT 1`, id)
	return scanShipmentRow(row)
}

func (r ShipmentRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (models.Shipment, error) {
	db := r.db()
	if db == nil {
		return models.Shipment{}, domain.InternalError{Msg: "database not connected"}
	}
	row := db.QueryRowContext(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE tracking_number = ? LIMIT 1`, trackingNumber)
	return scanShipmentRow(row)
}

func (r ShipmentRepository) List(ctx context.Context, f ShipmentFilter, p domain.Pagination) ([]models.Shipment, int, error) {
	db := r.db()
	if db == nil {
		return nil, 0, domain.InternalError{Msg: "database not connected"}
	}

	where := []string{"1=1"}
	args := []any{}
	if f.ClientID > 0 {
		where = append(where, "client_id = ?")
		args = append(args, f.ClientID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "(tracking_number LIKE ? OR container_number LIKE ? OR bl_number LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shipments WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, domain.InternalError{Msg: "failed to count shipments", Err: err}
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE `+clause+` ORDER BY id DESC LIMIT ? OFFSET ?`,
		append(args, p.PageSize, p.Offset())...,
	)
	if err != nil {
		return nil, 0, domain.InternalError{Msg: "failed to list shipments", Err: err}
	}
	defer rows.Close()

	out := []models.Shipment{}
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, 0, domain.InternalError{Msg: "failed to scan shipment", Err: err}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.InternalError{Msg: "failed to iterate shipments", Err: err}
	}
	return out, total, nil
}

// Delete removes the shipment; payments and history go with it via ON DELETE CASCADE.
func (r ShipmentRepository) Delete(ctx context.Context, id int64) error {
	db := r.db()
	if db == nil {
		return domain.InternalError{Msg: "database not connected"}
	}
	res, err := db.ExecContext(ctx, `DELETE FROM shipments WHERE id = ?`, id)
	if err != nil {
		return domain.InternalError{Msg: "failed to delete shipment", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "shipment"}
	}
	return nil
}

// Mutate locks the shipment row, applies fn, writes the row with a bumped
// version and appends the history entry, all in one transaction. A positive
// expectedVersion that differs from the stored one fails with ConflictError.
func (r ShipmentRepository) Mutate(ctx context.Context, id, expectedVersion int64, fn MutateFunc) (models.Shipment, models.ShipmentUpdate, error) {
	var (
		out    models.Shipment
		update models.ShipmentUpdate
	)
	err := intdb.WithTx(ctx, r.db(), func(tx *sql.Tx) error {
		current, err := lockShipment(ctx, tx, id)
		if err != nil {
			return err
		}
		if expectedVersion > 0 && current.Version != expectedVersion {
			return domain.ConflictError{
				Resource: "shipment",
				Msg:      fmt.Sprintf("version %d is stale, current version is %d", expectedVersion, current.Version),
			}
		}
		sum, err := sumPayments(ctx, tx, id)
		if err != nil {
			return err
		}

		next := current
		upd, err := fn(&next, sum)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		next.UpdatedAt = now
		if err := updateShipmentState(ctx, tx, next, current.Version); err != nil {
			return err
		}
		next.Version = current.Version + 1

		upd.ShipmentID = id
		upd.CreatedAt = now
		if upd.ID, err = insertUpdate(ctx, tx, upd); err != nil {
			return err
		}
		out, update = next, upd
		return nil
	})
	if err != nil {
		return models.Shipment{}, models.ShipmentUpdate{}, wrapInternal("failed to update shipment", err)
	}
	return out, update, nil
}

// ListUpdates returns the history oldest first.
func (r ShipmentRepository) ListUpdates(ctx context.Context, shipmentID int64, p domain.Pagination) ([]models.ShipmentUpdate, int, error) {
	db := r.db()
	if db == nil {
		return nil, 0, domain.InternalError{Msg: "database not connected"}
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shipment_updates WHERE shipment_id = ?`, shipmentID).Scan(&total); err != nil {
		return nil, 0, domain.InternalError{Msg: "failed to count updates", Err: err}
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, shipment_id, update_type, previous_value, new_value,
		       COALESCE(location,''), COALESCE(notes,''), actor_id, actor_role, created_at
		FROM shipment_updates
		WHERE shipment_id = ?
		ORDER BY id ASC
		LIMIT ? OFFSET ?`, shipmentID, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, domain.InternalError{Msg: "failed to list updates", Err: err}
	}
	defer rows.Close()

	out := []models.ShipmentUpdate{}
	for rows.Next() {
		var u models.ShipmentUpdate
		var kind string
		if err := rows.Scan(&u.ID, &u.ShipmentID, &kind, &u.PreviousValue, &u.NewValue,
			&u.Location, &u.Notes, &u.ActorID, &u.ActorRole, &u.CreatedAt); err != nil {
			return nil, 0, domain.InternalError{Msg: "failed to scan update", Err: err}
		}
		u.UpdateType = models.UpdateType(kind)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.InternalError{Msg: "failed to iterate updates", Err: err}
	}
	return out, total, nil
}

func lockShipment(ctx context.Context, tx *sql.Tx, id int64) (models.Shipment, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = ? FOR UPDATE`, id)
	return scanShipmentRow(row)
}

func sumPayments(ctx context.Context, tx *sql.Tx, shipmentID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM shipment_payments WHERE shipment_id = ?`, shipmentID,
	).Scan(&sum); err != nil {
		return decimal.Zero, domain.InternalError{Msg: "failed to sum payments", Err: err}
	}
	return sum, nil
}

func updateShipmentState(ctx context.Context, tx *sql.Tx, s models.Shipment, version int64) error {
	var delivered any
	if s.DeliveredAt != nil {
		delivered = *s.DeliveredAt
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE shipments SET
			status = ?, payment_status = ?, enable_tracking = ?,
			current_location = ?, warehouse_location = ?, warehouse_condition = ?,
			delivered_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		string(s.Status), string(s.PaymentStatus), s.EnableTracking,
		intdb.NullIfEmpty(s.CurrentLocation), intdb.NullIfEmpty(s.WarehouseLocation), intdb.NullIfEmpty(s.WarehouseCondition),
		delivered, s.UpdatedAt,
		s.ID, version,
	)
	if err != nil {
		return domain.InternalError{Msg: "failed to write shipment", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ConflictError{Resource: "shipment", Msg: "concurrent modification"}
	}
	return nil
}

func insertUpdate(ctx context.Context, tx *sql.Tx, u models.ShipmentUpdate) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO shipment_updates
			(shipment_id, update_type, previous_value, new_value, location, notes, actor_id, actor_role, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		u.ShipmentID, string(u.UpdateType), u.PreviousValue, u.NewValue,
		intdb.NullIfEmpty(u.Location), intdb.NullIfEmpty(u.Notes), u.ActorID, u.ActorRole, u.CreatedAt,
	)
	if err != nil {
		return 0, domain.InternalError{Msg: "failed to append history", Err: err}
	}
	return res.LastInsertId()
}

func scanShipmentRow(row *sql.Row) (models.Shipment, error) {
	s, err := scanShipment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Shipment{}, domain.NotFoundError{Resource: "shipment", Err: err}
		}
		return models.Shipment{}, domain.InternalError{Msg: "failed to read shipment", Err: err}
	}
	return s, nil
}

func scanShipment(row rowScanner) (models.Shipment, error) {
	var (
		s                              models.Shipment
		volume                         sql.NullFloat64
		delivered                      sql.NullTime
		currency, status, paymentState string
	)
	if err := row.Scan(
		&s.ID, &s.TrackingNumber, &s.ClientID, &s.OriginPort, &s.DestinationPort,
		&s.Weight, &volume, &s.Value, &currency, &s.TotalCost, &s.AdditionalCharges, &s.AdminAmountPaid,
		&status, &paymentState,
		&s.ContainerNumber, &s.BLNumber, &s.BookingNumber, &s.EnableTracking,
		&s.VesselName, &s.VesselMMSI, &s.VesselIMO,
		&s.CurrentLocation, &s.WarehouseLocation, &s.WarehouseCondition,
		&delivered, &s.Notes, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return models.Shipment{}, err
	}
	if volume.Valid {
		v := volume.Float64
		s.Volume = &v
	}
	if delivered.Valid {
		t := delivered.Time
		s.DeliveredAt = &t
	}
	s.Currency = models.Currency(currency)
	s.Status = models.ShipmentStatus(status)
	s.PaymentStatus = models.PaymentStatus(paymentState)
	return s, nil
}

// wrapInternal keeps typed domain errors and wraps everything else.
func wrapInternal(msg string, err error) error {
	switch {
	case domain.IsNotFound(err), domain.IsValidation(err), domain.IsConflict(err), domain.IsInternal(err):
		return err
	default:
		return domain.InternalError{Msg: msg, Err: err}
	}
}
