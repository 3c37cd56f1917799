package repositories

import (
	"context"
	"database/sql"
	"time"

	intconfig "shiptrack/internal/config"
	intdb "shiptrack/internal/db"
	"shiptrack/internal/domain"
	"shiptrack/internal/domain/models"

	"github.com/shopspring/decimal"
)

// AppendFunc validates and builds the new ledger line against the locked
// shipment and returns the payment status the shipment should cache afterwards.
type AppendFunc func(s models.Shipment, ledgerSum decimal.Decimal) (models.PaymentRecord, models.PaymentStatus, error)

type PaymentRepository struct {
	DB *sql.DB
}

func (r PaymentRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// Append inserts one payment and refreshes the cached payment status in the
// same transaction. The shipment row lock serializes concurrent payments.
func (r PaymentRepository) Append(ctx context.Context, shipmentID int64, build AppendFunc) (models.PaymentRecord, models.Shipment, error) {
	var (
		record   models.PaymentRecord
		shipment models.Shipment
	)
	err := intdb.WithTx(ctx, r.db(), func(tx *sql.Tx) error {
		current, err := lockShipment(ctx, tx, shipmentID)
		if err != nil {
			return err
		}
		sum, err := sumPayments(ctx, tx, shipmentID)
		if err != nil {
			return err
		}

		rec, status, err := build(current, sum)
		if err != nil {
			return err
		}
		rec.ShipmentID = shipmentID
		rec.CreatedAt = time.Now().UTC()

		res, err := tx.ExecContext(ctx, `
			INSERT INTO shipment_payments
				(shipment_id, amount, currency, method, payment_date, reference_number, notes, recorded_by, created_at)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			rec.ShipmentID, rec.Amount, string(rec.Currency), string(rec.Method), rec.PaymentDate,
			intdb.NullIfEmpty(rec.ReferenceNumber), intdb.NullIfEmpty(rec.Notes), rec.RecordedBy, rec.CreatedAt,
		)
		if err != nil {
			return domain.InternalError{Msg: "failed to insert payment", Err: err}
		}
		if rec.ID, err = res.LastInsertId(); err != nil {
			return domain.InternalError{Msg: "failed to read payment id", Err: err}
		}

		if status != current.PaymentStatus {
			current.PaymentStatus = status
			current.UpdatedAt = rec.CreatedAt
			if _, err := tx.ExecContext(ctx,
				`UPDATE shipments SET payment_status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
				string(status), current.UpdatedAt, shipmentID, current.Version,
			); err != nil {
				return domain.InternalError{Msg: "failed to refresh payment status", Err: err}
			}
			current.Version++
		}

		record, shipment = rec, current
		return nil
	})
	if err != nil {
		return models.PaymentRecord{}, models.Shipment{}, wrapInternal("failed to add payment", err)
	}
	return record, shipment, nil
}

// ListByShipment returns the ledger in creation order.
func (r PaymentRepository) ListByShipment(ctx context.Context, shipmentID int64) ([]models.PaymentRecord, error) {
	db := r.db()
	if db == nil {
		return nil, domain.InternalError{Msg: "database not connected"}
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, shipment_id, amount, currency, method, payment_date,
		       COALESCE(reference_number,''), COALESCE(notes,''), recorded_by, created_at
		FROM shipment_payments
		WHERE shipment_id = ?
		ORDER BY id ASC`, shipmentID)
	if err != nil {
		return nil, domain.InternalError{Msg: "failed to list payments", Err: err}
	}
	defer rows.Close()

	out := []models.PaymentRecord{}
	for rows.Next() {
		var p models.PaymentRecord
		var currency, method string
		if err := rows.Scan(&p.ID, &p.ShipmentID, &p.Amount, &currency, &method, &p.PaymentDate,
			&p.ReferenceNumber, &p.Notes, &p.RecordedBy, &p.CreatedAt); err != nil {
			return nil, domain.InternalError{Msg: "failed to scan payment", Err: err}
		}
		p.Currency = models.Currency(currency)
		p.Method = models.PaymentMethod(method)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.InternalError{Msg: "failed to iterate payments", Err: err}
	}
	return out, nil
}
