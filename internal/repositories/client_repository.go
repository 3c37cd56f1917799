package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	intconfig "shiptrack/internal/config"
	intdb "shiptrack/internal/db"
	"shiptrack/internal/domain"
	"shiptrack/internal/domain/models"
)

type ClientRepository struct {
	DB *sql.DB
}

func (r ClientRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r ClientRepository) Create(ctx context.Context, c models.Client) (models.Client, error) {
	db := r.db()
	if db == nil {
		return models.Client{}, domain.InternalError{Msg: "database not connected"}
	}
	c.CreatedAt = time.Now().UTC()
	res, err := db.ExecContext(ctx, `
		INSERT INTO clients (name, company_name, email, phone, address, created_at)
		VALUES (?,?,?,?,?,?)`,
		c.Name, intdb.NullIfEmpty(c.CompanyName), c.Email, intdb.NullIfEmpty(c.Phone), intdb.NullIfEmpty(c.Address), c.CreatedAt,
	)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return models.Client{}, domain.ConflictError{Resource: "client", Msg: "email already registered", Err: err}
		}
		return models.Client{}, domain.InternalError{Msg: "failed to insert client", Err: err}
	}
	c.ID, _ = res.LastInsertId()
	return c, nil
}

func (r ClientRepository) GetByID(ctx context.Context, id int64) (models.Client, error) {
	db := r.db()
	if db == nil {
		return models.Client{}, domain.InternalError{Msg: "database not connected"}
	}
	var c models.Client
	err := db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(company_name,''), email, COALESCE(phone,''), COALESCE(address,''), created_at
		FROM clients WHERE id = ? LIMIT 1`, id,
	).Scan(&c.ID, &c.Name, &c.CompanyName, &c.Email, &c.Phone, &c.Address, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Client{}, domain.NotFoundError{Resource: "client", Err: err}
		}
		return models.Client{}, domain.InternalError{Msg: "failed to read client", Err: err}
	}
	return c, nil
}

func (r ClientRepository) List(ctx context.Context, q string, p domain.Pagination) ([]models.Client, int, error) {
	db := r.db()
	if db == nil {
		return nil, 0, domain.InternalError{Msg: "database not connected"}
	}
	where := ""
	args := []any{}
	if q = strings.TrimSpace(q); q != "" {
		where = " WHERE (name LIKE ? OR company_name LIKE ? OR email LIKE ?)"
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`+where, args...).Scan(&total); err != nil {
		return nil, 0, domain.InternalError{Msg: "failed to count clients", Err: err}
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, COALESCE(company_name,''), email, COALESCE(phone,''), COALESCE(address,''), created_at
		FROM clients`+where+` ORDER BY id DESC LIMIT ? OFFSET ?`, append(args, p.PageSize, p.Offset())...)
	if err != nil {
		return nil, 0, domain.InternalError{Msg: "failed to list clients", Err: err}
	}
	defer rows.Close()

	out := []models.Client{}
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.CompanyName, &c.Email, &c.Phone, &c.Address, &c.CreatedAt); err != nil {
			return nil, 0, domain.InternalError{Msg: "failed to scan client", Err: err}
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}
