package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	intconfig "shiptrack/internal/config"
	intdb "shiptrack/internal/db"
	"shiptrack/internal/domain"
	"shiptrack/internal/domain/models"
)

type UserRepository struct {
	DB *sql.DB
}

func (r UserRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r UserRepository) Create(ctx context.Context, u models.User) (models.User, error) {
	db := r.db()
	if db == nil {
		return models.User{}, domain.InternalError{Msg: "database not connected"}
	}
	u.CreatedAt = time.Now().UTC()
	if u.Status == "" {
		u.Status = "active"
	}
	var clientID any
	if u.ClientID != nil {
		clientID = *u.ClientID
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, role, client_id, status, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		u.Name, u.Email, u.PasswordHash, u.Role, clientID, u.Status, u.CreatedAt,
	)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return models.User{}, domain.ConflictError{Resource: "user", Msg: "email already registered", Err: err}
		}
		return models.User{}, domain.InternalError{Msg: "failed to insert user", Err: err}
	}
	u.ID, _ = res.LastInsertId()
	return u, nil
}

func (r UserRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.getOne(ctx, `WHERE email = ?`, email)
}

func (r UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

func (r UserRepository) CountByRole(ctx context.Context, role string) (int, error) {
	db := r.db()
	if db == nil {
		return 0, domain.InternalError{Msg: "database not connected"}
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = ?`, role).Scan(&n); err != nil {
		return 0, domain.InternalError{Msg: "failed to count users", Err: err}
	}
	return n, nil
}

func (r UserRepository) getOne(ctx context.Context, where string, arg any) (models.User, error) {
	db := r.db()
	if db == nil {
		return models.User{}, domain.InternalError{Msg: "database not connected"}
	}
	var (
		u        models.User
		clientID sql.NullInt64
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role, client_id, status, created_at
		FROM users `+where+` LIMIT 1`, arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &clientID, &u.Status, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, domain.NotFoundError{Resource: "user", Err: err}
		}
		return models.User{}, domain.InternalError{Msg: "failed to read user", Err: err}
	}
	if clientID.Valid {
		id := clientID.Int64
		u.ClientID = &id
	}
	return u, nil
}
