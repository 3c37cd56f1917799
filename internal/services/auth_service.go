package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"shiptrack/internal/domain"
	"shiptrack/internal/domain/models"
	"shiptrack/internal/repositories"
	"shiptrack/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type UserStore interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	CountByRole(ctx context.Context, role string) (int, error)
}

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Role     string `json:"role"`
	ClientID int64  `json:"client_id,omitempty"`
	jwt.RegisteredClaims
}

type AuthService struct {
	Users     UserStore
	Clients   ClientReader
	Secret    []byte
	TTL       time.Duration
	RequestID string
}

func (s AuthService) users() UserStore {
	if s.Users != nil {
		return s.Users
	}
	return repositories.UserRepository{}
}

func (s AuthService) clients() ClientReader {
	if s.Clients != nil {
		return s.Clients
	}
	return repositories.ClientRepository{}
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

// Login checks the password and issues an HS256 token. Unknown email and
// wrong password give the same error.
func (s AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return LoginResult{}, domain.ValidationError{Field: "email", Msg: "email and password are required"}
	}
	invalid := domain.UnauthorizedError{Msg: "invalid email or password"}

	u, err := s.users().GetByEmail(ctx, email)
	if err != nil {
		if domain.IsNotFound(err) {
			return LoginResult{}, invalid
		}
		return LoginResult{}, err
	}
	if u.Status != "" && u.Status != "active" {
		return LoginResult{}, domain.UnauthorizedError{Msg: "account disabled"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, invalid
	}

	token, exp, err := s.issue(u)
	if err != nil {
		return LoginResult{}, err
	}
	utils.LogEvent(s.RequestID, "auth", "login", fmt.Sprintf("user_id=%d role=%s", u.ID, u.Role))
	return LoginResult{Token: token, ExpiresAt: exp, User: u}, nil
}

func (s AuthService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return 24 * time.Hour
}

func (s AuthService) issue(u models.User) (string, time.Time, error) {
	if len(s.Secret) == 0 {
		return "", time.Time{}, domain.InternalError{Msg: "jwt secret not configured"}
	}
	now := time.Now().UTC()
	exp := now.Add(s.ttl())
	claims := Claims{
		UserID: u.ID,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if u.ClientID != nil {
		claims.ClientID = *u.ClientID
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", time.Time{}, domain.InternalError{Msg: "failed to sign token", Err: err}
	}
	return signed, exp, nil
}

// ParseToken validates a bearer token and returns the actor it names.
func (s AuthService) ParseToken(raw string) (domain.RequestContext, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.RequestContext{}, domain.UnauthorizedError{Msg: "missing token"}
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "token expired"
		}
		return domain.RequestContext{}, domain.UnauthorizedError{Msg: msg, Err: err}
	}
	if claims.UserID <= 0 || (claims.Role != domain.RoleAdmin && claims.Role != domain.RoleCustomer) {
		return domain.RequestContext{}, domain.UnauthorizedError{Msg: "invalid token claims"}
	}
	return domain.RequestContext{UserID: claims.UserID, Role: claims.Role, ClientID: claims.ClientID}, nil
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	ClientID *int64
}

// CreateUser registers an admin or a customer. Customers must be linked to an existing client.
func (s AuthService) CreateUser(ctx context.Context, in CreateUserInput) (models.User, error) {
	name := utils.NormalizeSpace(in.Name)
	if name == "" {
		return models.User{}, domain.ValidationError{Field: "name", Msg: "required"}
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return models.User{}, err
	}
	if len(in.Password) < 8 {
		return models.User{}, domain.ValidationError{Field: "password", Msg: "must be at least 8 characters"}
	}
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = domain.RoleCustomer
	}
	switch role {
	case domain.RoleAdmin:
		in.ClientID = nil
	case domain.RoleCustomer:
		if in.ClientID == nil || *in.ClientID <= 0 {
			return models.User{}, domain.ValidationError{Field: "clientId", Msg: "required for customer accounts"}
		}
		if _, err := s.clients().GetByID(ctx, *in.ClientID); err != nil {
			return models.User{}, err
		}
	default:
		return models.User{}, domain.ValidationError{Field: "role", Msg: "must be admin or customer"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, domain.InternalError{Msg: "failed to hash password", Err: err}
	}
	u, err := s.users().Create(ctx, models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		ClientID:     in.ClientID,
		Status:       "active",
	})
	if err != nil {
		return models.User{}, err
	}
	utils.LogEvent(s.RequestID, "auth", "create_user", fmt.Sprintf("user_id=%d role=%s", u.ID, u.Role))
	return u, nil
}

// SeedAdmin creates the first admin account from configuration. It does
// nothing when email or password is unset or an admin already exists.
func (s AuthService) SeedAdmin(ctx context.Context, name, email, password string) (models.User, bool, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return models.User{}, false, nil
	}
	admins, err := s.users().CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return models.User{}, false, err
	}
	if admins > 0 {
		return models.User{}, false, nil
	}
	u, err := s.CreateUser(ctx, CreateUserInput{
		Name:     utils.Fallback(utils.NormalizeSpace(name), "Administrator"),
		Email:    email,
		Password: password,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return models.User{}, false, err
	}
	utils.LogEvent(s.RequestID, "auth", "seed_admin", fmt.Sprintf("user_id=%d email=%s", u.ID, u.Email))
	return u, true, nil
}

func (s AuthService) Me(ctx context.Context, actor domain.RequestContext) (models.User, error) {
	return s.users().GetByID(ctx, actor.UserID)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.ValidationError{Field: "email", Msg: "required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.ValidationError{Field: "email", Msg: "invalid email address"}
	}
	return email, nil
}
