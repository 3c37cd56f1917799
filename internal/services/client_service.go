package services

import (
	"context"
	"fmt"
	"strings"

	"shiptrack/internal/domain"
	"shiptrack/internal/domain/models"
	"shiptrack/internal/repositories"
	"shiptrack/internal/utils"
)

type ClientStore interface {
	Create(ctx context.Context, c models.Client) (models.Client, error)
	GetByID(ctx context.Context, id int64) (models.Client, error)
	List(ctx context.Context, q string, p domain.Pagination) ([]models.Client, int, error)
}

type ClientService struct {
	Clients   ClientStore
	RequestID string
}

func (s ClientService) clients() ClientStore {
	if s.Clients != nil {
		return s.Clients
	}
	return repositories.ClientRepository{}
}

type CreateClientInput struct {
	Name        string
	CompanyName string
	Email       string
	Phone       string
	Address     string
}

// CreateClient rejects a duplicate email with a ConflictError.
func (s ClientService) CreateClient(ctx context.Context, in CreateClientInput) (models.Client, error) {
	name := utils.NormalizeSpace(in.Name)
	if name == "" {
		return models.Client{}, domain.ValidationError{Field: "name", Msg: "required"}
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return models.Client{}, err
	}
	c, err := s.clients().Create(ctx, models.Client{
		Name:        name,
		CompanyName: utils.NormalizeSpace(in.CompanyName),
		Email:       email,
		Phone:       strings.TrimSpace(in.Phone),
		Address:     strings.TrimSpace(in.Address),
	})
	if err != nil {
		return models.Client{}, err
	}
	utils.LogEvent(s.RequestID, "client", "create", fmt.Sprintf("id=%d", c.ID))
	return c, nil
}

func (s ClientService) GetClient(ctx context.Context, id int64) (models.Client, error) {
	if id <= 0 {
		return models.Client{}, domain.ValidationError{Field: "id", Msg: "invalid client id"}
	}
	return s.clients().GetByID(ctx, id)
}

func (s ClientService) ListClients(ctx context.Context, q string, p domain.Pagination) ([]models.Client, domain.Pagination, error) {
	list, total, err := s.clients().List(ctx, q, p)
	if err != nil {
		return nil, p, err
	}
	return list, p.WithTotal(total), nil
}
