package services

import (
	"context"
	"sync"
	"time"

	"shiptrack/internal/config"
	"shiptrack/internal/domain"
	"shiptrack/internal/domain/models"
	"shiptrack/internal/repositories"

	"github.com/shopspring/decimal"
)

// memStore backs shipments, payments and history with the same
// version/transaction rules as the MySQL repositories.
type memStore struct {
	mu        sync.Mutex
	shipments map[int64]models.Shipment
	payments  map[int64][]models.PaymentRecord
	updates   map[int64][]models.ShipmentUpdate
	nextID    int64
	mutations int
}

func newMemStore() *memStore {
	return &memStore{
		shipments: map[int64]models.Shipment{},
		payments:  map[int64][]models.PaymentRecord{},
		updates:   map[int64][]models.ShipmentUpdate{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) Create(_ context.Context, s models.Shipment) (models.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.shipments {
		if ex.TrackingNumber == s.TrackingNumber {
			return models.Shipment{}, domain.ConflictError{Resource: "shipment", Msg: "tracking number already exists"}
		}
	}
	s.ID = m.id()
	s.Version = 1
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	m.shipments[s.ID] = s
	return s, nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (models.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shipments[id]
	if !ok {
		return models.Shipment{}, domain.NotFoundError{Resource: "shipment"}
	}
	return s, nil
}

func (m *memStore) GetByTrackingNumber(_ context.Context, tn string) (models.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.shipments {
		if s.TrackingNumber == tn {
			return s, nil
		}
	}
	return models.Shipment{}, domain.NotFoundError{Resource: "shipment"}
}

func (m *memStore) List(_ context.Context, f repositories.ShipmentFilter, p domain.Pagination) ([]models.Shipment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Shipment{}
	for _, s := range m.shipments {
		if f.ClientID > 0 && s.ClientID != f.ClientID {
			continue
		}
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shipments[id]; !ok {
		return domain.NotFoundError{Resource: "shipment"}
	}
	delete(m.shipments, id)
	delete(m.payments, id)
	delete(m.updates, id)
	return nil
}

func (m *memStore) Mutate(_ context.Context, id, expectedVersion int64, fn repositories.MutateFunc) (models.Shipment, models.ShipmentUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.shipments[id]
	if !ok {
		return models.Shipment{}, models.ShipmentUpdate{}, domain.NotFoundError{Resource: "shipment"}
	}
	if expectedVersion > 0 && expectedVersion != current.Version {
		return models.Shipment{}, models.ShipmentUpdate{}, domain.ConflictError{Resource: "shipment", Msg: "stale version"}
	}
	next := current
	upd, err := fn(&next, m.ledgerSum(id))
	if err != nil {
		return models.Shipment{}, models.ShipmentUpdate{}, err
	}
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	upd.ShipmentID = id
	upd.ID = m.id()
	upd.CreatedAt = next.UpdatedAt
	m.shipments[id] = next
	m.updates[id] = append(m.updates[id], upd)
	m.mutations++
	return next, upd, nil
}

func (m *memStore) ListUpdates(_ context.Context, id int64, p domain.Pagination) ([]models.ShipmentUpdate, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append([]models.ShipmentUpdate(nil), m.updates[id]...)
	return list, len(list), nil
}

func (m *memStore) ledgerSum(id int64) decimal.Decimal {
	return models.SumPayments(m.payments[id])
}

// paymentsView exposes the payment side of memStore.
type paymentsView struct{ *memStore }

func (p paymentsView) Append(_ context.Context, shipmentID int64, build repositories.AppendFunc) (models.PaymentRecord, models.Shipment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	current, ok := p.shipments[shipmentID]
	if !ok {
		return models.PaymentRecord{}, models.Shipment{}, domain.NotFoundError{Resource: "shipment"}
	}
	rec, status, err := build(current, p.ledgerSum(shipmentID))
	if err != nil {
		return models.PaymentRecord{}, models.Shipment{}, err
	}
	rec.ID = p.id()
	rec.ShipmentID = shipmentID
	rec.CreatedAt = time.Now().UTC()
	p.payments[shipmentID] = append(p.payments[shipmentID], rec)
	if status != current.PaymentStatus {
		current.PaymentStatus = status
		current.Version++
		p.shipments[shipmentID] = current
	}
	return rec, current, nil
}

func (p paymentsView) ListByShipment(_ context.Context, shipmentID int64) ([]models.PaymentRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.PaymentRecord(nil), p.payments[shipmentID]...), nil
}

type memClients map[int64]models.Client

func (m memClients) GetByID(_ context.Context, id int64) (models.Client, error) {
	c, ok := m[id]
	if !ok {
		return models.Client{}, domain.NotFoundError{Resource: "client"}
	}
	return c, nil
}

var (
	adminActor    = domain.RequestContext{UserID: 1, Role: domain.RoleAdmin}
	customerActor = domain.RequestContext{UserID: 2, Role: domain.RoleCustomer, ClientID: 7}
)

func testServices(mode string) (ShipmentService, PaymentService, *memStore) {
	store := newMemStore()
	clients := memClients{7: {ID: 7, Name: "Acme Trading", Email: "ops@acme.test"}}
	ss := ShipmentService{Shipments: store, Clients: clients}
	if mode != "" {
		ss.PaymentMode = config.PaymentStatusMode(mode)
	}
	ps := PaymentService{Payments: paymentsView{store}, Shipments: store}
	return ss, ps, store
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validShipmentInput() CreateShipmentInput {
	return CreateShipmentInput{
		ClientID:          7,
		OriginPort:        "Shanghai",
		DestinationPort:   "Misurata",
		Weight:            1200,
		Value:             dec("15000"),
		Currency:          "USD",
		TotalCost:         dec("1000"),
		AdditionalCharges: dec("0"),
		ContainerNumber:   "msku1234567",
	}
}
