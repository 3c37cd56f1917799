package models

import "time"

type UpdateType string

const (
	UpdateStatus           UpdateType = "status"
	UpdatePaymentStatus    UpdateType = "payment_status"
	UpdateLocation         UpdateType = "location"
	UpdateWarehouseArrival UpdateType = "warehouse_arrival"
)

// ShipmentUpdate is one row of the append-only update history.
type ShipmentUpdate struct {
	ID            int64      `json:"id"`
	ShipmentID    int64      `json:"shipmentId"`
	UpdateType    UpdateType `json:"updateType"`
	PreviousValue string     `json:"previousValue"`
	NewValue      string     `json:"newValue"`
	Location      string     `json:"location,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	ActorID       int64      `json:"actorId"`
	ActorRole     string     `json:"actorRole"`
	CreatedAt     time.Time  `json:"createdAt"`
}
