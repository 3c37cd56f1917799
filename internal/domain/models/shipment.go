package models

import (
	"regexp"
	"strings"
	"time"

	"shiptrack/internal/domain"

	"github.com/shopspring/decimal"
)

func init() {
	// The admin frontend reads amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

var (
	containerNumberRe = regexp.MustCompile(`^[A-Z]{4}[0-9]{7}$`)
	trackingNumberRe  = regexp.MustCompile(`^GH[A-Z0-9]+$`)
)

// Shipment is the stored shipment row.
type Shipment struct {
	ID             int64  `json:"id"`
	TrackingNumber string `json:"trackingNumber"`
	ClientID       int64  `json:"clientId"`

	OriginPort      string `json:"originPort"`
	DestinationPort string `json:"destinationPort"`

	Weight   float64         `json:"weight"`
	Volume   *float64        `json:"volume,omitempty"`
	Value    decimal.Decimal `json:"value"`
	Currency Currency        `json:"currency"`

	TotalCost         decimal.Decimal `json:"totalCost"`
	AdditionalCharges decimal.Decimal `json:"additionalCharges"`
	// AdminAmountPaid is the legacy lump-sum paid field; it counts toward totalPaid.
	AdminAmountPaid decimal.Decimal `json:"adminAmountPaid"`

	Status        ShipmentStatus `json:"status"`
	PaymentStatus PaymentStatus  `json:"paymentStatus"`

	ContainerNumber string `json:"containerNumber,omitempty"`
	BLNumber        string `json:"blNumber,omitempty"`
	BookingNumber   string `json:"bookingNumber,omitempty"`
	EnableTracking  bool   `json:"enableTracking"`
	VesselName      string `json:"vesselName,omitempty"`
	VesselMMSI      string `json:"vesselMMSI,omitempty"`
	VesselIMO       string `json:"vesselIMO,omitempty"`

	CurrentLocation    string     `json:"currentLocation,omitempty"`
	WarehouseLocation  string     `json:"warehouseLocation,omitempty"`
	WarehouseCondition string     `json:"warehouseCondition,omitempty"`
	DeliveredAt        *time.Time `json:"deliveredAt,omitempty"`
	Notes              string     `json:"notes,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StatusLabel is used by the PDF statement and the public tracking view.
func (s Shipment) StatusLabel() string { return s.Status.Label() }

// HasTrackingIdentifier reports whether any provider lookup key is present.
func (s Shipment) HasTrackingIdentifier() bool {
	return s.ContainerNumber != "" || s.BLNumber != "" || s.BookingNumber != ""
}

// PublicShipment is what the unauthenticated tracking page may see.
type PublicShipment struct {
	TrackingNumber  string         `json:"trackingNumber"`
	OriginPort      string         `json:"originPort"`
	DestinationPort string         `json:"destinationPort"`
	Status          ShipmentStatus `json:"status"`
	StatusLabel     string         `json:"statusLabel"`
	CurrentLocation string         `json:"currentLocation,omitempty"`
	ContainerNumber string         `json:"containerNumber,omitempty"`
	VesselName      string         `json:"vesselName,omitempty"`
	DeliveredAt     *time.Time     `json:"deliveredAt,omitempty"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func (s Shipment) Public() PublicShipment {
	return PublicShipment{
		TrackingNumber:  s.TrackingNumber,
		OriginPort:      s.OriginPort,
		DestinationPort: s.DestinationPort,
		Status:          s.Status,
		StatusLabel:     s.Status.Label(),
		CurrentLocation: s.CurrentLocation,
		ContainerNumber: s.ContainerNumber,
		VesselName:      s.VesselName,
		DeliveredAt:     s.DeliveredAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// NormalizeIdentifier trims and upper-cases container/BL/booking/tracking codes.
func NormalizeIdentifier(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidateContainerNumber requires 4 uppercase letters followed by 7 digits.
func ValidateContainerNumber(v string) error {
	if !containerNumberRe.MatchString(v) {
		return domain.ValidationError{Field: "containerNumber", Msg: "must be 4 uppercase letters followed by 7 digits"}
	}
	return nil
}

// ValidateTrackingNumber requires the GH prefix followed by uppercase alphanumerics.
func ValidateTrackingNumber(v string) error {
	if !trackingNumberRe.MatchString(v) {
		return domain.ValidationError{Field: "trackingNumber", Msg: "must be GH followed by uppercase letters or digits"}
	}
	return nil
}
