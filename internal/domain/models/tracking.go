package models

import (
	"sort"
	"strings"
	"time"

	"shiptrack/internal/domain"
)

// IdentifierType selects which provider lookup key is used.
type IdentifierType string

const (
	IdentifierContainer IdentifierType = "container"
	IdentifierBL        IdentifierType = "bl"
	IdentifierBooking   IdentifierType = "booking"
)

type TrackingQuery struct {
	Type  IdentifierType `json:"type"`
	Value string         `json:"value"`
}

// Validate normalizes the value and checks container numbers strictly.
func (q TrackingQuery) Validate() (TrackingQuery, error) {
	q.Value = NormalizeIdentifier(q.Value)
	switch q.Type {
	case IdentifierContainer:
		if err := ValidateContainerNumber(q.Value); err != nil {
			return q, err
		}
	case IdentifierBL, IdentifierBooking:
		if q.Value == "" {
			return q, domain.ValidationError{Field: string(q.Type), Msg: "required"}
		}
	default:
		return q, domain.ValidationError{Field: "identifierType", Msg: "must be container, bl or booking"}
	}
	return q, nil
}

// FirstIdentifier picks container, then bl, then booking; the first non-empty wins.
func FirstIdentifier(container, bl, booking string) (TrackingQuery, bool) {
	candidates := []TrackingQuery{
		{Type: IdentifierContainer, Value: container},
		{Type: IdentifierBL, Value: bl},
		{Type: IdentifierBooking, Value: booking},
	}
	for _, c := range candidates {
		if strings.TrimSpace(c.Value) != "" {
			return c, true
		}
	}
	return TrackingQuery{}, false
}

type Milestone struct {
	Event       string    `json:"event"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
}

type GeoPoint struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Timestamp time.Time `json:"timestamp"`
}

// TrackingData is the normalized provider payload.
type TrackingData struct {
	ContainerNumber string      `json:"container_number"`
	BLNumber        string      `json:"bl_number,omitempty"`
	BookingNumber   string      `json:"booking_number,omitempty"`
	VesselName      string      `json:"vessel_name"`
	VesselIMO       string      `json:"vessel_imo,omitempty"`
	VesselMMSI      string      `json:"vessel_mmsi,omitempty"`
	Status          string      `json:"status"`
	PortOfLoading   string      `json:"port_of_loading,omitempty"`
	PortOfDischarge string      `json:"port_of_discharge,omitempty"`
	Milestones      []Milestone `json:"milestones"`
	Location        *GeoPoint   `json:"location,omitempty"`
	ETA             *time.Time  `json:"eta,omitempty"`
}

// SortMilestones orders milestones oldest first; equal dates keep provider order.
func (d *TrackingData) SortMilestones() {
	sort.SliceStable(d.Milestones, func(i, j int) bool {
		return d.Milestones[i].Date.Before(d.Milestones[j].Date)
	})
}

// LatestMilestone returns the most recent milestone after SortMilestones.
func (d TrackingData) LatestMilestone() (Milestone, bool) {
	if len(d.Milestones) == 0 {
		return Milestone{}, false
	}
	return d.Milestones[len(d.Milestones)-1], true
}

// TrackingResult is what tracking endpoints return; failures use Success=false and Message.
type TrackingResult struct {
	Success         bool           `json:"success"`
	Data            *TrackingData  `json:"data,omitempty"`
	Message         string         `json:"message,omitempty"`
	Mock            bool           `json:"mock,omitempty"`
	Skipped         bool           `json:"skipped,omitempty"`
	Query           *TrackingQuery `json:"query,omitempty"`
	SuggestedStatus ShipmentStatus `json:"suggestedStatus,omitempty"`
}

// Reconciliation is the merged view of a stored shipment and its live tracking.
type Reconciliation struct {
	Shipment Shipment       `json:"shipment"`
	Tracking TrackingResult `json:"tracking"`
	// StatusMatches is false when the suggestion differs from the stored status.
	StatusMatches bool `json:"statusMatches"`
}

type RateLimit struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

type ProviderHealth struct {
	Status        string     `json:"status"`
	Provider      string     `json:"provider"`
	MockMode      bool       `json:"mockMode"`
	Configured    bool       `json:"configured"`
	RateLimit     RateLimit  `json:"rateLimit"`
	TimeoutMs     int64      `json:"timeoutMs"`
	LastError     string     `json:"lastError,omitempty"`
	LastCheckedAt *time.Time `json:"lastCheckedAt,omitempty"`
}

type statusRule struct {
	keywords []string
	status   ShipmentStatus
}

// milestoneRules maps provider wording to stored statuses. Order matters: the
// first rule whose keyword appears in the milestone text wins.
var milestoneRules = []statusRule{
	{keywords: []string{"delivered", "empty return", "empty returned"}, status: StatusDelivered},
	{keywords: []string{"delay", "rolled over", "rollover"}, status: StatusDelayed},
	{keywords: []string{"customs", "clearance"}, status: StatusCustomsClearance},
	{keywords: []string{"discharg", "arrived", "arrival", "gate out"}, status: StatusAtPort},
	{keywords: []string{"departed", "departure", "sailing", "in transit", "transshipment", "on board"}, status: StatusInTransit},
	{keywords: []string{"loaded", "gate in", "received at origin"}, status: StatusShipped},
	{keywords: []string{"booking", "booked", "empty to shipper", "pick up", "pickup"}, status: StatusProcessing},
}

// SuggestStatus proposes a shipment status from the latest milestone, falling
// back to the provider's overall status. It never changes stored data.
func SuggestStatus(d TrackingData) (ShipmentStatus, bool) {
	if m, ok := d.LatestMilestone(); ok {
		if s, ok := matchStatus(m.Event + " " + m.Status + " " + m.Description); ok {
			return s, true
		}
	}
	return matchStatus(strings.ReplaceAll(d.Status, "_", " "))
}

func matchStatus(text string) (ShipmentStatus, bool) {
	text = strings.ToLower(text)
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	for _, r := range milestoneRules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.status, true
			}
		}
	}
	return "", false
}
