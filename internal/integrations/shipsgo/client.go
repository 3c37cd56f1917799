package shipsgo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"shiptrack/internal/domain"
	"shiptrack/internal/domain/models"
	"shiptrack/internal/utils"
)

const ProviderName = "shipsgo"

// Client talks to the ShipsGo tracking API. Timeouts come from the caller's context.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: httpClient,
	}
}

func (c *Client) Name() string { return ProviderName }

type envelope struct {
	Success *bool     `json:"success"`
	Message string    `json:"message"`
	Data    *wireData `json:"data"`
}

type wireData struct {
	ContainerNumber string          `json:"container_number"`
	BLNumber        string          `json:"bl_number"`
	BookingNumber   string          `json:"booking_number"`
	VesselName      string          `json:"vessel_name"`
	VesselIMO       json.RawMessage `json:"vessel_imo"`
	VesselMMSI      json.RawMessage `json:"vessel_mmsi"`
	Status          string          `json:"status"`
	PortOfLoading   string          `json:"port_of_loading"`
	PortOfDischarge string          `json:"port_of_discharge"`
	Milestones      []wireMilestone `json:"milestones"`
	Location        *wireLocation   `json:"location"`
	ETA             string          `json:"eta"`
}

type wireMilestone struct {
	Event       string `json:"event"`
	Location    string `json:"location"`
	Date        string `json:"date"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

type wireLocation struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Timestamp string  `json:"timestamp"`
}

// Track looks a single identifier up. Non-2xx answers and unreadable bodies
// come back as domain.ProviderError.
func (c *Client) Track(ctx context.Context, q models.TrackingQuery) (models.TrackingData, models.RateLimit, error) {
	if c.baseURL == "" {
		return models.TrackingData{}, models.RateLimit{}, domain.ProviderError{Provider: ProviderName, Err: fmt.Errorf("base url not configured")}
	}
	params := url.Values{}
	params.Set(string(q.Type), q.Value)
	endpoint := c.baseURL + "/track?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.TrackingData{}, models.RateLimit{}, domain.ProviderError{Provider: ProviderName, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.TrackingData{}, models.RateLimit{}, domain.ProviderError{Provider: ProviderName, Err: err}
	}
	defer resp.Body.Close()

	rl := readRateLimit(resp.Header)
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return models.TrackingData{}, rl, domain.ProviderError{Provider: ProviderName, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.TrackingData{}, rl, domain.ProviderError{
			Provider: ProviderName,
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return models.TrackingData{}, rl, domain.ProviderError{Provider: ProviderName, Err: fmt.Errorf("decode: %w", err)}
	}
	if env.Success != nil && !*env.Success {
		return models.TrackingData{}, rl, domain.ProviderError{Provider: ProviderName, Err: fmt.Errorf("%s", utils.Fallback(env.Message, "lookup failed"))}
	}
	if env.Data == nil {
		return models.TrackingData{}, rl, domain.ProviderError{Provider: ProviderName, Err: fmt.Errorf("empty payload")}
	}
	return env.Data.normalize(ctx), rl, nil
}

// normalize maps the wire payload onto TrackingData. Milestones without a
// readable date are dropped so they cannot sort ahead of dated events.
func (w wireData) normalize(ctx context.Context) models.TrackingData {
	d := models.TrackingData{
		ContainerNumber: models.NormalizeIdentifier(w.ContainerNumber),
		BLNumber:        strings.TrimSpace(w.BLNumber),
		BookingNumber:   strings.TrimSpace(w.BookingNumber),
		VesselName:      strings.TrimSpace(w.VesselName),
		VesselIMO:       rawString(w.VesselIMO),
		VesselMMSI:      rawString(w.VesselMMSI),
		Status:          strings.TrimSpace(w.Status),
		PortOfLoading:   strings.TrimSpace(w.PortOfLoading),
		PortOfDischarge: strings.TrimSpace(w.PortOfDischarge),
		Milestones:      make([]models.Milestone, 0, len(w.Milestones)),
	}
	for _, m := range w.Milestones {
		date, err := utils.ParseFlexibleTime(m.Date)
		if err != nil {
			utils.LogEvent(domain.RequestIDFrom(ctx), "tracking", "milestone_dropped",
				fmt.Sprintf("provider=%s event=%q err=%v", ProviderName, strings.TrimSpace(m.Event), err))
			continue
		}
		d.Milestones = append(d.Milestones, models.Milestone{
			Event:       strings.TrimSpace(m.Event),
			Location:    strings.TrimSpace(m.Location),
			Date:        date,
			Status:      strings.TrimSpace(m.Status),
			Description: strings.TrimSpace(m.Description),
		})
	}
	if w.Location != nil {
		ts, _ := utils.ParseFlexibleTime(w.Location.Timestamp)
		d.Location = &models.GeoPoint{Lat: w.Location.Lat, Lon: w.Location.Lon, Timestamp: ts}
	}
	if eta, err := utils.ParseFlexibleTime(w.ETA); err == nil && !eta.IsZero() {
		d.ETA = &eta
	}
	d.SortMilestones()
	return d
}

// rawString accepts IMO/MMSI sent either as a JSON string or a number.
func rawString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.TrimSpace(str)
	}
	return s
}

func readRateLimit(h http.Header) models.RateLimit {
	limit, _ := strconv.Atoi(h.Get("X-RateLimit-Limit"))
	remaining, _ := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	return models.RateLimit{Limit: limit, Remaining: remaining}
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
