package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// PaymentStatusMode selects how manual payment-status changes are checked.
type PaymentStatusMode string

const (
	// PaymentModeStrict rejects manual values that contradict the ledger unless overridden.
	PaymentModeStrict PaymentStatusMode = "strict"
	// PaymentModeManual stores any valid value and only flags divergence.
	PaymentModeManual PaymentStatusMode = "manual"
)

type Env struct {
	AppAddr string
	GinMode string

	DBUser     string
	DBPassword string
	DBHost     string
	DBName     string

	JWTSecret string
	JWTTTL    time.Duration

	AdminName     string
	AdminEmail    string
	AdminPassword string

	CORSAllowedOrigins []string

	ShipsGoBaseURL  string
	ShipsGoAPIKey   string
	ShipsGoTimeout  time.Duration
	ShipsGoMockMode bool

	PaymentStatusMode PaymentStatusMode
}

func LoadEnv() Env {
	env := Env{
		AppAddr:    getenv("APP_ADDR", ":8080"),
		GinMode:    getenv("GIN_MODE", ""),
		DBUser:     getenv("DB_USER", "root"),
		DBPassword: getenv("DB_PASSWORD", ""),
		DBHost:     getenv("DB_HOST", "127.0.0.1:3306"),
		DBName:     getenv("DB_NAME", "shiptrack"),
		JWTSecret:  getenv("JWT_SECRET", "change-me-in-production"),
		JWTTTL:     time.Duration(getint("JWT_TTL_HOURS", 24)) * time.Hour,

		AdminName:     getenv("ADMIN_NAME", "Administrator"),
		AdminEmail:    getenv("ADMIN_EMAIL", ""),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		CORSAllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),

		ShipsGoBaseURL:  strings.TrimRight(getenv("SHIPSGO_BASE_URL", ""), "/"),
		ShipsGoAPIKey:   getenv("SHIPSGO_API_KEY", ""),
		ShipsGoTimeout:  time.Duration(getint("SHIPSGO_TIMEOUT_MS", 5000)) * time.Millisecond,
		ShipsGoMockMode: getbool("SHIPSGO_MOCK_MODE", false),

		PaymentStatusMode: PaymentModeStrict,
	}
	if strings.EqualFold(getenv("PAYMENT_STATUS_MODE", ""), string(PaymentModeManual)) {
		env.PaymentStatusMode = PaymentModeManual
	}
	return env
}

// ShipsGoConfigured is false when no provider endpoint or key is set; the
// tracking service then serves mock data.
func (e Env) ShipsGoConfigured() bool {
	return e.ShipsGoBaseURL != "" && e.ShipsGoAPIKey != ""
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getint(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getbool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func splitList(raw string) []string {
	out := []string{}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
