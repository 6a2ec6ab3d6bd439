// Package config loads runtime configuration from environment
// variables. Required variables abort startup with a fatal log;
// circulation knobs fall back to the library's standard policy.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values. Each field maps to a
// single environment variable.
type Config struct {
	Env            string // application environment (dev/test/prod)
	Port           string // HTTP port to listen on
	DBUser         string
	DBPass         string // empty allowed
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string
	AccessTTLMin   int // access token time-to-live in minutes
	RefreshTTLDays int // refresh token time-to-live in days
	BcryptCost     int

	// Circulation policy. Optional; defaults match the paper
	// rulebook the library ran on before this system.
	DailyFineCents  int // fine accrued per late day
	StudentLimit    int // max simultaneous student loans
	StudentLoanDays int
	StaffLoanDays   int
	GraceDays       int // overdue days tolerated during clearance
}

// Load reads configuration from the environment. Missing required
// variables are fatal.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		DailyFineCents:  envInt("FINE_DAILY_RATE_CENTS", 500),
		StudentLimit:    envInt("STUDENT_BORROW_LIMIT", 3),
		StudentLoanDays: envInt("STUDENT_LOAN_DAYS", 14),
		StaffLoanDays:   envInt("STAFF_LOAN_DAYS", 30),
		GraceDays:       envInt("CLEARANCE_GRACE_DAYS", 7),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is must() with integer conversion.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
