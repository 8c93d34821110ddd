package postgresql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Host:     "db.internal",
		Port:     5433,
		User:     "booking",
		Password: "secret",
		Database: "bookings",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=db.internal port=5433 user=booking password=secret dbname=bookings sslmode=disable", cfg.DSN())
}
