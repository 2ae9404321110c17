package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02T15:04", value)
	require.NoError(t, err)
	return &parsed
}

func TestDeriveShipAndOnline(t *testing.T) {
	r := Record{
		OrderID:    "ORD-1",
		Warehouse:  "WH-A",
		AuditTime:  ts(t, "2024-01-01T00:00"),
		ShipTime:   ts(t, "2024-01-01T20:00"),
		OnlineTime: ts(t, "2024-01-03T10:00"),
	}
	Derive(&r, DefaultWindows())

	require.NotNil(t, r.HoursToShip)
	assert.InDelta(t, 20, *r.HoursToShip, 1e-9)
	assert.True(t, r.Is24hShip)

	require.NotNil(t, r.HoursToOnline)
	assert.InDelta(t, 58, *r.HoursToOnline, 1e-9)
	assert.False(t, r.Is48hOnline, "58h is outside the 48h window")

	require.NotNil(t, r.HoursHandover)
	assert.InDelta(t, 38, *r.HoursHandover, 1e-9)

	assert.Equal(t, "WH", r.Provider)
}

func TestDeriveZeroOrNegativeDurationNeverCompliant(t *testing.T) {
	// Exactly zero: audit and ship at the same instant.
	r := Record{
		AuditTime: ts(t, "2024-01-01T08:00"),
		ShipTime:  ts(t, "2024-01-01T08:00"),
	}
	Derive(&r, DefaultWindows())
	require.NotNil(t, r.HoursToShip)
	assert.Zero(t, *r.HoursToShip)
	assert.False(t, r.Is24hShip)

	// Negative: ship recorded before audit (clock skew).
	r = Record{
		AuditTime: ts(t, "2024-01-01T08:00"),
		ShipTime:  ts(t, "2024-01-01T05:00"),
	}
	Derive(&r, DefaultWindows())
	require.NotNil(t, r.HoursToShip)
	assert.InDelta(t, -3, *r.HoursToShip, 1e-9)
	assert.False(t, r.Is24hShip)
}

func TestDeriveMissingTimestampsPropagateNil(t *testing.T) {
	r := Record{AuditTime: ts(t, "2024-01-01T00:00")}
	Derive(&r, DefaultWindows())

	assert.Nil(t, r.HoursToShip)
	assert.Nil(t, r.HoursToOnline)
	assert.Nil(t, r.HoursHandover)
	assert.Nil(t, r.DaysTransit)
	assert.False(t, r.Is24hShip)
	assert.False(t, r.Is48hOnline)
}

func TestDeriveIdempotent(t *testing.T) {
	r := Record{
		OrderID:       "ORD-2",
		Warehouse:     "4PX-US-West",
		AuditTime:     ts(t, "2024-01-01T00:00"),
		ShipTime:      ts(t, "2024-01-01T20:00"),
		OnlineTime:    ts(t, "2024-01-03T10:00"),
		DeliveredTime: ts(t, "2024-01-08T10:00"),
	}
	Derive(&r, DefaultWindows())
	first := r
	Derive(&r, DefaultWindows())

	assert.Equal(t, *first.HoursToShip, *r.HoursToShip)
	assert.Equal(t, *first.HoursToOnline, *r.HoursToOnline)
	assert.Equal(t, *first.HoursHandover, *r.HoursHandover)
	assert.Equal(t, *first.DaysTransit, *r.DaysTransit)
	assert.Equal(t, first.Is24hShip, r.Is24hShip)
	assert.Equal(t, first.Is48hOnline, r.Is48hOnline)
	assert.Equal(t, first.Provider, r.Provider)
}

func TestProviderOf(t *testing.T) {
	assert.Equal(t, "4PX", ProviderOf("4PX-US-West"))
	assert.Equal(t, "WH", ProviderOf("WH-A"))
	assert.Equal(t, "Yodel", ProviderOf("Yodel"))
	assert.Equal(t, "", ProviderOf(""))
}

func TestDeriveTransitDays(t *testing.T) {
	r := Record{
		ShipTime:      ts(t, "2024-01-01T00:00"),
		DeliveredTime: ts(t, "2024-01-06T12:00"),
	}
	Derive(&r, DefaultWindows())
	require.NotNil(t, r.DaysTransit)
	assert.InDelta(t, 5.5, *r.DaysTransit, 1e-9)
}
