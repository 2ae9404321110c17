package dataset

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/warehouse-sla-monitor/internal/sla"
)

const sampleCSV = `Order_ID,Warehouse,Carrier,Country,Province_State,Time_Audit,Time_Shipped,Time_Online,Time_Delivered
A-1,4PX-US-West,FedEx,US,CA,2024-01-01 00:00:00,2024-01-01 20:00:00,2024-01-03 10:00:00,2024-01-08 00:00:00
A-2,WH-B,UPS,DE,,2024-01-02 08:00:00,not-a-date,,
A-3,WH-B,UPS,DE,,2024-01-05 09:30:00,2024-01-05 18:00:00,2024-01-06 02:00:00,
`

func TestLoadCSV(t *testing.T) {
	ds, err := LoadCSV(strings.NewReader(sampleCSV), "sample.csv", sla.DefaultWindows())
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Rows)
	assert.NotEmpty(t, ds.LoadID)
	assert.True(t, ds.Availability.Audit)
	assert.True(t, ds.Availability.Delivered)
	assert.True(t, ds.Availability.Carrier)

	r := ds.Records[0]
	assert.Equal(t, "A-1", r.OrderID)
	assert.Equal(t, "4PX", r.Provider)
	require.NotNil(t, r.HoursToShip)
	assert.InDelta(t, 20, *r.HoursToShip, 1e-9)
	assert.True(t, r.Is24hShip)
	require.NotNil(t, r.DaysTransit)
	assert.InDelta(t, 6+4.0/24, *r.DaysTransit, 1e-9)

	// Malformed timestamp degrades to nil, never errors.
	r = ds.Records[1]
	assert.Nil(t, r.ShipTime)
	assert.Nil(t, r.HoursToShip)
	assert.False(t, r.Is24hShip)

	// Audit-date bounds cover the whole set.
	require.NotNil(t, ds.MinAuditTime)
	require.NotNil(t, ds.MaxAuditTime)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), *ds.MinAuditTime)
	assert.Equal(t, time.Date(2024, time.January, 5, 9, 30, 0, 0, time.UTC), *ds.MaxAuditTime)
}

func TestLoadCSVHeaderAliases(t *testing.T) {
	csv := "order_no,wh,audit_time,shipped_at\n1,WH-A,2024-01-01 10:00:00,2024-01-01 12:00:00\n"
	ds, err := LoadCSV(strings.NewReader(csv), "aliased.csv", sla.DefaultWindows())
	require.NoError(t, err)

	assert.True(t, ds.Availability.OrderID)
	assert.True(t, ds.Availability.Warehouse)
	assert.True(t, ds.Availability.Audit)
	assert.True(t, ds.Availability.Shipped)
	assert.False(t, ds.Availability.Online)
	assert.False(t, ds.Availability.Delivered)

	require.Len(t, ds.Records, 1)
	assert.Equal(t, "WH-A", ds.Records[0].Warehouse)
	assert.True(t, ds.Records[0].Is24hShip)
}

func TestLoadCSVMissingColumnsDisableMetrics(t *testing.T) {
	csv := "Order_ID,Warehouse,Time_Audit,Time_Shipped\n1,WH-A,2024-01-01 10:00:00,2024-01-01 12:00:00\n"
	ds, err := LoadCSV(strings.NewReader(csv), "partial.csv", sla.DefaultWindows())
	require.NoError(t, err)

	ms := sla.NewMetricSet(sla.DefaultWindows(), sla.DefaultThresholds())
	names := []string{}
	for _, m := range ms.Computable(ds.Availability) {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"ship_24h"}, names)
}

func TestLoadCSVEmptyAndUnusable(t *testing.T) {
	_, err := LoadCSV(strings.NewReader(""), "empty.csv", sla.DefaultWindows())
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = LoadCSV(strings.NewReader("foo,bar\n1,2\n"), "noise.csv", sla.DefaultWindows())
	assert.ErrorIs(t, err, ErrNoUsableColumns)
}

func TestLoadCSVShortRows(t *testing.T) {
	csv := "Order_ID,Warehouse,Time_Audit,Time_Shipped\n1,WH-A\n"
	ds, err := LoadCSV(strings.NewReader(csv), "short.csv", sla.DefaultWindows())
	require.NoError(t, err)
	require.Len(t, ds.Records, 1)
	assert.Nil(t, ds.Records[0].AuditTime)
}
