package dataset

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/warehouse-sla-monitor/internal/sla"
)

var eventColumns = []string{
	"order_id", "warehouse", "carrier", "country", "province_state",
	"time_audit", "time_shipped", "time_online", "time_delivered",
}

func TestPostgresSourceLoad(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	audit := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	ship := audit.Add(20 * time.Hour)
	online := audit.Add(58 * time.Hour)

	rows := sqlmock.NewRows(eventColumns).
		AddRow("A-1", "4PX-US-West", "FedEx", "US", "CA", audit, ship, online, nil).
		AddRow("A-2", "WH-B", nil, "DE", nil, audit.Add(24*time.Hour), nil, nil, nil)

	mock.ExpectQuery("SELECT order_id, warehouse").WillReturnRows(rows)

	src := NewPostgresSource(db, "shipment_events")
	ds, err := src.Load(context.Background(), sla.DefaultWindows())
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Rows)
	assert.Equal(t, "shipment_events", ds.Name)
	assert.NotEmpty(t, ds.ID)
	assert.True(t, ds.Availability.Delivered)

	r := ds.Records[0]
	assert.Equal(t, "4PX", r.Provider)
	assert.True(t, r.Is24hShip)
	assert.False(t, r.Is48hOnline)

	// NULL columns degrade to empty/nil fields.
	r = ds.Records[1]
	assert.Equal(t, "", r.Carrier)
	assert.Nil(t, r.ShipTime)
	assert.Nil(t, r.HoursToShip)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSourceContentAddressedID(t *testing.T) {
	load := func(t *testing.T, extra bool) string {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		audit := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows(eventColumns).
			AddRow("A-1", "WH-A", "FedEx", "US", nil, audit, nil, nil, nil)
		if extra {
			rows.AddRow("A-2", "WH-A", "FedEx", "US", nil, audit, nil, nil, nil)
		}
		mock.ExpectQuery("SELECT order_id, warehouse").WillReturnRows(rows)

		ds, err := NewPostgresSource(db, "shipment_events").Load(context.Background(), sla.DefaultWindows())
		require.NoError(t, err)
		return ds.ID
	}

	same1 := load(t, false)
	same2 := load(t, false)
	different := load(t, true)

	assert.Equal(t, same1, same2, "unchanged table resolves to the same dataset ID")
	assert.NotEqual(t, same1, different)
}

func TestPostgresSourceQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT order_id, warehouse").WillReturnError(sql.ErrConnDone)

	_, err = NewPostgresSource(db, "shipment_events").Load(context.Background(), sla.DefaultWindows())
	assert.Error(t, err)
}
