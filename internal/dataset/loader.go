package dataset

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/warehouse-sla-monitor/internal/pkg/logger"
	"github.com/ignite/warehouse-sla-monitor/internal/sla"
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrNoUsableColumns = errors.New("no recognized columns in header")
)

// Canonical column names and their header aliases. Headers are
// normalized (lowercased, separators collapsed to underscores) before
// matching, so "Time_Audit", "time-audit" and "Audit Time" all resolve.
var headerAliases = map[string][]string{
	"order_id":       {"order_id", "orderid", "order", "order_no", "order_number"},
	"warehouse":      {"warehouse", "warehouse_code", "wh"},
	"carrier":        {"carrier", "carrier_name", "shipping_carrier"},
	"country":        {"country", "country_code", "destination_country"},
	"province_state": {"province_state", "province", "state", "state_province"},
	"time_audit":     {"time_audit", "audit_time", "audit", "audited_at"},
	"time_shipped":   {"time_shipped", "ship_time", "shipped_at", "shipped"},
	"time_online":    {"time_online", "online_time", "online_at", "online"},
	"time_delivered": {"time_delivered", "delivered_time", "delivered_at", "delivered"},
}

// Timestamp layouts tried in order. Values that match none degrade to
// nil rather than failing the row or the upload.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// Dataset is one loaded, derived, read-only record set.
type Dataset struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	LoadID       string           `json:"load_id"`
	Rows         int              `json:"rows"`
	Availability sla.Availability `json:"availability"`
	MinAuditTime *time.Time       `json:"min_audit_time,omitempty"`
	MaxAuditTime *time.Time       `json:"max_audit_time,omitempty"`
	LoadedAt     time.Time        `json:"loaded_at"`

	Records []sla.Record `json:"-"`
}

// columnMap maps canonical column names to their index in the CSV row,
// or -1 when the column is absent.
type columnMap map[string]int

func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.ToLower(h))
	h = strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(h)
	return h
}

func mapHeaders(headers []string) columnMap {
	byAlias := make(map[string]string)
	for canonical, aliases := range headerAliases {
		for _, a := range aliases {
			byAlias[a] = canonical
		}
	}

	cols := make(columnMap, len(headerAliases))
	for canonical := range headerAliases {
		cols[canonical] = -1
	}
	for i, h := range headers {
		if canonical, ok := byAlias[normalizeHeader(h)]; ok && cols[canonical] == -1 {
			cols[canonical] = i
		}
	}
	return cols
}

func (c columnMap) availability() sla.Availability {
	return sla.Availability{
		OrderID:       c["order_id"] >= 0,
		Warehouse:     c["warehouse"] >= 0,
		Carrier:       c["carrier"] >= 0,
		Country:       c["country"] >= 0,
		ProvinceState: c["province_state"] >= 0,
		Audit:         c["time_audit"] >= 0,
		Shipped:       c["time_shipped"] >= 0,
		Online:        c["time_online"] >= 0,
		Delivered:     c["time_delivered"] >= 0,
	}
}

func (c columnMap) str(row []string, name string) string {
	i := c[name]
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c columnMap) timestamp(row []string, name string) *time.Time {
	raw := c.str(row, name)
	if raw == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// LoadCSV streams a CSV upload into a derived Dataset. Rows are read one
// at a time; malformed timestamps become nil fields, short rows are
// padded by the string accessors, and only a header that matches no
// known column at all rejects the file.
func LoadCSV(r io.Reader, name string, w sla.Windows) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, err
	}

	cols := mapHeaders(headers)
	av := cols.availability()
	if av == (sla.Availability{}) {
		return nil, ErrNoUsableColumns
	}

	ds := &Dataset{
		Name:         name,
		LoadID:       uuid.NewString(),
		Availability: av,
		LoadedAt:     time.Now().UTC(),
	}

	var badRows int
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A single unparseable line degrades to a skipped row, not a
			// failed upload.
			badRows++
			continue
		}

		rec := sla.Record{
			OrderID:       cols.str(row, "order_id"),
			Warehouse:     cols.str(row, "warehouse"),
			Carrier:       cols.str(row, "carrier"),
			Country:       cols.str(row, "country"),
			ProvinceState: cols.str(row, "province_state"),
			AuditTime:     cols.timestamp(row, "time_audit"),
			ShipTime:      cols.timestamp(row, "time_shipped"),
			OnlineTime:    cols.timestamp(row, "time_online"),
			DeliveredTime: cols.timestamp(row, "time_delivered"),
		}
		sla.Derive(&rec, w)
		ds.Records = append(ds.Records, rec)

		if rec.AuditTime != nil {
			if ds.MinAuditTime == nil || rec.AuditTime.Before(*ds.MinAuditTime) {
				t := *rec.AuditTime
				ds.MinAuditTime = &t
			}
			if ds.MaxAuditTime == nil || rec.AuditTime.After(*ds.MaxAuditTime) {
				t := *rec.AuditTime
				ds.MaxAuditTime = &t
			}
		}
	}

	ds.Rows = len(ds.Records)
	if badRows > 0 {
		logger.Warn("skipped malformed csv rows", "load_id", ds.LoadID, "rows", badRows)
	}
	return ds, nil
}
