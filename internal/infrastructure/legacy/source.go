package legacy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/backoffice/backend/internal/domain/orderlist"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/infrastructure/config"
	_ "github.com/lib/pq" // postgres driver
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/backoffice/backend/internal/infrastructure/legacy"

// departureMarker tags periods derived from a cargo's departure date
const departureMarker = "T"

// DefaultFetchTimeout bounds one item query when none is configured
const DefaultFetchTimeout = 10 * time.Second

// Open connects to the read-only legacy operations database
func Open(cfg *config.LegacyConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping legacy database: %w", err)
	}
	return db, nil
}

// Source reads item snapshots from the legacy database. It implements
// orderlist.SnapshotSource.
type Source struct {
	db      *sql.DB
	timeout time.Duration
	tracer  trace.Tracer
}

// NewSource creates a new Source
func NewSource(db *sql.DB, timeout time.Duration) *Source {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Source{
		db:      db,
		timeout: timeout,
		tracer:  otel.Tracer(tracerName),
	}
}

// Fetch loads and folds every row for itemKey. A connection is held only for
// the duration of this call.
func (s *Source) Fetch(ctx context.Context, itemKey string) (*orderlist.Snapshot, error) {
	itemKey = strings.TrimSpace(itemKey)
	key, err := strconv.ParseInt(itemKey, 10, 64)
	if err != nil {
		return nil, shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("item key %q is not numeric", itemKey))
	}

	ctx, span := s.tracer.Start(ctx, "legacy.Fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int64("legacy.item_key", key)))
	defer span.End()

	rows, err := s.query(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("legacy.rows", len(rows)))
	if len(rows) == 0 {
		return nil, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("item %s not found in legacy source", itemKey))
	}

	// Skipped rows are reported per period by the caller.
	snap := buildSnapshot(itemKey, rows)
	span.SetAttributes(attribute.Int("legacy.skipped_rows", len(snap.Skipped)))
	return snap, nil
}

func (s *Source) query(ctx context.Context, key int64) ([]legacyRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, transientError(key, err)
	}
	defer conn.Close()

	result, err := conn.QueryContext(ctx, itemQuery, key)
	if err != nil {
		return nil, transientError(key, err)
	}
	defer result.Close()

	var rows []legacyRow
	for result.Next() {
		var raw rawRow
		if err := result.Scan(raw.dest()...); err != nil {
			return nil, parseError("item %d: %v", key, err)
		}
		row, err := parseRow(raw)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := result.Err(); err != nil {
		return nil, transientError(key, err)
	}
	return rows, nil
}

func transientError(key int64, err error) *shared.DomainError {
	msg := fmt.Sprintf("legacy fetch of item %d failed: %v", key, err)
	if errors.Is(err, context.DeadlineExceeded) {
		msg = fmt.Sprintf("legacy fetch of item %d timed out", key)
	}
	return shared.NewDomainError(shared.CodeTransientFetch, msg)
}

// buildSnapshot folds validated rows into a snapshot. Ordered quantity is
// summed over distinct order lines; each dated cargo row yields one
// observation per date.
func buildSnapshot(itemKey string, rows []legacyRow) *orderlist.Snapshot {
	first := rows[0]
	snap := &orderlist.Snapshot{
		ItemKey:       itemKey,
		Name:          first.Name,
		Code:          first.Code,
		Image:         first.Image,
		WarehouseName: first.WarehouseName,
		WarehouseCode: first.WarehouseCode,
		Quantity:      decimal.Zero,
	}

	lines := make(map[int64]struct{})
	var observations []orderlist.Observation
	for _, row := range rows {
		if row.OrderLineID != nil {
			if _, seen := lines[*row.OrderLineID]; !seen {
				lines[*row.OrderLineID] = struct{}{}
				snap.Quantity = snap.Quantity.Add(row.OrderedQty)
			}
		}
		if row.PickupDate != nil {
			observations = append(observations, observe(row, *row.PickupDate, ""))
		}
		if row.DepartureDate != nil {
			observations = append(observations, observe(row, *row.DepartureDate, departureMarker))
		}
	}

	deliveries, skipped := orderlist.FoldDeliveries(observations)
	snap.Deliveries = deliveries
	snap.Skipped = skipped
	return snap
}

func observe(row legacyRow, anchor time.Time, marker string) orderlist.Observation {
	return orderlist.Observation{
		Period:       orderlist.PeriodFromTime(anchor, marker).String(),
		AnchorDate:   anchor,
		ShipmentID:   row.CargoNumber,
		Quantity:     row.CargoQty,
		Status:       row.Status,
		Remark:       row.Remark,
		ShippedAt:    row.DepartureDate,
		ETA:          row.ETA,
		ShipmentType: row.CargoType,
	}
}
