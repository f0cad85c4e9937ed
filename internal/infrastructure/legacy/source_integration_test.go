//go:build integration

package legacy

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/backoffice/backend/internal/domain/orderlist"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const legacySchema = `
CREATE TABLE warehouses (id BIGINT PRIMARY KEY, name TEXT NOT NULL, code TEXT NOT NULL);
CREATE TABLE items (id BIGINT PRIMARY KEY, name TEXT NOT NULL, code TEXT, image_url TEXT, warehouse_id BIGINT REFERENCES warehouses(id));
CREATE TABLE order_lines (id BIGINT PRIMARY KEY, item_id BIGINT NOT NULL REFERENCES items(id), quantity NUMERIC(18,4) NOT NULL);
CREATE TABLE cargo_types (id BIGINT PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE cargos (
	id BIGSERIAL PRIMARY KEY,
	order_line_id BIGINT NOT NULL REFERENCES order_lines(id),
	cargo_number TEXT,
	quantity NUMERIC(18,4),
	status TEXT,
	remark TEXT,
	pickup_date DATE,
	departure_date DATE,
	eta DATE,
	cargo_type_id BIGINT REFERENCES cargo_types(id)
);

INSERT INTO warehouses VALUES (1, 'North', 'N1');
INSERT INTO items VALUES (1001, 'Bolt M8', 'B-M8', 'bolt.png', 1);
INSERT INTO order_lines VALUES (10, 1001, 40), (11, 1001, 10);
INSERT INTO cargo_types VALUES (1, 'truck');
INSERT INTO cargos (order_line_id, cargo_number, quantity, status, remark, pickup_date, departure_date, eta, cargo_type_id) VALUES
	(10, 'C100', 5, 'pending',   NULL,     '2024-03-04', NULL,         NULL,         1),
	(10, 'C100', 5, 'delivered', 'signed', '2024-03-06', NULL,         NULL,         1),
	(11, 'C101', 7, NULL,        NULL,     '2024-03-20', '2024-04-02', '2024-04-09', 1);
`

func startLegacyDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("legacy_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecContext(ctx, legacySchema)
	require.NoError(t, err)
	return db
}

func TestSource_Fetch_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	db := startLegacyDB(t)
	source := NewSource(db, 5*time.Second)
	ctx := context.Background()

	snap, err := source.Fetch(ctx, "1001")
	require.NoError(t, err)

	assert.Equal(t, "Bolt M8", snap.Name)
	assert.Equal(t, "North", snap.WarehouseName)
	assert.True(t, snap.Quantity.Equal(decimal.NewFromInt(50)))
	march := snap.Deliveries["2024-03"]
	assert.True(t, march.Quantity.Equal(decimal.NewFromInt(12)), "march quantity %s", march.Quantity)
	assert.Equal(t, []string{"C100", "C101"}, march.CargoNumbers)
	assert.Equal(t, "signed", march.Remark)
	assert.Contains(t, snap.Deliveries, orderlist.PeriodKey("2024-04T"))

	_, err = source.Fetch(ctx, "9999")
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	// the pool must not leak connections across fetches
	assert.Equal(t, 0, db.Stats().InUse)
}
