package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/persistence/postgresql"
	"github.com/dukex/autoflow/pkg/testutil"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"entity_meta", "entities", "execution_logs", "workflow_jobs", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("autoflow_test"),
			postgres.WithUsername("autoflow"),
			postgres.WithPassword("autoflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	for _, table := range []string{"workflows", "workflow_jobs", "execution_logs", "entities", "entity_meta", "schema_migrations"} {
		var exists bool

		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	assert.NoError(t, p.HealthCheck(ctx))
}

func TestWorkflowRepository(t *testing.T) {
	testutil.RunWorkflowRepositoryTests(t, func(t *testing.T) persistence.WorkflowRepository {
		p, _, _ := setupTestDB(t)

		return p.WorkflowRepository()
	})
}

func TestQueueRepository(t *testing.T) {
	testutil.RunQueueRepositoryTests(t, func(t *testing.T) persistence.QueueRepository {
		p, _, _ := setupTestDB(t)

		return p.QueueRepository()
	})
}

func TestLogRepository(t *testing.T) {
	testutil.RunLogRepositoryTests(t, func(t *testing.T) persistence.LogRepository {
		p, _, _ := setupTestDB(t)

		return p.LogRepository()
	})
}

func TestEntityStore(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	store := p.Entities()

	exists, err := store.Exists(ctx, models.EntityPost, 42)
	require.NoError(t, err)
	assert.False(t, exists)

	err = store.SetMeta(ctx, models.EntityPost, 42, "flag", "x")
	assert.ErrorIs(t, err, persistence.ErrEntityNotFound)

	require.NoError(t, store.Register(ctx, models.EntityPost, 42))
	require.NoError(t, store.Register(ctx, models.EntityPost, 42))

	exists, err = store.Exists(ctx, models.EntityPost, 42)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.SetMeta(ctx, models.EntityPost, 42, "flag", "first"))
	require.NoError(t, store.SetMeta(ctx, models.EntityPost, 42, "flag", "second"))

	value, ok, err := store.GetMeta(ctx, models.EntityPost, 42, "flag")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", value)

	_, ok, err = store.GetMeta(ctx, models.EntityUser, 42, "flag")
	require.NoError(t, err)
	assert.False(t, ok)
}
