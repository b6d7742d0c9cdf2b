//go:build integration

package settings_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/tripnest/tripnest/internal/settings"
	"github.com/tripnest/tripnest/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

var testPool *pgxpool.Pool
var testURL string

func TestMain(m *testing.M) {
	ctx := context.Background()
	pg, cleanup := testutil.StartPostgresForTestMain(ctx)
	testPool = pg.Pool
	testURL = pg.URL

	if err := settings.NewPostgresStore(testPool, nil).Migrate(ctx); err != nil {
		panic("create documents table: " + err.Error())
	}

	code := m.Run()
	cleanup()
	os.Exit(code)
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := settings.NewPostgresStore(testPool, nil)
	t.Cleanup(func() {
		testPool.Exec(ctx, "DELETE FROM _tn_documents WHERE collection = 'test'")
	})

	_, err := store.GetDocument(ctx, "test", "missing")
	testutil.True(t, errors.Is(err, settings.ErrNotFound), "missing doc should be ErrNotFound, got %v", err)

	testutil.NoError(t, store.PutDocument(ctx, "test", "a", []byte(`{"x":1}`)))
	testutil.NoError(t, store.PutDocument(ctx, "test", "a", []byte(`{"x":2}`)))

	data, err := store.GetDocument(ctx, "test", "a")
	testutil.NoError(t, err)
	testutil.Equal(t, `{"x": 2}`, string(data)) // jsonb normalizes spacing

	testutil.NoError(t, store.Ping(ctx))
}

func TestPostgresStore_MigrateIdempotent(t *testing.T) {
	store := settings.NewPostgresStore(testPool, nil)
	testutil.NoError(t, store.Migrate(context.Background()))
}

func TestOpen_Postgres(t *testing.T) {
	ctx := context.Background()
	store, err := settings.Open(ctx, settings.Options{DatabaseURL: testURL, Logger: testutil.DiscardLogger()})
	testutil.NoError(t, err)
	defer store.Close()

	_, ok := store.(*settings.PostgresStore)
	testutil.True(t, ok, "expected PostgresStore, got %T", store)

	r := settings.NewSMSReader(store)
	t.Cleanup(func() {
		testPool.Exec(ctx, "DELETE FROM _tn_documents WHERE collection = 'settings' AND id = 'sms'")
	})
	testutil.NoError(t, r.WriteSMSConfig(ctx, settings.SMSConfig{Provider: "twilio", APIKey: "AC1"}))
	cfg, err := r.ReadSMSConfig(ctx)
	testutil.NoError(t, err)
	testutil.Equal(t, "AC1", cfg.APIKey)
}
