package docstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seann-Moser/go-bench/pkg/tieredCache"
)

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLStore(context.Background(), SQLConfig{
		Driver:     DriverSQLite,
		DSN:        filepath.Join(t.TempDir(), "bench.db"),
		Collection: "benchmark",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLStore(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	require.NoError(t, store.Ping(ctx))

	_, err := store.Get(ctx, DefaultDocumentID)
	assert.ErrorIs(t, err, ErrNotFound)

	doc := json.RawMessage(`{"_id":"664757f5fa35bada45c03725","name":"benchmark","items":[1,2,3]}`)
	require.NoError(t, store.Put(ctx, DefaultDocumentID, doc))

	got, err := store.Get(ctx, DefaultDocumentID)
	require.NoError(t, err)
	assert.JSONEq(t, string(doc), string(got))

	updated := json.RawMessage(`{"_id":"664757f5fa35bada45c03725","name":"updated"}`)
	require.NoError(t, store.Put(ctx, DefaultDocumentID, updated))
	got, err = store.Get(ctx, DefaultDocumentID)
	require.NoError(t, err)
	assert.JSONEq(t, string(updated), string(got))

	assert.ErrorIs(t, store.Put(ctx, "bad", json.RawMessage(`{not json`)), ErrInvalidDocument)
}

func TestCacheSource(t *testing.T) {
	ctx := context.Background()
	source := NewCacheSource(newSQLiteStore(t))

	_, err := source.GetCache(ctx, "bench:group:latency")
	assert.ErrorIs(t, err, tieredCache.ErrCacheMiss)

	require.NoError(t, source.SetCache(ctx, "bench:group:latency", map[string]interface{}{"name": "latency", "unit": "ms"}))
	got, err := source.GetCache(ctx, "bench:group:latency")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"latency","unit":"ms"}`, string(got))

	c := tieredCache.NewTieredCache(source, tieredCache.NewGoCache(cache.New(time.Minute, time.Minute), time.Minute))
	got, err = c.GetCache(ctx, "bench:group:latency")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"latency","unit":"ms"}`, string(got))
}

func TestSQLStore_Closed(t *testing.T) {
	store := newSQLiteStore(t)
	require.NoError(t, store.Close())

	_, err := store.Get(context.Background(), DefaultDocumentID)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNewSQLStore_InvalidCollection(t *testing.T) {
	_, err := NewSQLStore(context.Background(), SQLConfig{
		Driver:     DriverSQLite,
		DSN:        filepath.Join(t.TempDir(), "bench.db"),
		Collection: "bench; DROP TABLE x",
	})
	assert.ErrorIs(t, err, ErrInvalidCollection)

	_, err = NewSQLStore(context.Background(), SQLConfig{Driver: "oracle", Collection: "benchmark"})
	assert.Error(t, err)
}

func TestNewFromFlags(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()
	viper.Set(DriverFlag, DriverSQLite)
	viper.Set(DSNFlag, filepath.Join(t.TempDir(), "flags.db"))
	viper.Set(CollectionFlag, "documents")
	viper.Set("docstore-max-retry", 1)
	viper.Set("docstore-initial-interval", 10*time.Millisecond)

	store, err := NewFromFlags(context.Background())
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &SQLStore{}, store)

	viper.Set(CollectionFlag, "not-valid")
	_, err = NewFromFlags(context.Background())
	assert.ErrorIs(t, err, ErrInvalidCollection)

	viper.Set(CollectionFlag, "documents")
	viper.Set(DriverFlag, "mongo")
	_, err = NewFromFlags(context.Background())
	assert.Error(t, err)
}

func TestSQLDSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()
	assert.Equal(t, "bench.db", sqlDSN(DriverSQLite))

	viper.Set(HostFlag, "db")
	viper.Set(UserFlag, "bench")
	viper.Set(PasswordFlag, "secret")
	viper.Set(DatabaseFlag, "bench")
	assert.Equal(t, "host=db port=5432 user=bench password=secret dbname=bench sslmode=disable", sqlDSN(DriverPostgres))
	assert.Contains(t, sqlDSN(DriverMySQL), "bench:secret@tcp(db:3306)/bench")

	viper.Set(DSNFlag, "file:custom.db")
	assert.Equal(t, "file:custom.db", sqlDSN(DriverSQLite))
}

func TestDocumentID(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()
	assert.Equal(t, DefaultDocumentID, DocumentID())
	viper.Set(DocumentIDFlag, "abc")
	assert.Equal(t, "abc", DocumentID())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: addr}), "bench_test")
	defer store.Close()
	require.NoError(t, store.Ping(ctx))

	_, err := store.Get(ctx, "missing-"+time.Now().Format(time.RFC3339Nano))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "doc", json.RawMessage(`{"a":1}`)))
	got, err := store.Get(ctx, "doc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))
}
