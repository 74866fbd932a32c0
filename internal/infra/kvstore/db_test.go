package kvstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type numbered struct {
	Seq  int    `json:"seq"`
	Note string `json:"note"`
}

func testConfig(dir string) Config {
	return Config{
		Dir:     dir,
		Name:    "test",
		Version: 1,
		Stores: []StoreConfig{
			{Name: "items", KeyPath: "id"},
			{Name: "numbered", KeyPath: "seq"},
		},
	}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db := New(testConfig(t.TempDir()))
	require.NoError(t, db.Open(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPrimitivesBeforeOpen(t *testing.T) {
	ctx := context.Background()
	db := New(testConfig(t.TempDir()))

	_, err := Save(ctx, db, "items", item{ID: "1"})
	assert.ErrorIs(t, err, ErrNotOpened)

	_, err = GetAll[item](ctx, db, "items")
	assert.ErrorIs(t, err, ErrNotOpened)

	_, _, err = Get[item](ctx, db, "items", "1")
	assert.ErrorIs(t, err, ErrNotOpened)

	assert.ErrorIs(t, Delete(ctx, db, "items", "1"), ErrNotOpened)
}

func TestSaveAndGetAll(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	saved, err := Save(ctx, db, "items", item{ID: "b", Name: "second"})
	require.NoError(t, err)
	assert.Equal(t, item{ID: "b", Name: "second"}, saved)

	_, err = Save(ctx, db, "items", item{ID: "a", Name: "first"})
	require.NoError(t, err)

	all, err := GetAll[item](ctx, db, "items")
	require.NoError(t, err)
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	assert.Equal(t, []item{{ID: "a", Name: "first"}, {ID: "b", Name: "second"}}, all)
}

func TestSaveOverwritesSameKey(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := Save(ctx, db, "items", item{ID: "x", Name: "old"})
	require.NoError(t, err)
	_, err = Save(ctx, db, "items", item{ID: "x", Name: "new"})
	require.NoError(t, err)

	all, err := GetAll[item](ctx, db, "items")
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: "x", Name: "new"}}, all)
}

func TestGetAndDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, found, err := Get[item](ctx, db, "items", "missing")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = Save(ctx, db, "items", item{ID: "k", Name: "value"})
	require.NoError(t, err)

	got, found, err := Get[item](ctx, db, "items", "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "value", got.Name)

	require.NoError(t, Delete(ctx, db, "items", "k"))
	require.NoError(t, Delete(ctx, db, "items", "k"))

	_, found, err = Get[item](ctx, db, "items", "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNumericPrimaryKey(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := Save(ctx, db, "numbered", numbered{Seq: 42, Note: "answer"})
	require.NoError(t, err)

	got, found, err := Get[numbered](ctx, db, "numbered", "42")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "answer", got.Note)
}

func TestSaveRejectsMissingKey(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := Save(ctx, db, "items", item{Name: "no id"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingKey)

	var opErr *OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "save", opErr.Op)
	assert.Equal(t, "items", opErr.Store)

	_, err = Save(ctx, db, "items", map[string]any{"id": nil})
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestUnknownStore(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := Save(ctx, db, "nope", item{ID: "1"})
	assert.ErrorIs(t, err, ErrUnknownStore)

	_, err = GetAll[item](ctx, db, metaBucket)
	assert.ErrorIs(t, err, ErrUnknownStore)
}

func TestCanceledContext(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Save(ctx, db, "items", item{ID: "1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCloseThenUse(t *testing.T) {
	ctx := context.Background()
	db := New(testConfig(t.TempDir()))
	require.NoError(t, db.Open(ctx))
	require.NoError(t, db.Open(ctx))
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	_, err := GetAll[item](ctx, db, "items")
	assert.ErrorIs(t, err, ErrNotOpened)
}

func TestDataSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db := New(testConfig(dir))
	require.NoError(t, db.Open(ctx))
	_, err := Save(ctx, db, "items", item{ID: "keep", Name: "me"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db = New(testConfig(dir))
	require.NoError(t, db.Open(ctx))
	defer db.Close()

	got, found, err := Get[item](ctx, db, "items", "keep")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "me", got.Name)
	assert.FileExists(t, filepath.Join(dir, "test.db"))
}

func TestUpgradeCreatesNewStores(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	v1 := Config{Dir: dir, Name: "up", Version: 1, Stores: []StoreConfig{{Name: "items", KeyPath: "id"}}}
	db := New(v1)
	require.NoError(t, db.Open(ctx))
	require.NoError(t, db.Close())

	v2 := v1
	v2.Version = 2
	v2.Stores = append(v2.Stores, StoreConfig{Name: "tags", KeyPath: "id"})
	db = New(v2)
	require.NoError(t, db.Open(ctx))
	defer db.Close()

	version, err := db.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	_, err = Save(ctx, db, "tags", item{ID: "t1"})
	assert.NoError(t, err)
}

func TestSameVersionDoesNotCreateStores(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	v1 := Config{Dir: dir, Name: "same", Version: 1, Stores: []StoreConfig{{Name: "items", KeyPath: "id"}}}
	db := New(v1)
	require.NoError(t, db.Open(ctx))
	require.NoError(t, db.Close())

	again := v1
	again.Stores = append(again.Stores, StoreConfig{Name: "late", KeyPath: "id"})
	db = New(again)
	require.NoError(t, db.Open(ctx))
	defer db.Close()

	_, err := Save(ctx, db, "late", item{ID: "1"})
	assert.ErrorIs(t, err, ErrUnknownStore)
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("downgrade", func(t *testing.T) {
		dir := t.TempDir()
		cfg := testConfig(dir)
		cfg.Version = 3
		db := New(cfg)
		require.NoError(t, db.Open(ctx))
		require.NoError(t, db.Close())

		cfg.Version = 2
		err := New(cfg).Open(ctx)
		var openErr *OpenError
		require.True(t, errors.As(err, &openErr))
		assert.Equal(t, "test", openErr.Name)
		assert.Contains(t, err.Error(), "failed to open database test")
	})

	t.Run("data dir is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "plain")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

		err := New(testConfig(file)).Open(ctx)
		var openErr *OpenError
		assert.True(t, errors.As(err, &openErr))
	})

	t.Run("invalid config", func(t *testing.T) {
		err := New(Config{Dir: t.TempDir(), Name: "bad", Version: 0}).Open(ctx)
		var openErr *OpenError
		assert.True(t, errors.As(err, &openErr))
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", testConfig("."), false},
		{"no name", Config{Version: 1}, true},
		{"zero version", Config{Name: "x"}, true},
		{"store without key", Config{Name: "x", Version: 1, Stores: []StoreConfig{{Name: "s"}}}, true},
		{"reserved store", Config{Name: "x", Version: 1, Stores: []StoreConfig{{Name: metaBucket, KeyPath: "id"}}}, true},
		{"duplicate store", Config{Name: "x", Version: 1, Stores: []StoreConfig{{Name: "s", KeyPath: "id"}, {Name: "s", KeyPath: "id"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNameAndPath(t *testing.T) {
	dir := t.TempDir()
	db := New(testConfig(dir))

	assert.Equal(t, "test", db.Name())
	assert.Equal(t, filepath.Join(dir, "test.db"), db.Path())
}
