package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"venue-admin-backend/internal/model"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	return gormDB, mock
}

// newSQLiteDB opens a private in-memory SQLite database with the cache table.
func newSQLiteDB(t *testing.T) *gorm.DB {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gormDB, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, gormDB.AutoMigrate(&model.CacheEntry{}))
	return gormDB
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func rooms(ids ...string) []model.Space {
	out := make([]model.Space, 0, len(ids))
	for i, id := range ids {
		out = append(out, model.Space{ID: id, Name: "Room " + id, Capacity: 10 + i})
	}
	return out
}

// storeFactories runs the shared contract against every persisting store.
func storeFactories(t *testing.T, c *clock) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(WithClock(c.Now)),
		"gorm":   NewGormStore(newSQLiteDB(t), WithClock(c.Now)),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	c := &clock{now: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)}
	for name, s := range storeFactories(t, c) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			in := rooms("r3", "r1", "r2")

			written, err := WriteCollection(ctx, s, model.ResourceRooms, in)
			require.NoError(t, err)
			assert.Equal(t, 3, written.RecordCount)

			got, ok := ReadCollection[model.Space](ctx, s, model.ResourceRooms, nil)
			require.True(t, ok)
			assert.Equal(t, in, got.Items)
			assert.Equal(t, 3, got.RecordCount)
			assert.True(t, c.now.Equal(got.LastUpdated))
		})
	}
}

func TestStore_WriteReplaces(t *testing.T) {
	c := &clock{now: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)}
	for name, s := range storeFactories(t, c) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := WriteCollection(ctx, s, model.ResourceRooms, rooms("a", "b"))
			require.NoError(t, err)

			c.now = c.now.Add(time.Minute)
			_, err = WriteCollection(ctx, s, model.ResourceRooms, rooms("c"))
			require.NoError(t, err)

			got, ok := ReadCollection[model.Space](ctx, s, model.ResourceRooms, nil)
			require.True(t, ok)
			assert.Equal(t, rooms("c"), got.Items)
			assert.True(t, c.now.Equal(got.LastUpdated))
		})
	}
}

func TestStore_ReadAbsent(t *testing.T) {
	c := &clock{now: time.Now()}
	for name, s := range storeFactories(t, c) {
		t.Run(name, func(t *testing.T) {
			_, ok := ReadCollection[model.Booking](context.Background(), s, model.ResourceBookings, nil)
			assert.False(t, ok)
		})
	}
}

func TestStore_ClearRemovesAllResources(t *testing.T) {
	c := &clock{now: time.Now()}
	for name, s := range storeFactories(t, c) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := WriteCollection(ctx, s, model.ResourceRooms, rooms("a"))
			require.NoError(t, err)
			_, err = WriteCollection(ctx, s, model.ResourceBookings, []model.Booking{{ID: "b1", SpaceID: "a"}})
			require.NoError(t, err)

			require.NoError(t, s.Clear(ctx))

			for _, r := range model.Resources {
				_, ok := s.Read(ctx, r)
				assert.False(t, ok, r)
			}
		})
	}
}

func TestStore_EmptyCollectionIsPresent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, err := WriteCollection[model.Space](ctx, s, model.ResourceRooms, nil)
	require.NoError(t, err)

	got, ok := ReadCollection[model.Space](ctx, s, model.ResourceRooms, nil)
	require.True(t, ok)
	assert.True(t, got.Empty())
	assert.NotNil(t, got.Items)
}

func TestStore_MalformedEntryReadsAbsent(t *testing.T) {
	ctx := context.Background()

	t.Run("gorm row with invalid json", func(t *testing.T) {
		gormDB := newSQLiteDB(t)
		require.NoError(t, gormDB.Create(&model.CacheEntry{
			Resource:    string(model.ResourceRooms),
			Payload:     []byte("{not json"),
			LastUpdated: time.Now(),
			RecordCount: 1,
		}).Error)

		_, ok := NewGormStore(gormDB).Read(ctx, model.ResourceRooms)
		assert.False(t, ok)
	})

	t.Run("memory entry of the wrong type", func(t *testing.T) {
		s := NewMemoryStore().(*memoryStore)
		s.entries.Set(string(model.ResourceRooms), "garbage", 0)
		_, ok := s.Read(ctx, model.ResourceRooms)
		assert.False(t, ok)
	})

	t.Run("valid json of the wrong shape", func(t *testing.T) {
		s := NewMemoryStore()
		_, err := s.Write(ctx, model.ResourceRooms, []byte(`{"id":"r1"}`), 1)
		require.NoError(t, err)
		_, ok := ReadCollection[model.Space](ctx, s, model.ResourceRooms, nil)
		assert.False(t, ok)
	})

	t.Run("null payload", func(t *testing.T) {
		s := NewMemoryStore()
		_, err := s.Write(ctx, model.ResourceRooms, []byte(`null`), 0)
		require.NoError(t, err)
		_, ok := ReadCollection[model.Space](ctx, s, model.ResourceRooms, nil)
		assert.False(t, ok)
	})
}

func TestNoopStore(t *testing.T) {
	ctx := context.Background()
	s := NewNoopStore()
	assert.False(t, s.Available())

	_, err := WriteCollection(ctx, s, model.ResourceRooms, rooms("a"))
	require.NoError(t, err)

	_, ok := ReadCollection[model.Space](ctx, s, model.ResourceRooms, nil)
	assert.False(t, ok)
	assert.NoError(t, s.Clear(ctx))
}

func TestNew_SelectsDriver(t *testing.T) {
	assert.IsType(t, &memoryStore{}, New("memory", nil))
	assert.IsType(t, &noopStore{}, New("none", nil))
	assert.IsType(t, &noopStore{}, New("gorm", nil))
	assert.IsType(t, &gormStore{}, New("gorm", newSQLiteDB(t)))
}

func TestCollection_IsStale(t *testing.T) {
	written := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	c := Collection[model.Space]{LastUpdated: written}
	staleAfter := 5 * time.Minute

	assert.False(t, c.IsStale(staleAfter, written))
	assert.False(t, c.IsStale(staleAfter, written.Add(staleAfter)))
	assert.True(t, c.IsStale(staleAfter, written.Add(staleAfter+time.Millisecond)))
}

func TestGormStore_SQL(t *testing.T) {
	ctx := context.Background()

	t.Run("read miss", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT \* FROM "cache_entries" WHERE resource = \$1 LIMIT \$[0-9]+`).
			WithArgs("rooms", 1).
			WillReturnRows(sqlmock.NewRows([]string{"resource", "payload", "last_updated", "record_count"}))

		_, ok := NewGormStore(gormDB).Read(ctx, model.ResourceRooms)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("read failure is absent, not an error", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT \* FROM "cache_entries"`).
			WillReturnError(errors.New("connection reset"))

		_, ok := NewGormStore(gormDB).Read(ctx, model.ResourceBookings)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("write upserts by resource", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "cache_entries"`) + `.*` + regexp.QuoteMeta(`ON CONFLICT ("resource") DO UPDATE`)).
			WithArgs("rooms", Any{}, Any{}, 2).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		_, err := NewGormStore(gormDB).Write(ctx, model.ResourceRooms, []byte(`[{"id":"a"},{"id":"b"}]`), 2)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("clear deletes every row", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "cache_entries"`)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		assert.NoError(t, NewGormStore(gormDB).Clear(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
