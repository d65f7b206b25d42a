package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/kirinyoku/lessonbook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SearchLessonsMissLoadsAndStores(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := New(db)
	ctx := context.Background()
	ttl := 30 * time.Second

	lessons := []domain.Lesson{{ID: 5, Subject: "Piano", Spaces: 3}}
	b, err := json.Marshal(lessons)
	require.NoError(t, err)

	key := KeyLessonSearch(3, "Pian")
	mock.ExpectGet(KeyCatalogGeneration()).SetVal("3")
	mock.ExpectGet(key).RedisNil()
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, string(b), ttl).SetVal("OK")

	loads := 0
	got, err := cache.SearchLessons(ctx, "Pian", ttl, func(context.Context) ([]domain.Lesson, error) {
		loads++
		return lessons, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, loads)
	require.Len(t, got, 1)
	assert.Equal(t, "Piano", got[0].Subject)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_SearchLessonsHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := New(db)

	b, err := json.Marshal([]domain.Lesson{{ID: 7, Subject: "Chess", Spaces: 1}})
	require.NoError(t, err)

	mock.ExpectGet(KeyCatalogGeneration()).RedisNil()
	mock.ExpectGet(KeyLessonSearch(0, "chess")).SetVal(string(b))

	got, err := cache.SearchLessons(context.Background(), "CHESS", time.Minute, func(context.Context) ([]domain.Lesson, error) {
		t.Fatal("loader must not run on a hit")
		return nil, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_LoaderErrorIsReturned(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := New(db)
	boom := errors.New("boom")

	key := KeyLessonSearch(0, "x")
	mock.ExpectGet(KeyCatalogGeneration()).RedisNil()
	mock.ExpectGet(key).RedisNil()
	mock.ExpectGet(key).RedisNil()

	_, err := cache.SearchLessons(context.Background(), "x", time.Minute, func(context.Context) ([]domain.Lesson, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_InvalidateCatalog(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := New(db)

	mock.ExpectIncr(KeyCatalogGeneration()).SetVal(4)

	require.NoError(t, cache.InvalidateCatalog(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyStore(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewIdempotencyStore(db, 2*time.Hour)
	ctx := context.Background()
	key := KeyIdemOrder("abc")

	mock.ExpectSetNX(key, "LOCK", time.Minute).SetVal(true)
	mock.ExpectGet(key).SetVal("LOCK")
	mock.ExpectSet(key, `RES:{"orderId":"1"}`, 2*time.Hour).SetVal("OK")
	mock.ExpectGet(key).SetVal(`RES:{"orderId":"1"}`)
	mock.ExpectDel(key).SetVal(1)

	locked, err := store.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)

	_, ok, err := store.GetResult(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "a lock is not a result")

	require.NoError(t, store.SaveResult(ctx, key, `{"orderId":"1"}`))

	payload, ok, err := store.GetResult(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"orderId":"1"}`, payload)

	require.NoError(t, store.Release(ctx, key))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseDecision(t *testing.T) {
	d, err := parseDecision([]any{int64(0), int64(11), int64(1500)})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(11), d.Current)
	assert.Equal(t, 1500*time.Millisecond, d.RetryAfter)

	d, err = parseDecision([]any{int64(1), int64(2), int64(0)})
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	_, err = parseDecision("nope")
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "lessonbook:v1:catalog:2:search:piano", KeyLessonSearch(2, "PiAnO"))
	assert.Equal(t, "lessonbook:v1:rl:orders:ip:1.2.3.4", KeyRateLimit("orders", "ip:1.2.3.4"))
	assert.Equal(t, "lessonbook:v1:idem:orders:k", KeyIdemOrder("k"))
}
