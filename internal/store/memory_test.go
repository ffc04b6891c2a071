package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type testDoc struct {
	ID       string            `bson:"_id"`
	Name     string            `bson:"name"`
	Email    string            `bson:"email"`
	State    string            `bson:"state"`
	Owner    string            `bson:"owner"`
	Tags     []string          `bson:"tags"`
	Title    map[string]string `bson:"title"`
	Count    int64             `bson:"count"`
	Priority int               `bson:"priority"`
	At       time.Time         `bson:"at"`
}

func newIndexedStore(t *testing.T, opts ...MemoryOption) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(opts...)
	require.NoError(t, s.EnsureIndexes(context.Background(), []IndexSpec{
		{Collection: "docs", Keys: []string{"name"}, Unique: true},
		{Collection: "docs", Keys: []string{"email"}, Unique: true},
	}))
	return s
}

func TestMemoryStoreInsertAndFindOne(t *testing.T) {
	s := newIndexedStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "docs", testDoc{ID: "1", Name: "alpha", Email: "a@x.io", Title: map[string]string{"en": "Hello"}}))

	var got testDoc
	require.NoError(t, s.FindOne(ctx, "docs", Filter{"name": "alpha"}, &got))
	assert.Equal(t, "1", got.ID)
	assert.Equal(t, "Hello", got.Title["en"])

	err := s.FindOne(ctx, "docs", Filter{"name": "missing"}, &got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreUniqueViolation(t *testing.T) {
	s := newIndexedStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "docs", testDoc{ID: "1", Name: "alpha", Email: "a@x.io"}))

	err := s.Insert(ctx, "docs", testDoc{ID: "2", Name: "alpha", Email: "b@x.io"})
	require.ErrorIs(t, err, ErrDuplicateEntry)
	assert.Equal(t, "name", DuplicateField(err))

	err = s.Insert(ctx, "docs", testDoc{ID: "3", Name: "beta", Email: "a@x.io"})
	require.ErrorIs(t, err, ErrDuplicateEntry)
	assert.Equal(t, "email", DuplicateField(err))

	err = s.Insert(ctx, "docs", testDoc{ID: "1", Name: "gamma", Email: "c@x.io"})
	assert.ErrorIs(t, err, ErrDuplicateEntry)
}

func TestMemoryStoreConcurrentDuplicateInsert(t *testing.T) {
	s := newIndexedStore(t)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Insert(ctx, "docs", testDoc{
				ID:    primitive.NewObjectID().Hex(),
				Name:  "same-name",
				Email: primitive.NewObjectID().Hex() + "@x.io",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrDuplicateEntry), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestMemoryStoreUpdateOneRespectsUnique(t *testing.T) {
	s := newIndexedStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, "docs", testDoc{ID: "1", Name: "alpha", Email: "a@x.io"}))
	require.NoError(t, s.Insert(ctx, "docs", testDoc{ID: "2", Name: "beta", Email: "b@x.io"}))

	err := s.UpdateOne(ctx, "docs", Filter{"_id": "2"}, bson.M{"email": "a@x.io"})
	assert.ErrorIs(t, err, ErrDuplicateEntry)

	require.NoError(t, s.UpdateOne(ctx, "docs", Filter{"_id": "2"}, bson.M{"email": "new@x.io", "title.en": "Patched"}))
	var got testDoc
	require.NoError(t, s.FindOne(ctx, "docs", Filter{"_id": "2"}, &got))
	assert.Equal(t, "new@x.io", got.Email)
	assert.Equal(t, "Patched", got.Title["en"])

	assert.ErrorIs(t, s.UpdateOne(ctx, "docs", Filter{"_id": "nope"}, bson.M{"name": "x"}), ErrNotFound)
}

func TestMemoryStoreIncrementFieldConcurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, "ads", testDoc{ID: "ad", Count: 10}))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.IncrementField(ctx, "ads", "ad", "count", 1))
		}()
	}
	wg.Wait()

	var got testDoc
	require.NoError(t, s.FindOne(ctx, "ads", Filter{"_id": "ad"}, &got))
	assert.Equal(t, int64(12), got.Count)

	assert.ErrorIs(t, s.IncrementField(ctx, "ads", "missing", "count", 1), ErrNotFound)
}

func TestMemoryStoreFindOperators(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []testDoc{
		{ID: "1", Name: "Breaking News", State: "published", Owner: "u1", Tags: []string{"world"}, Priority: 1, At: base},
		{ID: "2", Name: "Draft Story", State: "draft", Owner: "u1", Tags: []string{"local"}, Priority: 5, At: base.Add(time.Hour)},
		{ID: "3", Name: "Other draft", State: "draft", Owner: "u2", Priority: 3, At: base.Add(2 * time.Hour)},
	}
	for _, d := range docs {
		require.NoError(t, s.Insert(ctx, "items", d))
	}

	var out []testDoc
	require.NoError(t, s.Find(ctx, "items", Filter{"$or": []bson.M{{"state": "published"}, {"owner": "u1"}}}, FindOptions{}, &out))
	assert.Len(t, out, 2)

	require.NoError(t, s.Find(ctx, "items", Filter{"name": primitive.Regex{Pattern: "draft", Options: "i"}}, FindOptions{
		Sort: []SortField{{Field: "priority", Desc: true}},
	}, &out))
	require.Len(t, out, 2)
	assert.Equal(t, "2", out[0].ID)
	assert.Equal(t, "3", out[1].ID)

	require.NoError(t, s.Find(ctx, "items", Filter{"at": bson.M{"$gte": base.Add(time.Hour)}}, FindOptions{}, &out))
	assert.Len(t, out, 2)

	require.NoError(t, s.Find(ctx, "items", Filter{"tags": "world"}, FindOptions{}, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "1", out[0].ID)

	require.NoError(t, s.Find(ctx, "items", Filter{"state": bson.M{"$in": []string{"draft"}}, "owner": bson.M{"$ne": "u1"}}, FindOptions{}, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "3", out[0].ID)

	require.NoError(t, s.Find(ctx, "items", Filter{}, FindOptions{Sort: []SortField{{Field: "at"}}, Skip: 1, Limit: 1}, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "2", out[0].ID)

	n, err := s.Count(ctx, "items", Filter{"state": "draft"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, s.Insert(ctx, "items", testDoc{ID: id, State: "draft"}))
	}

	require.NoError(t, s.DeleteOne(ctx, "items", Filter{"_id": "1"}))
	assert.ErrorIs(t, s.DeleteOne(ctx, "items", Filter{"_id": "1"}), ErrNotFound)

	removed, err := s.DeleteMany(ctx, "items", Filter{"state": "draft"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestMemoryStoreTTLEviction(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(WithClock(func() time.Time { return now }))
	ctx := context.Background()
	require.NoError(t, s.EnsureIndexes(ctx, []IndexSpec{
		{Collection: "attempts", Keys: []string{"at"}, ExpireAfter: 24 * time.Hour},
	}))

	require.NoError(t, s.Insert(ctx, "attempts", testDoc{ID: "old", At: now.Add(-25 * time.Hour)}))
	require.NoError(t, s.Insert(ctx, "attempts", testDoc{ID: "new", At: now.Add(-time.Hour)}))

	var out []testDoc
	require.NoError(t, s.Find(ctx, "attempts", nil, FindOptions{}, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "new", out[0].ID)
}
