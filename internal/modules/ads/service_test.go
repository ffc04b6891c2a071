package ads

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/pkg/apperr"
	"github.com/qalam-news/core/internal/pkg/pagination"
	"github.com/qalam-news/core/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func text(s string) models.LocalizedText {
	return models.LocalizedText{EN: s, AR: s + " ar", UR: s + " ur"}
}

func dto(title string, placement models.Placement, start, end time.Time, priority int) CreateDTO {
	return CreateDTO{
		Title:       text(title),
		Description: text("desc"),
		CTA:         text("Read more"),
		LinkURL:     "https://sponsor.example.com",
		Placement:   placement,
		StartsAt:    start,
		EndsAt:      end,
		Priority:    priority,
	}
}

func newService(now *time.Time) *Service {
	return NewService(store.NewMemoryStore(), nil).WithClock(func() time.Time { return *now })
}

func titles(ads []models.Advertisement) []string {
	out := make([]string, len(ads))
	for i, ad := range ads {
		out[i] = ad.Title.EN
	}
	return out
}

func TestCreateValidates(t *testing.T) {
	now := t0
	svc := newService(&now)
	ctx := context.Background()

	_, err := svc.Create(ctx, "admin", dto("bad window", models.PlacementSidebar, t0, t0, 0))
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = svc.Create(ctx, "admin", dto("bad slot", "header", t0, t0.Add(time.Hour), 0))
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	ad, err := svc.Create(ctx, "admin", dto("ok", models.PlacementSidebar, t0, t0.Add(time.Hour), 0))
	require.NoError(t, err)
	assert.True(t, ad.Active)
	assert.Equal(t, "admin", ad.CreatedBy)
	assert.Zero(t, ad.Impressions)
}

func TestLiveOrderingAndWindow(t *testing.T) {
	now := t0
	svc := newService(&now)
	ctx := context.Background()
	day := 24 * time.Hour

	mk := func(d CreateDTO) {
		now = now.Add(time.Second)
		_, err := svc.Create(ctx, "admin", d)
		require.NoError(t, err)
	}
	mk(dto("low old", models.PlacementSidebar, t0.Add(-day), t0.Add(day), 1))
	mk(dto("high", models.PlacementSidebar, t0.Add(-day), t0.Add(day), 5))
	mk(dto("low new", models.PlacementSidebar, t0.Add(-day), t0.Add(day), 1))
	mk(dto("expired", models.PlacementSidebar, t0.Add(-2*day), t0.Add(-day), 9))
	mk(dto("future", models.PlacementSidebar, t0.Add(day), t0.Add(2*day), 9))
	mk(dto("inline", models.PlacementInline, t0.Add(-day), t0.Add(day), 9))
	off := dto("disabled", models.PlacementSidebar, t0.Add(-day), t0.Add(day), 9)
	inactive := false
	off.Active = &inactive
	mk(off)

	live, err := svc.Live(ctx, models.PlacementSidebar)
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "low old", "low new"}, titles(live))

	all, err := svc.Live(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"inline", "high", "low old", "low new"}, titles(all))
}

func TestLiveWindowIsInclusive(t *testing.T) {
	now := t0
	svc := newService(&now)
	ctx := context.Background()
	_, err := svc.Create(ctx, "admin", dto("edge", models.PlacementInline, t0, t0.Add(time.Hour), 0))
	require.NoError(t, err)

	for _, at := range []time.Time{t0, t0.Add(time.Hour)} {
		now = at
		live, err := svc.Live(ctx, models.PlacementInline)
		require.NoError(t, err)
		assert.Len(t, live, 1, at)
	}
	now = t0.Add(time.Hour + time.Millisecond)
	live, err := svc.Live(ctx, models.PlacementInline)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestConcurrentCountersAndStats(t *testing.T) {
	now := t0
	svc := newService(&now)
	ctx := context.Background()
	ad, err := svc.Create(ctx, "admin", dto("counted", models.PlacementSidebar, t0, t0.Add(time.Hour), 0))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, svc.RecordImpression(ctx, ad.ID))
	}
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.RecordImpression(ctx, ad.ID))
		}()
	}
	wg.Wait()
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.RecordClick(ctx, ad.ID))
	}

	stats, err := svc.Stats(ctx, ad.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 12, stats.Impressions)
	assert.EqualValues(t, 3, stats.Clicks)
	assert.InDelta(t, 0.25, stats.CTR, 1e-9)

	err = svc.RecordClick(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateKeepsCounters(t *testing.T) {
	now := t0
	svc := newService(&now)
	ctx := context.Background()
	ad, err := svc.Create(ctx, "admin", dto("v1", models.PlacementSidebar, t0, t0.Add(time.Hour), 0))
	require.NoError(t, err)
	require.NoError(t, svc.RecordImpression(ctx, ad.ID))

	title := text("v2")
	prio := 7
	updated, err := svc.Update(ctx, ad.ID, UpdateDTO{Title: &title, Priority: &prio})
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Title.EN)

	got, err := svc.Get(ctx, ad.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Priority)
	assert.EqualValues(t, 1, got.Impressions)

	badEnd := t0.Add(-time.Hour)
	_, err = svc.Update(ctx, ad.ID, UpdateDTO{EndsAt: &badEnd})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestListAndDelete(t *testing.T) {
	now := t0
	svc := newService(&now)
	ctx := context.Background()
	a, err := svc.Create(ctx, "admin", dto("a", models.PlacementSidebar, t0, t0.Add(time.Hour), 0))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "admin", dto("b", models.PlacementInline, t0, t0.Add(time.Hour), 0))
	require.NoError(t, err)

	ads, meta, err := svc.List(ctx, ListQuery{Placement: models.PlacementSidebar, Page: pagination.Query{Page: 1, Size: 10}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, titles(ads))
	assert.EqualValues(t, 1, meta.Total)

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), apperr.ErrNotFound)
}
