package persist

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

type fakeRecordStore struct {
	news      []collector.NewsRecord
	events    []collector.EventRecord
	insertErr error
}

func (f *fakeRecordStore) ListNews(_ context.Context, destID string) ([]collector.NewsRecord, error) {
	var out []collector.NewsRecord
	for _, rec := range f.news {
		if rec.DestinationID == destID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecordStore) InsertNews(_ context.Context, rec collector.NewsRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.news = append(f.news, rec)
	return nil
}

func (f *fakeRecordStore) ListEvents(_ context.Context, destID string) ([]collector.EventRecord, error) {
	var out []collector.EventRecord
	for _, rec := range f.events {
		if rec.DestinationID == destID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecordStore) InsertEvent(_ context.Context, rec collector.EventRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.events = append(f.events, rec)
	return nil
}

type fakeResolver struct {
	resolved map[string]string
}

func (f *fakeResolver) Resolve(_ context.Context, rawURL string) (string, error) {
	if final, ok := f.resolved[rawURL]; ok {
		return final, nil
	}
	return "", errors.New("no resolution")
}

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

type fakeIDGen struct{ n int }

func (f *fakeIDGen) NewID() (string, error) {
	f.n++
	return fmt.Sprintf("id-%d", f.n), nil
}

func newTestSaver(store *fakeRecordStore, resolver URLResolver, now time.Time) *Saver {
	return NewSaver(store, resolver, &fakeClock{now: now}, &fakeIDGen{}, nil)
}

func TestNormalizeTitleStripsDateSuffixes(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Spring Cleanup", NormalizeTitle("Spring Cleanup | January 30"))
	require.Equal(t, "Spring Cleanup", NormalizeTitle("Spring Cleanup | 2026-01-30"))
	require.Equal(t, "Spring Cleanup", NormalizeTitle("Spring Cleanup | January 30, 2026"))
	require.Equal(t, "Spring Cleanup", NormalizeTitle("Spring Cleanup"))
	require.Equal(t, "Fall | Winter Guide", NormalizeTitle("Fall | Winter Guide"))
}

func TestSaveNewsDedupInvariant(t *testing.T) {
	t.Parallel()

	store := &fakeRecordStore{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	saver := newTestSaver(store, nil, now)

	item := collector.DiscoveredItem{
		Title:     "Towpath Reopens",
		SourceURL: "https://example.org/news/towpath-reopens",
		Date:      "2026-02-20",
	}

	saved, err := saver.SaveNews(context.Background(), "dest-1", []collector.DiscoveredItem{item})
	require.NoError(t, err)
	require.Equal(t, 1, saved)

	saved, err = saver.SaveNews(context.Background(), "dest-1", []collector.DiscoveredItem{item})
	require.NoError(t, err)
	require.Equal(t, 0, saved)
	require.Len(t, store.news, 1)
}

func TestSaveNewsNormalizedTitleCollision(t *testing.T) {
	t.Parallel()

	store := &fakeRecordStore{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	saver := newTestSaver(store, nil, now)

	first := collector.DiscoveredItem{Title: "Spring Cleanup | January 30", Date: "2026-02-20"}
	second := collector.DiscoveredItem{Title: "Spring Cleanup | 2026-01-30", Date: "2026-02-20"}

	saved, err := saver.SaveNews(context.Background(), "dest-1", []collector.DiscoveredItem{first, second})
	require.NoError(t, err)
	require.Equal(t, 1, saved)
}

func TestSaveNewsAgeCutoff(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	exactly365 := now.AddDate(0, 0, -365).Format("2006-01-02")
	days366 := now.AddDate(0, 0, -366).Format("2006-01-02")

	store := &fakeRecordStore{}
	saver := newTestSaver(store, nil, now)

	saved, err := saver.SaveNews(context.Background(), "dest-1", []collector.DiscoveredItem{
		{Title: "Kept", Date: exactly365},
		{Title: "Dropped", Date: days366},
	})
	require.NoError(t, err)
	require.Equal(t, 1, saved)
	require.Equal(t, "Kept", store.news[0].Title)
}

func TestSaveNewsFirstPartyBypassesCutoff(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -400).Format("2006-01-02")

	store := &fakeRecordStore{}
	saver := newTestSaver(store, nil, now)

	saved, err := saver.SaveNews(context.Background(), "dest-1", []collector.DiscoveredItem{
		{Title: "Archive Story", Date: old, FirstParty: true},
	})
	require.NoError(t, err)
	require.Equal(t, 1, saved)
}

func TestSaveEventsDropsPastEvents(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeRecordStore{}
	saver := newTestSaver(store, nil, now)

	saved, err := saver.SaveEvents(context.Background(), "dest-1", []collector.DiscoveredItem{
		{Title: "Yesterday Hike", StartDate: "2026-02-28"},
		{Title: "Today Hike", StartDate: "2026-03-01"},
		{Title: "Ended Long Run", StartDate: "2026-02-01", EndDate: "2026-03-05"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, saved)
}

func TestSaveEventsDuplicateByTitleAndStart(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeRecordStore{
		events: []collector.EventRecord{{
			DestinationID: "dest-1",
			Title:         "Owl Walk",
			StartDate:     "2026-03-10",
		}},
	}
	saver := newTestSaver(store, nil, now)

	saved, err := saver.SaveEvents(context.Background(), "dest-1", []collector.DiscoveredItem{
		{Title: "Owl Walk", StartDate: "2026-03-10"},
		{Title: "Owl Walk", StartDate: "2026-04-10"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, saved)
}

func TestSaveNewsRedirectResolution(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	redirect := "https://vertexaisearch.cloud.google.com/grounding-api-redirect/abc"
	dead := "https://vertexaisearch.cloud.google.com/grounding-api-redirect/dead"

	store := &fakeRecordStore{}
	resolver := &fakeResolver{resolved: map[string]string{
		redirect: "https://example.org/news/final",
	}}
	saver := newTestSaver(store, resolver, now)

	saved, err := saver.SaveNews(context.Background(), "dest-1", []collector.DiscoveredItem{
		{Title: "Resolved Story", SourceURL: redirect, Date: "2026-02-20"},
		{Title: "Dead Redirect", SourceURL: dead, Date: "2026-02-20"},
		{Title: "No URL Story", Date: "2026-02-20"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, saved)
	require.Equal(t, "https://example.org/news/final", store.news[0].URL)
	require.Empty(t, store.news[1].URL)
}

func TestSaveNewsInsertFailureSkipsItem(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeRecordStore{insertErr: errors.New("disk full")}
	saver := newTestSaver(store, nil, now)

	saved, err := saver.SaveNews(context.Background(), "dest-1", []collector.DiscoveredItem{
		{Title: "Unlucky", Date: "2026-02-20"},
	})
	require.NoError(t, err)
	require.Equal(t, 0, saved)
}
