package persist

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rootsofthevalley/content-collector/internal/collector"
	"github.com/rootsofthevalley/content-collector/internal/matcher"
	"github.com/rootsofthevalley/content-collector/internal/metrics"
)

// newsMaxAgeDays is the news cutoff: items older than this are dropped
// unless they came from a trusted first-party page.
const newsMaxAgeDays = 365

const isoDate = "2006-01-02"

// URLResolver follows indirection URLs to their final destination.
type URLResolver interface {
	Resolve(ctx context.Context, rawURL string) (string, error)
}

// Saver applies redirect resolution, temporal filters, and duplicate checks
// before inserting discovered items.
//
// The duplicate check and the insert are two separate statements, not one
// transaction. The residual race is accepted: a destination is processed by
// at most one worker at a time, so no second writer races the check.
type Saver struct {
	records  collector.RecordStore
	resolver URLResolver
	clock    collector.Clock
	ids      collector.IDGenerator
	logger   *zap.Logger
}

// NewSaver constructs a Saver.
func NewSaver(
	records collector.RecordStore,
	resolver URLResolver,
	clock collector.Clock,
	ids collector.IDGenerator,
	logger *zap.Logger,
) *Saver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Saver{
		records:  records,
		resolver: resolver,
		clock:    clock,
		ids:      ids,
		logger:   logger,
	}
}

// SaveNews persists the news items that survive resolution, the age cutoff,
// and the duplicate check. Per-item insert failures are logged and counted
// as not-saved; they never abort the pass.
func (s *Saver) SaveNews(ctx context.Context, destinationID string, items []collector.DiscoveredItem) (int, error) {
	existing, err := s.records.ListNews(ctx, destinationID)
	if err != nil {
		return 0, fmt.Errorf("list news for dedup: %w", err)
	}
	cutoff := s.clock.Now().UTC().AddDate(0, 0, -newsMaxAgeDays).Format(isoDate)

	saved := 0
	for _, item := range items {
		resolvedURL, ok := s.resolveURL(ctx, item.SourceURL)
		if !ok {
			continue
		}
		// ISO string comparison on purpose: parsing into time.Time risks a
		// day of timezone drift.
		if !item.FirstParty && item.Date != "" && item.Date < cutoff {
			continue
		}
		if newsDuplicate(existing, item, resolvedURL) {
			metrics.DuplicatesSkipped.WithLabelValues(string(collector.KindNews)).Inc()
			continue
		}
		rec, err := s.newNewsRecord(destinationID, item, resolvedURL)
		if err != nil {
			return saved, err
		}
		if err := s.records.InsertNews(ctx, rec); err != nil {
			s.logger.Warn("news insert failed",
				zap.String("destination_id", destinationID),
				zap.String("title", item.Title),
				zap.Error(err),
			)
			continue
		}
		existing = append(existing, rec)
		saved++
		metrics.ItemsPersisted.WithLabelValues(string(collector.KindNews)).Inc()
	}
	return saved, nil
}

// SaveEvents persists event items. Events whose end date (falling back to
// the start date) is strictly before today are dropped unconditionally.
func (s *Saver) SaveEvents(ctx context.Context, destinationID string, items []collector.DiscoveredItem) (int, error) {
	existing, err := s.records.ListEvents(ctx, destinationID)
	if err != nil {
		return 0, fmt.Errorf("list events for dedup: %w", err)
	}
	today := s.clock.Now().UTC().Format(isoDate)

	saved := 0
	for _, item := range items {
		resolvedURL, ok := s.resolveURL(ctx, item.SourceURL)
		if !ok {
			continue
		}
		last := item.EndDate
		if last == "" {
			last = item.StartDate
		}
		if last != "" && last < today {
			continue
		}
		if eventDuplicate(existing, item, resolvedURL) {
			metrics.DuplicatesSkipped.WithLabelValues(string(collector.KindEvent)).Inc()
			continue
		}
		rec, err := s.newEventRecord(destinationID, item, resolvedURL)
		if err != nil {
			return saved, err
		}
		if err := s.records.InsertEvent(ctx, rec); err != nil {
			s.logger.Warn("event insert failed",
				zap.String("destination_id", destinationID),
				zap.String("title", item.Title),
				zap.Error(err),
			)
			continue
		}
		existing = append(existing, rec)
		saved++
		metrics.ItemsPersisted.WithLabelValues(string(collector.KindEvent)).Inc()
	}
	return saved, nil
}

// resolveURL passes non-redirect URLs through untouched. A redirect URL that
// fails to resolve drops the item (false); an absent URL is kept as-is.
func (s *Saver) resolveURL(ctx context.Context, rawURL string) (string, bool) {
	if rawURL == "" || !matcher.IsRedirectURL(rawURL) {
		return rawURL, true
	}
	if s.resolver == nil {
		return "", false
	}
	final, err := s.resolver.Resolve(ctx, rawURL)
	if err != nil {
		s.logger.Debug("redirect resolution failed", zap.String("url", rawURL), zap.Error(err))
		return "", false
	}
	return final, true
}

func (s *Saver) newNewsRecord(destinationID string, item collector.DiscoveredItem, url string) (collector.NewsRecord, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return collector.NewsRecord{}, fmt.Errorf("generate news id: %w", err)
	}
	return collector.NewsRecord{
		ID:            id,
		DestinationID: destinationID,
		Title:         item.Title,
		Summary:       firstNonEmpty(item.Summary, item.Description),
		URL:           url,
		SourceName:    item.SourceName,
		PublishedDate: item.Date,
		CreatedAt:     s.clock.Now().UTC(),
	}, nil
}

func (s *Saver) newEventRecord(destinationID string, item collector.DiscoveredItem, url string) (collector.EventRecord, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return collector.EventRecord{}, fmt.Errorf("generate event id: %w", err)
	}
	return collector.EventRecord{
		ID:            id,
		DestinationID: destinationID,
		Title:         item.Title,
		Description:   firstNonEmpty(item.Description, item.Summary),
		URL:           url,
		SourceName:    item.SourceName,
		StartDate:     item.StartDate,
		EndDate:       item.EndDate,
		CreatedAt:     s.clock.Now().UTC(),
	}, nil
}

func newsDuplicate(existing []collector.NewsRecord, item collector.DiscoveredItem, url string) bool {
	normalized := NormalizeTitle(item.Title)
	for _, rec := range existing {
		if url != "" && rec.URL == url {
			return true
		}
		if rec.Title == item.Title {
			return true
		}
		if NormalizeTitle(rec.Title) == normalized {
			return true
		}
	}
	return false
}

func eventDuplicate(existing []collector.EventRecord, item collector.DiscoveredItem, url string) bool {
	for _, rec := range existing {
		if url != "" && rec.URL == url {
			return true
		}
		if rec.Title == item.Title && rec.StartDate == item.StartDate {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
