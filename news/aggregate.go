package news

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"newsfeed/feed"
	"newsfeed/models"
)

// Sort orders for the aggregated item list.
const (
	SortDesc = "desc"
	SortAsc  = "asc"
)

// Options controls one aggregation run. Shuffle and date order are
// mutually exclusive presentation modes: with Shuffle set the sorted
// order is discarded before pagination.
type Options struct {
	Sort       string
	Shuffle    bool
	WindowDays int
}

// Aggregator merges the items of many feed sources into one list.
type Aggregator struct {
	fetcher *feed.Fetcher
}

func NewAggregator(fetcher *feed.Fetcher) *Aggregator {
	return &Aggregator{fetcher: fetcher}
}

// Aggregate fans out one fetch per source, waits for all of them to
// settle, and merges whatever succeeded. A failing source contributes
// zero items; the batch itself never fails.
func (a *Aggregator) Aggregate(ctx context.Context, sources []models.FeedSource, opts Options) []models.NormalizedItem {
	results := make([]feed.FetchResult, len(sources))

	var wg sync.WaitGroup
	for i, source := range sources {
		wg.Add(1)
		go func(i int, source models.FeedSource) {
			defer wg.Done()
			results[i] = a.fetcher.Fetch(ctx, source)
		}(i, source)
	}
	wg.Wait()

	items := feed.Flatten(results)
	items = lo.UniqBy(items, func(item models.NormalizedItem) string { return item.GUID })

	if opts.WindowDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -opts.WindowDays)
		items = lo.Filter(items, func(item models.NormalizedItem, _ int) bool {
			return !item.DatePublished.Before(cutoff)
		})
	}

	sortByDate(items, opts.Sort)

	if opts.Shuffle {
		items = lo.Shuffle(items)
	}

	log.WithFields(log.Fields{
		"sources": len(sources),
		"items":   len(items),
		"shuffle": opts.Shuffle,
	}).Info("Aggregated feed sources")

	return items
}

// sortByDate sorts by publish date, newest first unless asc is requested.
// The sort is stable so equal timestamps keep their merge order.
func sortByDate(items []models.NormalizedItem, order string) {
	asc := order == SortAsc
	sort.SliceStable(items, func(i, j int) bool {
		if asc {
			return items[i].DatePublished.Before(items[j].DatePublished)
		}
		return items[i].DatePublished.After(items[j].DatePublished)
	})
}

// Paginate slices out the requested 1-based page and reports the total
// page count. Pages past the end are empty, not an error.
func Paginate(items []models.NormalizedItem, page, pageSize int) ([]models.NormalizedItem, int) {
	if pageSize < 1 {
		pageSize = 1
	}
	if page < 1 {
		page = 1
	}

	totalPages := (len(items) + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start >= len(items) {
		return []models.NormalizedItem{}, totalPages
	}
	end := min(start+pageSize, len(items))
	return items[start:end], totalPages
}
