package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsfeed/feed"
	"newsfeed/models"
)

func testAggregator() *Aggregator {
	return NewAggregator(feed.NewFetcher(2*time.Second, 0, "newsfeed-test/1.0"))
}

func jsonFeedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func failingFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	return server
}

func itemsBody(count int, day int) string {
	body := `{"items": [`
	for i := 0; i < count; i++ {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(
			`{"id": "item-%d-%d", "title": "item %d", "date_published": %q}`,
			day, i, i, time.Now().AddDate(0, 0, -day).Add(-time.Duration(i)*time.Minute).Format(time.RFC3339),
		)
	}
	return body + `]}`
}

func TestAggregate_PartialFailure(t *testing.T) {
	sources := []models.FeedSource{
		{Name: "two", URL: jsonFeedServer(t, itemsBody(2, 1)).URL, Category: "a", Active: true},
		{Name: "failing", URL: failingFeedServer(t).URL, Category: "b", Active: true},
		{Name: "five", URL: jsonFeedServer(t, itemsBody(5, 2)).URL, Category: "c", Active: true},
	}

	items := testAggregator().Aggregate(context.Background(), sources, Options{Sort: SortDesc})

	assert.Len(t, items, 7, "failing source contributes zero items without aborting the batch")

	bySource := map[string]int{}
	for _, item := range items {
		bySource[item.Source]++
	}
	assert.Equal(t, 2, bySource["two"])
	assert.Equal(t, 5, bySource["five"])
	assert.Zero(t, bySource["failing"])
}

func TestAggregate_AllSourcesFailing(t *testing.T) {
	sources := []models.FeedSource{
		{Name: "a", URL: failingFeedServer(t).URL, Active: true},
		{Name: "b", URL: failingFeedServer(t).URL, Active: true},
	}

	items := testAggregator().Aggregate(context.Background(), sources, Options{Sort: SortDesc})
	assert.Empty(t, items)
}

func TestAggregate_SortOrder(t *testing.T) {
	sources := []models.FeedSource{
		{Name: "one", URL: jsonFeedServer(t, itemsBody(3, 1)).URL, Active: true},
		{Name: "two", URL: jsonFeedServer(t, itemsBody(3, 2)).URL, Active: true},
	}

	desc := testAggregator().Aggregate(context.Background(), sources, Options{Sort: SortDesc})
	require.Len(t, desc, 6)
	for i := 1; i < len(desc); i++ {
		assert.False(t, desc[i].DatePublished.After(desc[i-1].DatePublished), "descending order")
	}

	asc := testAggregator().Aggregate(context.Background(), sources, Options{Sort: SortAsc})
	require.Len(t, asc, 6)
	for i := 1; i < len(asc); i++ {
		assert.False(t, asc[i].DatePublished.Before(asc[i-1].DatePublished), "ascending order")
	}
}

func TestAggregate_RecencyWindow(t *testing.T) {
	sources := []models.FeedSource{
		{Name: "fresh", URL: jsonFeedServer(t, itemsBody(2, 1)).URL, Active: true},
		{Name: "stale", URL: jsonFeedServer(t, itemsBody(3, 30)).URL, Active: true},
	}

	items := testAggregator().Aggregate(context.Background(), sources, Options{Sort: SortDesc, WindowDays: 10})
	assert.Len(t, items, 2, "items older than the window are dropped")
	for _, item := range items {
		assert.Equal(t, "fresh", item.Source)
	}

	all := testAggregator().Aggregate(context.Background(), sources, Options{Sort: SortDesc})
	assert.Len(t, all, 5, "window disabled when zero")
}

func TestAggregate_DeduplicatesByGUID(t *testing.T) {
	body := `{"items": [{"id": "dup", "title": "a"}, {"id": "dup", "title": "a again"}, {"id": "other", "title": "b"}]}`
	sources := []models.FeedSource{
		{Name: "one", URL: jsonFeedServer(t, body).URL, Active: true},
	}

	items := testAggregator().Aggregate(context.Background(), sources, Options{Sort: SortDesc})
	assert.Len(t, items, 2)
}

func TestAggregate_ShufflePreservesItemSet(t *testing.T) {
	sources := []models.FeedSource{
		{Name: "one", URL: jsonFeedServer(t, itemsBody(20, 1)).URL, Active: true},
	}

	sorted := testAggregator().Aggregate(context.Background(), sources, Options{Sort: SortDesc})
	shuffled := testAggregator().Aggregate(context.Background(), sources, Options{Sort: SortDesc, Shuffle: true})

	require.Len(t, shuffled, len(sorted))
	guids := func(items []models.NormalizedItem) map[string]bool {
		set := map[string]bool{}
		for _, item := range items {
			set[item.GUID] = true
		}
		return set
	}
	assert.Equal(t, guids(sorted), guids(shuffled), "shuffle reorders but never adds or drops items")
}

func makeItems(n int) []models.NormalizedItem {
	items := make([]models.NormalizedItem, n)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range items {
		items[i] = models.NormalizedItem{
			GUID:          fmt.Sprintf("g-%d", i),
			DatePublished: base.Add(-time.Duration(i) * time.Hour),
		}
	}
	return items
}

func TestPaginate(t *testing.T) {
	items := makeItems(7)

	tests := []struct {
		name           string
		page, pageSize int
		wantLen        int
		wantPages      int
	}{
		{"first page", 1, 3, 3, 3},
		{"middle page", 2, 3, 3, 3},
		{"last partial page", 3, 3, 1, 3},
		{"past the end", 4, 3, 0, 3},
		{"page size one", 7, 1, 1, 7},
		{"page size larger than set", 1, 100, 7, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, totalPages := Paginate(items, tt.page, tt.pageSize)
			assert.Len(t, page, tt.wantLen)
			assert.Equal(t, tt.wantPages, totalPages)
		})
	}
}

// Concatenating all pages reproduces the full set with no duplicates and
// no omissions, for any page size.
func TestPaginate_Law(t *testing.T) {
	items := makeItems(11)

	for pageSize := 1; pageSize <= len(items)+1; pageSize++ {
		var rebuilt []models.NormalizedItem
		_, totalPages := Paginate(items, 1, pageSize)
		for page := 1; page <= totalPages; page++ {
			pageItems, _ := Paginate(items, page, pageSize)
			rebuilt = append(rebuilt, pageItems...)
		}
		assert.Equal(t, items, rebuilt, "page size %d", pageSize)
	}
}

func TestPaginate_Empty(t *testing.T) {
	page, totalPages := Paginate(nil, 1, 10)
	assert.Empty(t, page)
	assert.Zero(t, totalPages)
}
