package feed

import (
	log "github.com/sirupsen/logrus"

	"newsfeed/models"
)

// FetchResult is the outcome of fetching a single feed source. A failed
// fetch carries its reason in Err and contributes zero items; it never
// aborts the batch it is part of.
type FetchResult struct {
	Source models.FeedSource
	Items  []models.NormalizedItem
	Err    error
}

func (r FetchResult) OK() bool {
	return r.Err == nil
}

// Flatten merges the per-source results of a fetch batch into a single
// item list. Failed sources are logged and skipped.
func Flatten(results []FetchResult) []models.NormalizedItem {
	items := []models.NormalizedItem{}
	for _, result := range results {
		if !result.OK() {
			log.WithFields(log.Fields{
				"source": result.Source.Name,
				"url":    result.Source.URL,
				"error":  result.Err,
			}).Warn("Feed source failed, skipping")
			continue
		}
		items = append(items, result.Items...)
	}
	return items
}
