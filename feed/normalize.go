package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dsh2dsh/bluemonday/v2"
	"github.com/mmcdole/gofeed"

	"newsfeed/models"
)

// ParsedFeed is the normalized form of one fetched feed document.
type ParsedFeed struct {
	Title string
	Items []models.NormalizedItem
}

// Parse normalizes a raw feed body. Bodies that look like JSON go through
// the ordered shape matchers; everything else is handed to the RSS/Atom
// parser. Missing or malformed item fields degrade to documented defaults,
// never to an error.
func Parse(body []byte, source models.FeedSource, fetchedAt time.Time) (*ParsedFeed, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response body")
	}

	if trimmed[0] == '{' || trimmed[0] == '[' {
		if parsed, ok := parseJSONFeed(trimmed, source, fetchedAt); ok {
			return parsed, nil
		}
	}
	return parseXMLFeed(trimmed, source, fetchedAt)
}

// JSON shape matchers, tried in priority order. The first matcher that
// finds an array of item objects wins; a valid JSON document matching no
// shape yields an explicit zero-item feed rather than an error.
var jsonShapes = []struct {
	name  string
	match func(doc map[string]json.RawMessage) ([]json.RawMessage, bool)
}{
	{"items", matchStandardItems},
	{"feed.items", matchNestedFeedItems},
	{"first-array", matchFirstArrayProperty},
}

func matchStandardItems(doc map[string]json.RawMessage) ([]json.RawMessage, bool) {
	return rawArray(doc["items"])
}

func matchNestedFeedItems(doc map[string]json.RawMessage) ([]json.RawMessage, bool) {
	raw, ok := doc["feed"]
	if !ok {
		return nil, false
	}
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, false
	}
	return rawArray(nested["items"])
}

// matchFirstArrayProperty scans keys in sorted order so the chosen
// property does not depend on map iteration order.
func matchFirstArrayProperty(doc map[string]json.RawMessage) ([]json.RawMessage, bool) {
	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if arr, ok := rawArray(doc[key]); ok && len(arr) > 0 {
			return arr, true
		}
	}
	return nil, false
}

func rawArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, false
	}
	return arr, true
}

func parseJSONFeed(body []byte, source models.FeedSource, fetchedAt time.Time) (*ParsedFeed, bool) {
	var rawItems []json.RawMessage
	title := source.Name

	if body[0] == '[' {
		// Bare top-level array
		arr, ok := rawArray(body)
		if !ok {
			return nil, false
		}
		rawItems = arr
	} else {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, false
		}

		if raw, ok := doc["title"]; ok {
			var t string
			if err := json.Unmarshal(raw, &t); err == nil && t != "" {
				title = t
			}
		}

		for _, shape := range jsonShapes {
			if arr, ok := shape.match(doc); ok {
				rawItems = arr
				break
			}
		}
	}

	items := []models.NormalizedItem{}
	for _, raw := range rawItems {
		var item map[string]any
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		items = append(items, normalizeJSONItem(item, source, fetchedAt))
	}
	return &ParsedFeed{Title: title, Items: items}, true
}

func normalizeJSONItem(item map[string]any, source models.FeedSource, fetchedAt time.Time) models.NormalizedItem {
	title := firstString(item, "title")
	if title == "" {
		title = "No Title"
	}

	link := firstString(item, "url", "link", "external_url")

	content := firstString(item, "content_text")
	if content == "" {
		content = stripHTML(firstString(item, "content_html", "content", "description", "summary"))
	}

	date, ok := parseDate(firstString(item, "date_published", "published", "pubDate", "date", "date_modified", "updated"))
	if !ok {
		date = fetchedAt
	}

	author := jsonAuthor(item)
	if author == "" {
		author = source.Name
	}

	guid := firstString(item, "id", "guid")
	if guid == "" {
		guid = fallbackGUID(source.Name, title, link, date)
	}

	return models.NormalizedItem{
		GUID:           guid,
		Title:          title,
		Link:           link,
		ContentText:    content,
		DatePublished:  date,
		Author:         author,
		Image:          jsonImage(item),
		Categories:     jsonCategories(item),
		Source:         source.Name,
		SourceCategory: source.Category,
	}
}

func parseXMLFeed(body []byte, source models.FeedSource, fetchedAt time.Time) (*ParsedFeed, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]models.NormalizedItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		items = append(items, normalizeXMLItem(item, source, fetchedAt))
	}

	title := parsed.Title
	if title == "" {
		title = source.Name
	}
	return &ParsedFeed{Title: title, Items: items}, nil
}

func normalizeXMLItem(item *gofeed.Item, source models.FeedSource, fetchedAt time.Time) models.NormalizedItem {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = "No Title"
	}

	content := stripHTML(item.Content)
	if content == "" {
		content = stripHTML(item.Description)
	}

	date := fetchedAt
	if item.PublishedParsed != nil {
		date = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		date = *item.UpdatedParsed
	}

	author := xmlAuthor(item)
	if author == "" {
		author = source.Name
	}

	guid := item.GUID
	if guid == "" {
		guid = fallbackGUID(source.Name, title, item.Link, date)
	}

	categories := item.Categories
	if categories == nil {
		categories = []string{}
	}

	return models.NormalizedItem{
		GUID:           guid,
		Title:          title,
		Link:           item.Link,
		ContentText:    content,
		DatePublished:  date,
		Author:         author,
		Image:          xmlImage(item),
		Categories:     categories,
		Source:         source.Name,
		SourceCategory: source.Category,
	}
}

func xmlAuthor(item *gofeed.Item) string {
	for _, person := range item.Authors {
		if person != nil && person.Name != "" {
			return person.Name
		}
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		return item.DublinCoreExt.Creator[0]
	}
	return ""
}

// xmlImage resolves an item image from, in order: the feed-level image
// element, an image enclosure, a media:content/media:thumbnail extension,
// and finally an <img> tag embedded in the item HTML.
func xmlImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}

	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if enc.Type == "" || strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}

	if media, ok := item.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range media[key] {
				if url := ext.Attrs["url"]; url != "" {
					return url
				}
			}
		}
	}

	if src := extractImgSrc(item.Content); src != "" {
		return src
	}
	return extractImgSrc(item.Description)
}

var (
	strictPolicy  = bluemonday.StrictPolicy()
	imgSrcPattern = regexp.MustCompile(`(?i)<img[^>]+src=["']?([^"'\s>]+)`)
)

func stripHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

func extractImgSrc(content string) string {
	match := imgSrcPattern.FindStringSubmatch(content)
	if match == nil {
		return ""
	}
	return match[1]
}

// fallbackGUID derives a stable identifier for items lacking one, so that
// repeated fetches of the same feed produce the same ids and cross-page
// deduplication works.
func fallbackGUID(source, title, link string, date time.Time) string {
	h := xxhash.New()
	h.WriteString(source)
	h.WriteString("|")
	h.WriteString(title)
	h.WriteString("|")
	h.WriteString(link)
	h.WriteString("|")
	h.WriteString(date.UTC().Format(time.RFC3339))
	return fmt.Sprintf("%016x", h.Sum64())
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999Z07:00",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func firstString(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := item[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringOrField(v any, field string) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case map[string]any:
		if s, ok := val[field].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func jsonAuthor(item map[string]any) string {
	if authors, ok := item["authors"].([]any); ok {
		for _, entry := range authors {
			if name := stringOrField(entry, "name"); name != "" {
				return name
			}
		}
	}
	return stringOrField(item["author"], "name")
}

// jsonImage resolves an item image from, in order: a direct image field, a
// thumbnail object or string, an enclosure or attachment URL, and finally
// an <img> tag embedded in the item HTML.
func jsonImage(item map[string]any) string {
	if url := firstString(item, "image", "banner_image"); url != "" {
		return url
	}
	if url := stringOrField(item["image"], "url"); url != "" {
		return url
	}
	if url := stringOrField(item["thumbnail"], "url"); url != "" {
		return url
	}
	if url := stringOrField(item["enclosure"], "url"); url != "" {
		return url
	}
	if attachments, ok := item["attachments"].([]any); ok {
		for _, entry := range attachments {
			mime := stringOrField(entry, "mime_type")
			if mime != "" && !strings.HasPrefix(mime, "image/") {
				continue
			}
			if url := stringOrField(entry, "url"); url != "" {
				return url
			}
		}
	}
	return extractImgSrc(firstString(item, "content_html", "content", "description"))
}

func jsonCategories(item map[string]any) []string {
	categories := []string{}
	for _, key := range []string{"categories", "tags"} {
		arr, ok := item[key].([]any)
		if !ok {
			continue
		}
		for _, entry := range arr {
			if s, ok := entry.(string); ok && s != "" {
				categories = append(categories, s)
			}
		}
		if len(categories) > 0 {
			break
		}
	}
	return categories
}
