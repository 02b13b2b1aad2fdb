package news

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"newsfeed/models"
)

func TestFilterByPreferences_EmptyList(t *testing.T) {
	items := []models.NormalizedItem{
		{GUID: "1", Source: "Tesla"},
		{GUID: "2", Source: "Meta"},
	}

	assert.Empty(t, FilterByPreferences(items, nil))
	assert.Empty(t, FilterByPreferences(items, []string{}))
	assert.Empty(t, FilterByPreferences(items, []string{"", "  "}), "blank preferences count as none")
}

func TestFilterByPreferences_ExactSourceName(t *testing.T) {
	items := []models.NormalizedItem{
		{GUID: "1", Source: "Tesla", Title: "batteries"},
		{GUID: "2", Source: "Meta", Title: "social"},
		{GUID: "3", Source: "Tesla", Title: "cars"},
	}

	matched := FilterByPreferences(items, []string{"Tesla"})
	assert.Len(t, matched, 2)
	for _, item := range matched {
		assert.Equal(t, "Tesla", item.Source)
	}
}

func TestFilterByPreferences_SubstringBothDirections(t *testing.T) {
	items := []models.NormalizedItem{
		{GUID: "1", Source: "Tesla Motors"},
		{GUID: "2", Source: "Meta"},
	}

	// Preference contained in source name
	assert.Len(t, FilterByPreferences(items, []string{"tesla"}), 1)
	// Source name contained in preference
	assert.Len(t, FilterByPreferences(items, []string{"Tesla Motors Incorporated"}), 1)
}

func TestFilterByPreferences_CategoryMatch(t *testing.T) {
	items := []models.NormalizedItem{
		{GUID: "1", Source: "Acme", Categories: []string{"Automotive News"}},
		{GUID: "2", Source: "Acme", Categories: []string{"finance"}},
	}

	matched := FilterByPreferences(items, []string{"automotive"})
	assert.Len(t, matched, 1)
	assert.Equal(t, "1", matched[0].GUID)
}

func TestFilterByPreferences_TitleAndContentMatch(t *testing.T) {
	items := []models.NormalizedItem{
		{GUID: "1", Source: "Acme", Title: "Tesla opens new factory"},
		{GUID: "2", Source: "Acme", ContentText: "A story mentioning tesla in passing"},
		{GUID: "3", Source: "Acme", Title: "Unrelated"},
	}

	matched := FilterByPreferences(items, []string{"Tesla"})
	assert.Len(t, matched, 2)
}

func TestFilterByPreferences_CaseInsensitive(t *testing.T) {
	items := []models.NormalizedItem{
		{GUID: "1", Source: "TESLA"},
	}

	assert.Len(t, FilterByPreferences(items, []string{"tesla"}), 1)
	assert.Len(t, FilterByPreferences(items, []string{"TeSlA"}), 1)
}

func TestFilterByPreferences_NoMatches(t *testing.T) {
	items := []models.NormalizedItem{
		{GUID: "1", Source: "Tesla"},
	}

	matched := FilterByPreferences(items, []string{"SpaceX"})
	assert.NotNil(t, matched)
	assert.Empty(t, matched)
}
