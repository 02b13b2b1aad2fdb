package news

import (
	"strings"

	"newsfeed/models"
)

// FilterByPreferences returns the items considered relevant to the given
// preference strings. Matching is a loose, case-insensitive substring
// heuristic: a preference does not have to align exactly with feed source
// naming, so false positives are accepted. An empty preference list
// yields an empty result, not the full set.
func FilterByPreferences(items []models.NormalizedItem, prefs []string) []models.NormalizedItem {
	normalized := make([]string, 0, len(prefs))
	for _, pref := range prefs {
		pref = strings.ToLower(strings.TrimSpace(pref))
		if pref != "" {
			normalized = append(normalized, pref)
		}
	}

	matched := []models.NormalizedItem{}
	if len(normalized) == 0 {
		return matched
	}

	for _, item := range items {
		if matchesPreferences(item, normalized) {
			matched = append(matched, item)
		}
	}
	return matched
}

func matchesPreferences(item models.NormalizedItem, prefs []string) bool {
	source := strings.ToLower(item.Source)
	title := strings.ToLower(item.Title)
	content := strings.ToLower(item.ContentText)

	for _, pref := range prefs {
		// Source name matches in either direction: "Tesla" should catch
		// "Tesla Motors" and vice versa.
		if strings.Contains(source, pref) || strings.Contains(pref, source) {
			return true
		}

		for _, category := range item.Categories {
			category = strings.ToLower(category)
			if strings.Contains(category, pref) || strings.Contains(pref, category) {
				return true
			}
		}

		if strings.Contains(title, pref) || strings.Contains(content, pref) {
			return true
		}
	}
	return false
}
