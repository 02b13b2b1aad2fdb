package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"newsfeed/models"
	"newsfeed/news"
)

func queryInt(c *fiber.Ctx, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid %s parameter: %q", name, raw))
	}
	return value, nil
}

func querySort(c *fiber.Ctx) (string, error) {
	sort := strings.ToLower(c.Query("sort", news.SortDesc))
	if sort != news.SortAsc && sort != news.SortDesc {
		return "", fiber.NewError(fiber.StatusBadRequest, "Invalid sort parameter: must be asc or desc")
	}
	return sort, nil
}

func (s *server) handleNews(c *fiber.Ctx) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return err
	}
	if page < 1 {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid page parameter: must be >= 1")
	}

	limit, err := queryInt(c, "limit", s.config.DefaultPageSize)
	if err != nil {
		return err
	}
	if limit < 1 || limit > 100 {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid limit parameter: must be between 1 and 100")
	}

	sort, err := querySort(c)
	if err != nil {
		return err
	}
	noShuffle := c.QueryBool("no_shuffle", false)

	sources, err := s.config.DB.ListFeeds(c.Context(), true)
	if err != nil {
		return fmt.Errorf("listing feed sources: %w", err)
	}

	if len(sources) == 0 {
		return c.JSON(models.NewsPage{
			Success:  true,
			Page:     page,
			PageSize: limit,
			Data:     []models.NormalizedItem{},
			Message:  "No active feed sources found",
		})
	}

	items := s.config.Aggregator.Aggregate(c.Context(), sources, news.Options{
		Sort:       sort,
		Shuffle:    !noShuffle,
		WindowDays: s.config.WindowDays,
	})

	pageItems, totalPages := news.Paginate(items, page, limit)

	response := models.NewsPage{
		Success:    true,
		Count:      len(items),
		Page:       page,
		TotalPages: totalPages,
		PageSize:   limit,
		Data:       pageItems,
	}
	if len(items) == 0 {
		response.Message = "No items found"
	}
	return c.JSON(response)
}

func (s *server) handleNewsCategories(c *fiber.Ctx) error {
	companies, err := s.config.DB.DistinctActiveNames(c.Context())
	if err != nil {
		return fmt.Errorf("listing active source names: %w", err)
	}
	if companies == nil {
		companies = []string{}
	}

	return c.JSON(fiber.Map{
		"count":     len(companies),
		"companies": companies,
	})
}

func (s *server) handlePersonalizedNews(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return err
	}
	if limit < 1 || limit > 100 {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid limit parameter: must be between 1 and 100")
	}

	sort, err := querySort(c)
	if err != nil {
		return err
	}

	user := currentUser(c)
	prefs := user.Preferences
	if prefs == nil {
		prefs = []string{}
	}

	if len(prefs) == 0 {
		return c.JSON(models.PersonalizedNews{
			Personalized: false,
			Preferences:  prefs,
			Items:        []models.NormalizedItem{},
			Message:      "No preferences set",
		})
	}

	sources, err := s.config.DB.ListFeeds(c.Context(), true)
	if err != nil {
		return fmt.Errorf("listing feed sources: %w", err)
	}
	if len(sources) == 0 {
		return c.JSON(models.PersonalizedNews{
			Personalized: true,
			Preferences:  prefs,
			Items:        []models.NormalizedItem{},
			Message:      "No active feed sources found",
		})
	}

	// The personalized view is a relevance feed, so it keeps date order
	// and never shuffles.
	items := s.config.Aggregator.Aggregate(c.Context(), sources, news.Options{
		Sort:       sort,
		WindowDays: s.config.WindowDays,
	})

	matched := news.FilterByPreferences(items, prefs)
	if len(matched) > limit {
		matched = matched[:limit]
	}

	log.WithFields(log.Fields{
		"user":        user.Username,
		"preferences": prefs,
		"matched":     len(matched),
	}).Info("Personalized feed")

	response := models.PersonalizedNews{
		Count:        len(matched),
		Personalized: true,
		Preferences:  prefs,
		Items:        matched,
	}
	if len(matched) == 0 {
		response.Message = "No items match your preferences"
	}
	return c.JSON(response)
}

func (s *server) handleNewsDetails(c *fiber.Ctx) error {
	// Items are recomputed per request and never persisted, so there is
	// nothing to look an id up in.
	return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
		"message": "Feature not implemented",
		"note":    "Retrieval by id requires storing articles in the database",
	})
}
