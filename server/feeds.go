package server

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"newsfeed/db"
	"newsfeed/models"
)

type createFeedRequest struct {
	Name        string `json:"name" validate:"required"`
	URL         string `json:"url" validate:"required,url"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

type updateFeedRequest struct {
	Name        *string `json:"name"`
	URL         *string `json:"url"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

func (s *server) handleListFeeds(c *fiber.Ctx) error {
	feeds, err := s.config.DB.ListFeeds(c.Context(), false)
	if err != nil {
		return fmt.Errorf("listing feeds: %w", err)
	}
	if feeds == nil {
		feeds = []models.FeedSource{}
	}

	return c.JSON(fiber.Map{
		"count": len(feeds),
		"feeds": feeds,
	})
}

func (s *server) handleCreateFeed(c *fiber.Ctx) error {
	var req createFeedRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": validationMessages(err)})
	}

	exists, err := s.config.DB.FeedExists(c.Context(), req.Name, req.URL)
	if err != nil {
		return fmt.Errorf("checking feed existence: %w", err)
	}
	if exists {
		return fiber.NewError(fiber.StatusBadRequest, "Feed with this name or URL already exists")
	}

	if _, err := s.config.Fetcher.Probe(c.Context(), req.URL); err != nil {
		log.WithFields(log.Fields{"url": req.URL, "error": err}).Warn("Feed URL validation failed")
		return fiber.NewError(fiber.StatusBadRequest, "Invalid feed URL. Could not fetch valid feed data from the provided URL")
	}

	feed, err := s.config.DB.CreateFeed(c.Context(), models.FeedSource{
		Name:        req.Name,
		URL:         req.URL,
		Category:    req.Category,
		Description: req.Description,
		Active:      true,
	})
	if err != nil {
		return fmt.Errorf("creating feed: %w", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Feed added successfully",
		"feed":    feed,
	})
}

func (s *server) handleUpdateFeed(c *fiber.Ctx) error {
	feed, err := s.config.DB.GetFeed(c.Context(), c.Params("feedId"))
	if errors.Is(err, db.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Feed not found"})
	} else if err != nil {
		return fmt.Errorf("looking up feed: %w", err)
	}

	var req updateFeedRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	// Update only the provided fields
	if req.Name != nil {
		feed.Name = *req.Name
	}
	if req.Category != nil {
		feed.Category = *req.Category
	}
	if req.Description != nil {
		feed.Description = *req.Description
	}
	if req.Active != nil {
		feed.Active = *req.Active
	}
	if req.URL != nil && *req.URL != feed.URL {
		if _, err := s.config.Fetcher.Probe(c.Context(), *req.URL); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid feed URL. Could not fetch valid feed data from the provided URL")
		}
		feed.URL = *req.URL
	}

	if err := s.config.DB.UpdateFeed(c.Context(), feed); err != nil {
		return fmt.Errorf("updating feed: %w", err)
	}

	return c.JSON(fiber.Map{
		"message": "Feed updated successfully",
		"feed":    feed,
	})
}

func (s *server) handleDeleteFeed(c *fiber.Ctx) error {
	feedID := c.Params("feedId")

	err := s.config.DB.DeleteFeed(c.Context(), feedID)
	if errors.Is(err, db.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Feed not found"})
	} else if err != nil {
		return fmt.Errorf("deleting feed: %w", err)
	}

	return c.JSON(fiber.Map{
		"message": "Feed deleted successfully",
		"feedId":  feedID,
	})
}

// handleTestFeed validates a candidate URL by fetching and normalizing it
// without persisting anything.
func (s *server) handleTestFeed(c *fiber.Ctx) error {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.BodyParser(&req); err != nil || req.URL == "" {
		return fiber.NewError(fiber.StatusBadRequest, "URL is required")
	}

	parsed, err := s.config.Fetcher.Probe(c.Context(), req.URL)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid feed URL. Could not fetch valid feed data from the provided URL",
			"valid":   false,
		})
	}

	sample := parsed.Items
	if len(sample) > 3 {
		sample = sample[:3]
	}

	return c.JSON(fiber.Map{
		"message": "Valid feed URL",
		"valid":   true,
		"sampleData": models.FeedSample{
			Title:       parsed.Title,
			ItemCount:   len(parsed.Items),
			SampleItems: sample,
		},
	})
}
