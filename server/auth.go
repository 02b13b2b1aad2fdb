package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"newsfeed/db"
	"newsfeed/models"
)

const localsUserKey = "user"

// authenticate resolves a caller-supplied userId (route param, query
// parameter or body field) to a stored user. There is no token or
// signature verification; the identifier itself is the credential.
func (s *server) authenticate(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		userID = c.Query("userId")
	}
	if userID == "" {
		var body struct {
			UserID string `json:"userId"`
		}
		if err := c.BodyParser(&body); err == nil {
			userID = body.UserID
		}
	}

	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication required. Please provide userId",
		})
	}

	user, err := s.config.DB.GetUser(c.Context(), userID)
	if errors.Is(err, db.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "User not found"})
	} else if err != nil {
		return err
	}

	c.Locals(localsUserKey, user)
	return c.Next()
}

func currentUser(c *fiber.Ctx) models.User {
	user, _ := c.Locals(localsUserKey).(models.User)
	return user
}
