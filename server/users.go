package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"newsfeed/db"
	"newsfeed/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type registerRequest struct {
	Username    string   `json:"username" validate:"required,min=3"`
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=6"`
	Preferences []string `json:"preferences" validate:"max=3"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type preferencesRequest struct {
	Preferences []string `json:"preferences" validate:"required,max=3"`
}

// validationMessages flattens validator errors into a field -> message
// map suitable for a 400 response body.
func validationMessages(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": err.Error()}
	}

	messages := map[string]string{}
	for _, fieldErr := range verrs {
		field := strings.ToLower(fieldErr.Field())
		switch fieldErr.Tag() {
		case "required":
			messages[field] = capitalize(field) + " is required"
		case "min":
			messages[field] = fmt.Sprintf("%s must be at least %s characters long", capitalize(field), fieldErr.Param())
		case "email":
			messages[field] = "Please provide a valid email address"
		case "max":
			messages[field] = fmt.Sprintf("Maximum %s preferences allowed", fieldErr.Param())
		case "url":
			messages[field] = "Please provide a valid URL"
		default:
			messages[field] = capitalize(field) + " is invalid"
		}
	}
	return messages
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func userEcho(user models.User) fiber.Map {
	return fiber.Map{
		"id":          user.ID,
		"username":    user.Username,
		"email":       user.Email,
		"preferences": user.Preferences,
	}
}

func (s *server) handleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": validationMessages(err)})
	}

	exists, err := s.config.DB.UserExists(c.Context(), req.Username, req.Email)
	if err != nil {
		return fmt.Errorf("checking user existence: %w", err)
	}
	if exists {
		return fiber.NewError(fiber.StatusBadRequest, "User already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 10)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	prefs := req.Preferences
	if prefs == nil {
		prefs = []string{}
	}

	user, err := s.config.DB.CreateUser(c.Context(), models.User{
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
		Preferences:  prefs,
	})
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    userEcho(user),
	})
}

func (s *server) handleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Username and password are required")
	}

	// A missing user and a wrong password produce the same response, so
	// the endpoint does not leak which usernames exist.
	user, err := s.config.DB.GetUserByUsername(c.Context(), req.Username)
	if errors.Is(err, db.ErrNotFound) {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid credentials")
	} else if err != nil {
		return fmt.Errorf("looking up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid credentials")
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    userEcho(user),
	})
}

func (s *server) handleGetPreferences(c *fiber.Ctx) error {
	user := currentUser(c)
	return c.JSON(fiber.Map{"preferences": user.Preferences})
}

func (s *server) handleUpdatePreferences(c *fiber.Ctx) error {
	var req preferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Preferences == nil {
		return fiber.NewError(fiber.StatusBadRequest, "Preferences are required")
	}
	if len(req.Preferences) > 3 {
		return fiber.NewError(fiber.StatusBadRequest, "Maximum 3 preferences allowed")
	}

	user := currentUser(c)
	if err := s.config.DB.SetPreferences(c.Context(), user.ID, req.Preferences); err != nil {
		return fmt.Errorf("updating preferences: %w", err)
	}

	return c.JSON(fiber.Map{
		"message":     "Preferences updated successfully",
		"preferences": req.Preferences,
	})
}

// The mobile client calls these after bookmarking locally; the server only
// acknowledges, bookmarks live on the device.
func (s *server) handleSaveArticle(c *fiber.Ctx) error {
	return handleArticleAck(c, "Article saved successfully")
}

func (s *server) handleMarkArticleRead(c *fiber.Ctx) error {
	return handleArticleAck(c, "Article marked as read")
}

func handleArticleAck(c *fiber.Ctx, message string) error {
	var req struct {
		ArticleID string `json:"articleId"`
	}
	if err := c.BodyParser(&req); err != nil || req.ArticleID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Article ID is required")
	}
	return c.JSON(fiber.Map{
		"message":   message,
		"articleId": req.ArticleID,
	})
}
