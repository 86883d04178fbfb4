package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/Rawann0m/EcoNest-sub000/internal/httpx"
	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"github.com/Rawann0m/EcoNest-sub000/internal/service"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func getenv(key string) string {
	return os.Getenv(key)
}

func cookieSecure() bool {
	return strings.EqualFold(strings.TrimSpace(getenv("COOKIE_SECURE")), "true")
}

// setAuthCookies installs the browser-facing session cookies. Mobile
// clients ignore these and use the tokens from the response body.
func setAuthCookies(c *fiber.Ctx, result *service.AuthResponse) {
	secure := cookieSecure()

	c.Cookie(&fiber.Cookie{
		Name:     "en_access",
		Value:    result.AccessToken,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: "Lax",
		Path:     "/",
		Expires:  time.Now().Add(15 * time.Minute),
	})
	c.Cookie(&fiber.Cookie{
		Name:     "en_refresh",
		Value:    result.RefreshToken,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: "Lax",
		Path:     "/api/auth",
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})

	// CSRF double-submit token, readable by the frontend.
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err == nil {
		c.Cookie(&fiber.Cookie{
			Name:     "en_csrf",
			Value:    hex.EncodeToString(buf),
			HTTPOnly: false,
			Secure:   secure,
			SameSite: "Lax",
			Path:     "/",
			Expires:  time.Now().Add(30 * 24 * time.Hour),
		})
	}
}

func clearAuthCookies(c *fiber.Ctx) {
	expired := time.Now().Add(-time.Hour)
	c.Cookie(&fiber.Cookie{Name: "en_access", Value: "", Path: "/", HTTPOnly: true, Expires: expired})
	c.Cookie(&fiber.Cookie{Name: "en_refresh", Value: "", Path: "/api/auth", HTTPOnly: true, Expires: expired})
	c.Cookie(&fiber.Cookie{Name: "en_csrf", Value: "", Path: "/", Expires: expired})
}

// CSRF issues a fresh double-submit token for browser clients that
// lost theirs (new tab, cleared cookies).
func (h *AuthHandler) CSRF(c *fiber.Ctx) error {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return httpx.Internal(c, "csrf_failed")
	}
	token := hex.EncodeToString(buf)

	c.Cookie(&fiber.Cookie{
		Name:     "en_csrf",
		Value:    token,
		HTTPOnly: false,
		Secure:   cookieSecure(),
		SameSite: "Lax",
		Path:     "/",
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})

	return c.JSON(fiber.Map{"csrf": token})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input service.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	if input.Email == "" || input.Password == "" || input.Username == "" {
		return httpx.BadRequest(c, "missing_fields", "Email, username, and password are required")
	}

	result, err := h.authService.Register(input)
	if err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return httpx.Error(c, fiber.StatusConflict, "already_registered", "Email or username already in use")
		}
		return httpx.BadRequest(c, "register_failed", err.Error())
	}

	setAuthCookies(c, result)
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input service.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	if input.Email == "" || input.Password == "" {
		return httpx.BadRequest(c, "missing_fields", "Email and password are required")
	}

	result, err := h.authService.Login(input)
	if err != nil {
		return httpx.Unauthorized(c, "invalid_credentials", "Invalid email or password")
	}

	setAuthCookies(c, result)
	return c.JSON(result)
}

// Refresh rotates the refresh token. The old token is revoked whether
// rotation succeeds or not.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.BodyParser(&body)

	token := strings.TrimSpace(body.RefreshToken)
	if token == "" {
		token = c.Cookies("en_refresh")
	}
	if token == "" {
		return httpx.Unauthorized(c, "missing_refresh_token", "Missing refresh token")
	}

	result, err := h.authService.Refresh(token)
	if err != nil {
		clearAuthCookies(c)
		return httpx.Unauthorized(c, "invalid_refresh_token", "Invalid or expired refresh token")
	}

	setAuthCookies(c, result)
	return c.JSON(result)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.BodyParser(&body)

	token := strings.TrimSpace(body.RefreshToken)
	if token == "" {
		token = c.Cookies("en_refresh")
	}
	if token != "" {
		_ = h.authService.Logout(token)
	}

	clearAuthCookies(c)
	return c.JSON(fiber.Map{"ok": true})
}

// LogoutAll revokes every session the authenticated user holds.
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	if err := h.authService.LogoutAll(userID); err != nil {
		return httpx.Internal(c, "logout_all_failed")
	}

	clearAuthCookies(c)
	return c.JSON(fiber.Map{"ok": true})
}
