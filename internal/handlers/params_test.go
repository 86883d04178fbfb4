package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestParamUint(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected uint
	}{
		{"Numeric id", "/communities/42", 42},
		{"Large id", "/communities/4294967295", 4294967295},
		{"Non-numeric id", "/communities/abc", 0},
		{"Negative id", "/communities/-7", 0},
		{"Overflowing id", "/communities/99999999999999999999", 0},
	}

	app := fiber.New()
	var got uint
	app.Get("/communities/:communityID", func(c *fiber.Ctx) error {
		got = paramUint(c, "communityID")
		return c.SendStatus(fiber.StatusOK)
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			resp.Body.Close()
			if got != tt.expected {
				t.Errorf("paramUint(%q) = %d, want %d", tt.path, got, tt.expected)
			}
		})
	}
}
