package validation

import (
	"net/mail"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

func ValidateUsername(username string) bool {
	username = NormalizeUsername(username)
	return usernameRe.MatchString(username)
}

func PasswordMinLength() int {
	minStr := os.Getenv("PASSWORD_MIN_LENGTH")
	if minStr == "" {
		return 10
	}
	min, err := strconv.Atoi(minStr)
	if err != nil || min < 8 {
		return 10
	}
	return min
}

func ValidatePassword(password string) bool {
	return len(password) >= PasswordMinLength()
}

func MaxPartLength() int {
	maxStr := os.Getenv("MAX_PART_LENGTH")
	if maxStr == "" {
		return 4000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 4000
	}
	return max
}

func MaxParts() int {
	maxStr := os.Getenv("MAX_PARTS")
	if maxStr == "" {
		return 20
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 20
	}
	return max
}

func TrimAndLimit(s string, max int) string {
	s = strings.TrimSpace(s)
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}

// NormalizeParts trims, bounds, and validates a content-part sequence.
// Text parts must be non-empty after trimming; image parts must carry
// a parseable http(s) URL. Returns the cleaned parts and whether the
// sequence is usable.
func NormalizeParts(parts models.ContentParts) (models.ContentParts, bool) {
	if len(parts) == 0 || len(parts) > MaxParts() {
		return nil, false
	}
	out := make(models.ContentParts, 0, len(parts))
	for _, p := range parts {
		switch p.Kind {
		case models.TextPart:
			text := TrimAndLimit(p.Text, MaxPartLength())
			if text == "" {
				continue
			}
			out = append(out, models.ContentPart{Kind: models.TextPart, Text: text})
		case models.ImagePart:
			u, err := url.Parse(strings.TrimSpace(p.URL))
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return nil, false
			}
			out = append(out, models.ContentPart{Kind: models.ImagePart, URL: u.String()})
		default:
			return nil, false
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func NormalizeCommunityName(name string) string {
	return strings.TrimSpace(name)
}

func ValidateCommunityName(name string) bool {
	name = NormalizeCommunityName(name)
	return len(name) >= 3 && len(name) <= 64
}
