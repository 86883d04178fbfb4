package service

import (
	"os"
	"testing"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
)

func newTestAuthService() (*AuthService, *MockUserRepository, *MockRefreshTokenRepository) {
	os.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	userRepo := NewMockUserRepository()
	tokenRepo := NewMockRefreshTokenRepository()
	return NewAuthService(userRepo, tokenRepo), userRepo, tokenRepo
}

func TestRegister(t *testing.T) {
	authService, userRepo, _ := newTestAuthService()

	userRepo.Create(&models.User{Username: "existing", Email: "existing@example.com"})

	tests := []struct {
		name      string
		input     RegisterInput
		shouldErr bool
	}{
		{
			name:  "Valid registration",
			input: RegisterInput{Username: "newuser", Email: "new@example.com", Password: "longenoughpass", FullName: "New User"},
		},
		{
			name:      "Duplicate email",
			input:     RegisterInput{Username: "other", Email: "existing@example.com", Password: "longenoughpass"},
			shouldErr: true,
		},
		{
			name:      "Duplicate username",
			input:     RegisterInput{Username: "existing", Email: "unique@example.com", Password: "longenoughpass"},
			shouldErr: true,
		},
		{
			name:      "Weak password",
			input:     RegisterInput{Username: "weakling", Email: "weak@example.com", Password: "short"},
			shouldErr: true,
		},
		{
			name:      "Invalid email",
			input:     RegisterInput{Username: "bademail", Email: "not-an-email", Password: "longenoughpass"},
			shouldErr: true,
		},
		{
			name:      "Invalid username",
			input:     RegisterInput{Username: "x", Email: "tiny@example.com", Password: "longenoughpass"},
			shouldErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := authService.Register(tt.input)
			if (err != nil) != tt.shouldErr {
				t.Errorf("Register error = %v, wantErr %v", err, tt.shouldErr)
			}
			if !tt.shouldErr {
				if resp.AccessToken == "" || resp.RefreshToken == "" {
					t.Errorf("Register returned empty tokens")
				}
				if !resp.User.ReceiveMessages {
					t.Errorf("new users should accept messages by default")
				}
			}
		})
	}
}

func TestLogin(t *testing.T) {
	authService, _, _ := newTestAuthService()

	if _, err := authService.Register(RegisterInput{Username: "alice", Email: "alice@example.com", Password: "longenoughpass"}); err != nil {
		t.Fatalf("setup register: %v", err)
	}

	tests := []struct {
		name      string
		input     LoginInput
		shouldErr bool
	}{
		{"Valid login", LoginInput{Email: "alice@example.com", Password: "longenoughpass"}, false},
		{"Wrong password", LoginInput{Email: "alice@example.com", Password: "wrongpassword1"}, true},
		{"Unknown email", LoginInput{Email: "nobody@example.com", Password: "longenoughpass"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := authService.Login(tt.input)
			if (err != nil) != tt.shouldErr {
				t.Errorf("Login error = %v, wantErr %v", err, tt.shouldErr)
			}
			if !tt.shouldErr && resp.AccessToken == "" {
				t.Errorf("Login returned empty access token")
			}
		})
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	authService, _, _ := newTestAuthService()

	registered, err := authService.Register(RegisterInput{Username: "bob", Email: "bob@example.com", Password: "longenoughpass"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	refreshed, err := authService.Refresh(registered.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.RefreshToken == registered.RefreshToken {
		t.Errorf("refresh token was not rotated")
	}

	// The old token is revoked after rotation.
	if _, err := authService.Refresh(registered.RefreshToken); err == nil {
		t.Errorf("revoked token should not refresh")
	}

	// The new one works.
	if _, err := authService.Refresh(refreshed.RefreshToken); err != nil {
		t.Errorf("rotated token should refresh: %v", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	authService, _, _ := newTestAuthService()

	registered, err := authService.Register(RegisterInput{Username: "carol", Email: "carol@example.com", Password: "longenoughpass"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := authService.Logout(registered.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := authService.Refresh(registered.RefreshToken); err == nil {
		t.Errorf("token should be dead after logout")
	}

	// Logout is idempotent, unknown tokens included.
	if err := authService.Logout(registered.RefreshToken); err != nil {
		t.Errorf("second logout: %v", err)
	}
	if err := authService.Logout(""); err != nil {
		t.Errorf("empty logout: %v", err)
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	authService, _, _ := newTestAuthService()

	registered, err := authService.Register(RegisterInput{Username: "dave", Email: "dave@example.com", Password: "longenoughpass"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second, err := authService.Login(LoginInput{Email: "dave@example.com", Password: "longenoughpass"})
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if err := authService.LogoutAll(registered.User.ID); err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}

	if _, err := authService.Refresh(registered.RefreshToken); err == nil {
		t.Errorf("first session token should be dead")
	}
	if _, err := authService.Refresh(second.RefreshToken); err == nil {
		t.Errorf("second session token should be dead")
	}
}
