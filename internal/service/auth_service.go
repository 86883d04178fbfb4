package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"time"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"github.com/Rawann0m/EcoNest-sub000/internal/repository"
	"github.com/Rawann0m/EcoNest-sub000/internal/validation"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService struct {
	userRepo  repository.UserRepositoryInterface
	tokenRepo repository.RefreshTokenRepositoryInterface
}

func NewAuthService(userRepo repository.UserRepositoryInterface, tokenRepo repository.RefreshTokenRepositoryInterface) *AuthService {
	return &AuthService{userRepo: userRepo, tokenRepo: tokenRepo}
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token"`
	User         models.UserResponse `json:"user"`
}

func (s *AuthService) Register(input RegisterInput) (*AuthResponse, error) {
	input.Email = validation.NormalizeEmail(input.Email)
	input.Username = validation.NormalizeUsername(input.Username)

	if !validation.ValidateEmail(input.Email) {
		return nil, errors.New("invalid email")
	}
	if !validation.ValidateUsername(input.Username) {
		return nil, errors.New("invalid username")
	}
	if !validation.ValidatePassword(input.Password) {
		return nil, errors.New("password too weak")
	}

	// Check if user exists
	if _, err := s.userRepo.FindByEmail(input.Email); err == nil {
		return nil, errors.New("email already exists")
	}
	if _, err := s.userRepo.FindByUsername(input.Username); err == nil {
		return nil, errors.New("username already exists")
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:        input.Username,
		Email:           input.Email,
		PasswordHash:    string(hashedPassword),
		FullName:        input.FullName,
		ReceiveMessages: true,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	return s.issueTokens(user)
}

func (s *AuthService) Login(input LoginInput) (*AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(validation.NormalizeEmail(input.Email))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(user)
}

// Refresh rotates a refresh token: the presented token is revoked and
// a fresh pair is issued. A revoked or expired token fails closed.
func (s *AuthService) Refresh(refreshToken string) (*AuthResponse, error) {
	hash := hashToken(refreshToken)
	stored, err := s.tokenRepo.FindValidByHash(hash)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByID(stored.UserID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.tokenRepo.RevokeByHash(hash); err != nil {
		return nil, err
	}

	return s.issueTokens(user)
}

// Logout revokes the presented refresh token. Unknown tokens are a
// no-op so logout is idempotent.
func (s *AuthService) Logout(refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.tokenRepo.RevokeByHash(hashToken(refreshToken))
}

// LogoutAll revokes every live refresh token the user holds, ending
// all sessions on all devices.
func (s *AuthService) LogoutAll(userID uint) error {
	return s.tokenRepo.RevokeAllForUser(userID)
}

func (s *AuthService) issueTokens(user *models.User) (*AuthResponse, error) {
	access, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refresh, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}
	record := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: time.Now().UTC().Add(refreshTokenTTL),
	}
	if err := s.tokenRepo.Create(record); err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user.ToResponse(),
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"exp":     time.Now().Add(accessTokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

// Refresh tokens are opaque 256-bit values; only the SHA-256 digest is
// stored.
func generateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
