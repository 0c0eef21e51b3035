package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"event-rsvp-backend/internal/models"
	"event-rsvp-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	defaultDistanceRange = 10
	defaultDistanceUnits = "mi"
)

// CreateUserInput is the registration payload
type CreateUserInput struct {
	Firstname string   `json:"firstname"`
	Lastname  string   `json:"lastname"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Interests []string `json:"interests"`
}

// TokenPair is returned on login and refresh
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// UserService handles user-related business logic
type UserService struct {
	store         repository.Store
	jwtSecret     string
	refreshSecret string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewUserService creates a new user service
func NewUserService(store repository.Store, jwtSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *UserService {
	return &UserService{
		store:         store,
		jwtSecret:     jwtSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (in CreateUserInput) validate() error {
	if in.Firstname == "" || in.Lastname == "" || in.Email == "" || in.Password == "" {
		return fmt.Errorf("%w: firstname, lastname, email and password are required", models.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return fmt.Errorf("%w: invalid email", models.ErrInvalidInput)
	}
	return nil
}

// CreateUser registers a new account with no device
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Firstname:    in.Firstname,
		Lastname:     in.Lastname,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(hash),
		Interests:    in.Interests,
		Preferences: models.UserPreferences{
			DistanceRange: defaultDistanceRange,
			DistanceUnits: defaultDistanceUnits,
		},
		CreatedAt: time.Now().UTC(),
	}
	if user.Interests == nil {
		user.Interests = []string{}
	}

	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user by id
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.store.Users().GetByID(ctx, id)
}

// UpdateProfile changes profile fields. Device fields are only changed by
// the device sync coordinator.
func (s *UserService) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error) {
	if update.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", models.ErrInvalidInput)
	}
	return s.store.Users().UpdateProfile(ctx, id, update)
}

// Login checks credentials and issues a token pair
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.store.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: invalid credentials", models.ErrUnauthorized)
		}
		return nil, nil, err
	}

	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, fmt.Errorf("%w: invalid credentials", models.ErrUnauthorized)
	}

	tokens, err := s.issue(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Refresh exchanges a refresh token for a new token pair
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*models.User, *TokenPair, error) {
	userID, err := s.parse(refreshToken, s.refreshSecret, tokenTypeRefresh)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: unknown user", models.ErrUnauthorized)
		}
		return nil, nil, err
	}

	tokens, err := s.issue(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (s *UserService) issue(userID string) (*TokenPair, error) {
	access, err := s.sign(userID, s.jwtSecret, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(userID, s.refreshSecret, tokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Token: access, RefreshToken: refresh}, nil
}

// GenerateJWT generates an access token for a user
func (s *UserService) GenerateJWT(userID string) (string, error) {
	return s.sign(userID, s.jwtSecret, tokenTypeAccess, s.accessTTL)
}

func (s *UserService) sign(userID, secret, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"typ":     typ,
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateJWT validates an access token and returns the user ID
func (s *UserService) ValidateJWT(tokenString string) (string, error) {
	return s.parse(tokenString, s.jwtSecret, tokenTypeAccess)
}

func (s *UserService) parse(tokenString, secret, typ string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	if got, _ := claims["typ"].(string); got != typ {
		return "", fmt.Errorf("expected %s token", typ)
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user_id not found in token")
	}

	return userID, nil
}
