package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"weddingsite/internal/cache"
)

const (
	refreshTokenKeyPrefix = "refresh_token:"
	accessTokenKeyPrefix  = "blacklist:access_token:"
	resetTokenKeyPrefix   = "password_reset:"

	// ResetTokenExpiry bounds how long a password reset link stays usable.
	ResetTokenExpiry = time.Hour
)

// ErrTokenNotFound is returned when a stored token is missing or expired.
var ErrTokenNotFound = fmt.Errorf("token not found")

// TokenStoreInterface defines the interface for token storage operations.
type TokenStoreInterface interface {
	StoreRefreshToken(ctx context.Context, tokenID string, userID uuid.UUID, email string, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, tokenID string) (userID uuid.UUID, email string, err error)
	DeleteRefreshToken(ctx context.Context, tokenID string) error
	BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)
	StoreResetToken(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	GetResetToken(ctx context.Context, token string) (uuid.UUID, error)
	DeleteResetToken(ctx context.Context, token string) error
}

// TokenStore handles storage and retrieval of tokens in Redis.
type TokenStore struct {
	cache *cache.Client
}

// Ensure TokenStore implements TokenStoreInterface
var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

type tokenData struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email,omitempty"`
}

// StoreRefreshToken stores a refresh token in Redis with TTL.
func (s *TokenStore) StoreRefreshToken(ctx context.Context, tokenID string, userID uuid.UUID, email string, ttl time.Duration) error {
	payload, err := json.Marshal(tokenData{UserID: userID, Email: email})
	if err != nil {
		return fmt.Errorf("marshal token data: %w", err)
	}
	return s.cache.Set(ctx, refreshTokenKeyPrefix+tokenID, payload, ttl)
}

// GetRefreshToken retrieves refresh token data from Redis.
func (s *TokenStore) GetRefreshToken(ctx context.Context, tokenID string) (uuid.UUID, string, error) {
	data, err := s.load(ctx, refreshTokenKeyPrefix+tokenID)
	if err != nil {
		return uuid.Nil, "", err
	}
	return data.UserID, data.Email, nil
}

// DeleteRefreshToken removes a refresh token from Redis.
func (s *TokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	return s.cache.Delete(ctx, refreshTokenKeyPrefix+tokenID)
}

// BlacklistAccessToken adds an access token to the blacklist until it expires.
func (s *TokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, accessTokenKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsAccessTokenBlacklisted checks if an access token is blacklisted.
func (s *TokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	data, err := s.cache.Get(ctx, accessTokenKeyPrefix+tokenID)
	if err != nil {
		return false, nil // Not blacklisted if error (fail safe)
	}
	return data != nil, nil
}

// StoreResetToken records a one-time password reset token for the user.
func (s *TokenStore) StoreResetToken(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	payload, err := json.Marshal(tokenData{UserID: userID})
	if err != nil {
		return fmt.Errorf("marshal reset token: %w", err)
	}
	return s.cache.Set(ctx, resetTokenKeyPrefix+token, payload, ttl)
}

// GetResetToken resolves a reset token to its user.
func (s *TokenStore) GetResetToken(ctx context.Context, token string) (uuid.UUID, error) {
	data, err := s.load(ctx, resetTokenKeyPrefix+token)
	if err != nil {
		return uuid.Nil, err
	}
	return data.UserID, nil
}

// DeleteResetToken consumes a reset token.
func (s *TokenStore) DeleteResetToken(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, resetTokenKeyPrefix+token)
}

func (s *TokenStore) load(ctx context.Context, key string) (*tokenData, error) {
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == nil {
		return nil, ErrTokenNotFound
	}
	var data tokenData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshal token data: %w", err)
	}
	if data.UserID == uuid.Nil {
		return nil, fmt.Errorf("invalid user_id in token data")
	}
	return &data, nil
}
