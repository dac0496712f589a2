package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"weddingsite/internal/auth"
	apperrors "weddingsite/internal/errors"
	"weddingsite/internal/events"
	"weddingsite/internal/model"
	"weddingsite/internal/repository"
	"weddingsite/internal/session"
)

const (
	bcryptCost = 10

	// MinSignUpPassword is the shortest password accepted at sign-up.
	MinSignUpPassword = 6
	// MinResetPassword is the shortest password accepted by a reset.
	MinResetPassword = 8
)

// Session is the result of a successful sign-in.
type Session struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int             `json:"expires_in"`
	User         *model.Identity `json:"user"`
}

// ResetNotice is handed to a ResetNotifier for delivery to the guest.
type ResetNotice struct {
	Email     string    `json:"email"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ResetNotifier delivers password reset links.
type ResetNotifier interface {
	SendReset(ctx context.Context, notice ResetNotice) error
}

// LogNotifier writes reset links to the log. Used when no mail queue is configured.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) SendReset(ctx context.Context, notice ResetNotice) error {
	n.Log.Info().Str("email", notice.Email).Str("link", notice.Link).Msg("password reset requested")
	return nil
}

// QueueNotifier publishes reset notices to a mail queue.
type QueueNotifier struct {
	Queue events.QueuePublisher
	Name  string
}

func (n QueueNotifier) SendReset(ctx context.Context, notice ResetNotice) error {
	return n.Queue.PublishJSON(ctx, n.Name, notice)
}

// AuthService handles authentication operations.
type AuthService interface {
	SignUp(ctx context.Context, email, password string, metadata model.Metadata) (*model.Account, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (accessToken string, err error)
	SignOut(ctx context.Context, refreshToken, accessToken string) error
	GetSession(ctx context.Context, token string) (*model.Identity, error)
	RequestPasswordReset(ctx context.Context, email, redirectTo string) error
	ResetPassword(ctx context.Context, token, password string) error
	UpdateUser(ctx context.Context, id uuid.UUID, metadata model.Metadata) (*model.Identity, error)
}

type authService struct {
	accounts   repository.AccountRepository
	profiles   repository.ProfileRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	hub        *session.Hub
	notifier   ResetNotifier
	log        zerolog.Logger
}

// NewAuthService creates a new authentication service. hub may be nil; a nil
// notifier logs reset links.
func NewAuthService(
	accounts repository.AccountRepository,
	profiles repository.ProfileRepository,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	hub *session.Hub,
	notifier ResetNotifier,
	log zerolog.Logger,
) AuthService {
	if notifier == nil {
		notifier = LogNotifier{Log: log}
	}
	return &authService{
		accounts:   accounts,
		profiles:   profiles,
		jwtService: jwtService,
		tokenStore: tokenStore,
		hub:        hub,
		notifier:   notifier,
		log:        log,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates an account with a hashed password and a non-admin profile.
func (s *authService) SignUp(ctx context.Context, email, password string, metadata model.Metadata) (*model.Account, error) {
	email = normalizeEmail(email)
	if !ValidEmail(email) {
		return nil, apperrors.ErrInvalidEmail
	}
	if len(password) < MinSignUpPassword {
		return nil, apperrors.ErrWeakPassword
	}

	existing, err := s.accounts.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrUserAlreadyExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check account existence: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	metadata = metadata.Clone()
	account := &model.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         accountName(metadata),
		Metadata:     metadata,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	notAdmin := false
	if err := s.profiles.Upsert(ctx, &model.Profile{UserID: account.ID, IsAdmin: &notAdmin}); err != nil {
		s.log.Warn().Err(err).Str("user_id", account.ID.String()).Msg("profile upsert failed")
	}
	return account, nil
}

// SignIn verifies credentials and issues an access and a refresh token.
func (s *authService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	account, err := s.accounts.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	_, accessToken, err := s.jwtService.GenerateAccessToken(account.ID, account.Email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(account.ID, account.Email)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, account.ID, account.Email, auth.RefreshTokenExpiry); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	s.hub.Publish(ctx, session.Event{Type: session.SignedIn, UserID: account.ID})
	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(auth.AccessTokenExpiry.Seconds()),
		User:         account.Identity(),
	}, nil
}

// Refresh validates a stored refresh token and returns a new access token.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil || claims.ID == "" || !claims.IsRefresh() {
		return "", apperrors.ErrInvalidRefreshToken
	}
	userID, err := claims.AccountID()
	if err != nil {
		return "", apperrors.ErrInvalidRefreshToken
	}

	storedUserID, storedEmail, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		return "", apperrors.ErrInvalidRefreshToken
	}
	if storedUserID != userID || storedEmail != claims.Email {
		return "", apperrors.ErrInvalidRefreshToken
	}

	_, accessToken, err := s.jwtService.GenerateAccessToken(userID, claims.Email)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}

	s.hub.Publish(ctx, session.Event{Type: session.TokenRefreshed, UserID: userID})
	return accessToken, nil
}

// SignOut drops the refresh token and revokes the access token until it
// would have expired anyway.
func (s *authService) SignOut(ctx context.Context, refreshToken, accessToken string) error {
	refresh, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil || refresh.ID == "" || !refresh.IsRefresh() {
		return apperrors.ErrInvalidRefreshToken
	}
	tokenID := refresh.ID
	userID, _, _ := s.tokenStore.GetRefreshToken(ctx, tokenID)
	if err := s.tokenStore.DeleteRefreshToken(ctx, tokenID); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	if accessToken != "" {
		if claims, err := s.jwtService.ValidateToken(accessToken); err == nil && claims.ID != "" && claims.IsAccess() {
			if err := s.tokenStore.BlacklistAccessToken(ctx, claims.ID, s.jwtService.Remaining(claims)); err != nil {
				s.log.Warn().Err(err).Msg("access token not revoked")
			}
			if id, err := claims.AccountID(); err == nil {
				userID = id
			}
		}
	}

	if userID != uuid.Nil {
		s.hub.Publish(ctx, session.Event{Type: session.SignedOut, UserID: userID})
	}
	return nil
}

// GetSession resolves an access token to a fresh identity.
func (s *authService) GetSession(ctx context.Context, token string) (*model.Identity, error) {
	claims, err := s.jwtService.ValidateToken(token)
	if err != nil || !claims.IsAccess() {
		return nil, apperrors.ErrUnauthenticated
	}
	if claims.ID != "" {
		if revoked, _ := s.tokenStore.IsAccessTokenBlacklisted(ctx, claims.ID); revoked {
			return nil, apperrors.ErrUnauthenticated
		}
	}
	userID, err := claims.AccountID()
	if err != nil {
		return nil, apperrors.ErrUnauthenticated
	}

	account, err := s.accounts.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	return account.Identity(), nil
}

// RequestPasswordReset sends a one-hour reset link. Unknown emails succeed
// without sending anything.
func (s *authService) RequestPasswordReset(ctx context.Context, email, redirectTo string) error {
	email = normalizeEmail(email)
	if !ValidEmail(email) {
		return apperrors.ErrInvalidEmail
	}
	link, err := url.Parse(redirectTo)
	if err != nil {
		return fmt.Errorf("parse redirect: %w", err)
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}

	token := uuid.NewString()
	if err := s.tokenStore.StoreResetToken(ctx, token, account.ID, auth.ResetTokenExpiry); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	q := link.Query()
	q.Set("token", token)
	link.RawQuery = q.Encode()

	notice := ResetNotice{Email: account.Email, Link: link.String(), ExpiresAt: time.Now().Add(auth.ResetTokenExpiry)}
	if err := s.notifier.SendReset(ctx, notice); err != nil {
		return fmt.Errorf("send reset link: %w", err)
	}
	s.hub.Publish(ctx, session.Event{Type: session.PasswordRecovery, UserID: account.ID})
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *authService) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < MinResetPassword {
		return apperrors.ErrWeakPassword
	}
	userID, err := s.tokenStore.GetResetToken(ctx, token)
	if err != nil {
		return apperrors.ErrInvalidResetToken
	}
	account, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		return apperrors.ErrInvalidResetToken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	account.PasswordHash = string(hashedPassword)
	if err := s.accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if err := s.tokenStore.DeleteResetToken(ctx, token); err != nil {
		s.log.Warn().Err(err).Msg("reset token not consumed")
	}

	s.hub.Publish(ctx, session.Event{Type: session.UserUpdated, UserID: account.ID})
	return nil
}

// UpdateUser merges metadata into the account's metadata.
func (s *authService) UpdateUser(ctx context.Context, id uuid.UUID, metadata model.Metadata) (*model.Identity, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	account.Metadata = account.Metadata.Merge(metadata)
	account.Name = accountName(account.Metadata)
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}

	s.hub.Publish(ctx, session.Event{Type: session.UserUpdated, UserID: account.ID})
	return account.Identity(), nil
}

func accountName(m model.Metadata) string {
	if name := m.String("full_name"); name != "" {
		return name
	}
	return m.String("name")
}
