package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"weddingsite/internal/auth"
	"weddingsite/internal/cache"
	"weddingsite/internal/config"
	"weddingsite/internal/db"
	apperrors "weddingsite/internal/errors"
	"weddingsite/internal/logger"
	"weddingsite/internal/model"
	"weddingsite/internal/repository"
	"weddingsite/internal/service"
)

// SeedUser is one entry of the seed file.
type SeedUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	IsAdmin  bool   `json:"is_admin"`
}

func main() {
	source := flag.String("file", "seed/users.json", "seed file path or http(s) URL")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	log.Info().Str("source", *source).Msg("starting seed")

	gormDB, err := db.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	if err := db.Migrate(gormDB, false); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	users, err := loadSeed(*source)
	if err != nil {
		log.Fatal().Err(err).Msg("load seed users")
	}
	log.Info().Int("count", len(users)).Msg("seed users loaded")

	accounts := repository.NewAccountRepository(gormDB)
	profiles := repository.NewProfileRepository(gormDB)
	authService := service.NewAuthService(
		accounts,
		profiles,
		auth.NewJWTService(cfg.JWTSecret),
		auth.NewTokenStore(cache.NewMemory()),
		nil,
		nil,
		logger.Component(log, "auth"),
	)

	created, promoted, err := seedUsers(context.Background(), authService, accounts, profiles, users, log)
	if err != nil {
		log.Fatal().Err(err).Msg("seed users")
	}
	log.Info().Int("created", created).Int("profiles_updated", promoted).Msg("seed completed")
}

// loadSeed reads the seed list from a local file or an http(s) URL.
func loadSeed(source string) ([]SeedUser, error) {
	var r io.Reader
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := http.Get(source)
		if err != nil {
			return nil, fmt.Errorf("fetch seed: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("seed source returned status code: %d", resp.StatusCode)
		}
		r = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("open seed file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var users []SeedUser
	if err := json.NewDecoder(r).Decode(&users); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return users, nil
}

// seedUsers signs up missing users and sets every user's admin flag.
func seedUsers(
	ctx context.Context,
	authService service.AuthService,
	accounts repository.AccountRepository,
	profiles repository.ProfileRepository,
	users []SeedUser,
	log zerolog.Logger,
) (created int, updated int, err error) {
	for _, u := range users {
		email := strings.ToLower(strings.TrimSpace(u.Email))

		account, err := accounts.FindByEmail(ctx, email)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			account, err = authService.SignUp(ctx, email, u.Password, model.Metadata{"full_name": u.FullName})
			if errors.Is(err, apperrors.ErrWeakPassword) || errors.Is(err, apperrors.ErrInvalidEmail) {
				log.Warn().Err(err).Str("email", email).Msg("skipping seed user")
				continue
			}
			if err != nil {
				return created, updated, fmt.Errorf("create %s: %w", email, err)
			}
			created++
		} else if err != nil {
			return created, updated, fmt.Errorf("find %s: %w", email, err)
		}

		isAdmin := u.IsAdmin
		if err := profiles.Upsert(ctx, &model.Profile{UserID: account.ID, IsAdmin: &isAdmin}); err != nil {
			return created, updated, fmt.Errorf("update profile %s: %w", email, err)
		}
		updated++
	}
	return created, updated, nil
}
