package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	DBDriver    string
	MySQLDSN    string
	SQLitePath  string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	SwaggerHost string
	LogLevel    string
	ResetDB     bool

	RoleTimeout time.Duration
	LoginPath   string
	DefaultPath string
	AppBaseURL  string

	KafkaBroker     string
	KafkaTopic      string
	RabbitMQURL     string
	ModerationQueue string
	ResetMailQueue  string

	GoogleAPIKey          string
	GoogleClientID        string
	GoogleCredentialsFile string
	DriveFolders          DriveFolders

	WeddingDateTime string
	VenueName       string
	VenueAddress    string
}

// DriveFolders maps album sections to Drive folder ids.
type DriveFolders struct {
	Main        string
	Photos      string
	Videos      string
	MessageWall string
}

// Load builds Config from environment with sensible defaults. A .env file in the
// working directory is read first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DBDriver:    getEnv("DB_DRIVER", "mysql"),
		MySQLDSN:    getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/wedding?charset=utf8mb4&parseTime=True&loc=Local"),
		SQLitePath:  getEnv("SQLITE_PATH", "data/wedding.db"),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RedisPass:   getEnv("REDIS_PASSWORD", ""),
		JWTSecret:   getEnv("JWT_SECRET", "change-me"),
		SwaggerHost: getEnv("SWAGGER_HOST", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		ResetDB:     getEnv("RESET_DB", "") == "true",

		RoleTimeout: getEnvDuration("ROLE_TIMEOUT", 4*time.Second),
		LoginPath:   getEnv("LOGIN_PATH", "/login"),
		DefaultPath: getEnv("DEFAULT_PATH", "/rsvp"),
		AppBaseURL:  getEnv("APP_BASE_URL", "http://localhost:3000"),

		KafkaBroker:     getEnv("KAFKA_BROKER", ""),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "rsvp-events"),
		RabbitMQURL:     getEnv("RABBITMQ_URL", ""),
		ModerationQueue: getEnv("MODERATION_QUEUE", "guest_messages.moderation"),
		ResetMailQueue:  getEnv("RESET_MAIL_QUEUE", "mail.password_reset"),

		GoogleAPIKey:          getEnv("GOOGLE_API_KEY", ""),
		GoogleClientID:        getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		DriveFolders: DriveFolders{
			Main:        getEnv("DRIVE_MAIN_FOLDER_ID", ""),
			Photos:      getEnv("DRIVE_PHOTOS_FOLDER_ID", ""),
			Videos:      getEnv("DRIVE_VIDEOS_FOLDER_ID", ""),
			MessageWall: getEnv("DRIVE_MESSAGE_WALL_FOLDER_ID", ""),
		},

		WeddingDateTime: getEnv("WEDDING_DATE_TIME", ""),
		VenueName:       getEnv("VENUE_NAME", ""),
		VenueAddress:    getEnv("VENUE_ADDRESS", ""),
	}
}

// Missing lists optional variables that are unset. The features behind them are
// disabled rather than failing start-up.
func (c *Config) Missing() []string {
	checks := []struct {
		key   string
		value string
	}{
		{"GOOGLE_API_KEY", c.GoogleAPIKey},
		{"GOOGLE_CLIENT_ID", c.GoogleClientID},
		{"GOOGLE_CREDENTIALS_FILE", c.GoogleCredentialsFile},
		{"DRIVE_MAIN_FOLDER_ID", c.DriveFolders.Main},
		{"DRIVE_PHOTOS_FOLDER_ID", c.DriveFolders.Photos},
		{"DRIVE_VIDEOS_FOLDER_ID", c.DriveFolders.Videos},
		{"DRIVE_MESSAGE_WALL_FOLDER_ID", c.DriveFolders.MessageWall},
		{"WEDDING_DATE_TIME", c.WeddingDateTime},
	}

	var missing []string
	for _, check := range checks {
		if check.value == "" {
			missing = append(missing, check.key)
		}
	}
	return missing
}

// Clean strips a trailing inline comment and surrounding quotes from a raw value.
func Clean(raw string) string {
	if idx := strings.Index(raw, "#"); idx >= 0 {
		raw = raw[:idx]
	}
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, `"`)
	raw = strings.TrimPrefix(raw, `'`)
	raw = strings.TrimSuffix(raw, `"`)
	raw = strings.TrimSuffix(raw, `'`)
	return strings.TrimSpace(raw)
}

func getEnv(key, def string) string {
	if v := Clean(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := getEnv(key, ""); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := getEnv(key, ""); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}
