package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Dosada05/league-engine/models"
	"github.com/Dosada05/league-engine/storage"
)

const (
	defaultServerPort         = 8080
	defaultMaxParticipants    = 16
	defaultNotificationBuffer = 256
	defaultArchivePrefix      = "league-engine"
)

// Config holds every setting the engine reads at startup.
type Config struct {
	DatabaseURL  string `yaml:"database_url"`
	JWTSecretKey string `yaml:"-"`
	ServerPort   int    `yaml:"server_port"`

	NATSURL            string   `yaml:"nats_url"`
	NotificationBuffer int      `yaml:"notification_buffer"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	R2            R2Config       `yaml:"r2"`
	ArchivePrefix string         `yaml:"archive_prefix"`
	League        LeagueDefaults `yaml:"league"`

	// Players maps player ids to display names for deployments without a profile service.
	Players map[string]string `yaml:"players"`
}

type R2Config struct {
	AccountID       string `yaml:"account_id"`
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
	BucketName      string `yaml:"bucket_name"`
	PublicBaseURL   string `yaml:"public_base_url"`
}

// LeagueDefaults are applied to leagues created without their own settings.
type LeagueDefaults struct {
	MaxParticipants    int  `yaml:"max_participants"`
	PointsForWin       int  `yaml:"points_for_win"`
	PointsForLoss      int  `yaml:"points_for_loss"`
	AutoApproveResults bool `yaml:"auto_approve_results"`
}

func (d LeagueDefaults) Settings() models.LeagueSettings {
	return models.LeagueSettings{
		MaxParticipants:    d.MaxParticipants,
		AutoApproveResults: d.AutoApproveResults,
		PointsForWin:       d.PointsForWin,
		PointsForLoss:      d.PointsForLoss,
	}
}

func (c R2Config) Storage() storage.CloudflareR2Config {
	return storage.CloudflareR2Config{
		AccountID:       c.AccountID,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		BucketName:      c.BucketName,
		PublicBaseURL:   c.PublicBaseURL,
	}
}

// Load reads the optional .env file, then the YAML file named by ENGINE_CONFIG_FILE,
// then environment variables. Later sources win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:         defaultServerPort,
		NotificationBuffer: defaultNotificationBuffer,
		ArchivePrefix:      defaultArchivePrefix,
		League: LeagueDefaults{
			MaxParticipants: defaultMaxParticipants,
			PointsForWin:    models.DefaultPointsForWin,
			PointsForLoss:   models.DefaultPointsForLoss,
		},
	}

	if path := os.Getenv("ENGINE_CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	cfg.JWTSecretKey = os.Getenv("JWT_SECRET_KEY")

	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
		}
		cfg.ServerPort = port
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATSURL = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = strings.Split(v, ",")
	}

	if v := os.Getenv("R2_ACCOUNT_ID"); v != "" {
		cfg.R2.AccountID = v
	}
	cfg.R2.AccessKeyID = os.Getenv("R2_ACCESS_KEY_ID")
	cfg.R2.SecretAccessKey = os.Getenv("R2_SECRET_ACCESS_KEY")
	if v := os.Getenv("R2_BUCKET_NAME"); v != "" {
		cfg.R2.BucketName = v
	}
	if v := os.Getenv("R2_PUBLIC_BASE_URL"); v != "" {
		cfg.R2.PublicBaseURL = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"NOTIFICATION_BUFFER", &cfg.NotificationBuffer},
		{"LEAGUE_MAX_PARTICIPANTS", &cfg.League.MaxParticipants},
		{"LEAGUE_POINTS_FOR_WIN", &cfg.League.PointsForWin},
		{"LEAGUE_POINTS_FOR_LOSS", &cfg.League.PointsForLoss},
	}
	for _, e := range ints {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s environment variable: %w", e.name, err)
		}
		*e.dst = n
	}

	if v := os.Getenv("LEAGUE_AUTO_APPROVE_RESULTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LEAGUE_AUTO_APPROVE_RESULTS environment variable: %w", err)
		}
		cfg.League.AutoApproveResults = b
	}
	return nil
}

func (c *Config) validate() error {
	if c.JWTSecretKey == "" {
		return errors.New("JWT_SECRET_KEY environment variable is not set")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}
	if c.League.MaxParticipants < 2 {
		return fmt.Errorf("league max_participants must be at least 2, got %d", c.League.MaxParticipants)
	}
	if c.League.PointsForWin < c.League.PointsForLoss {
		return fmt.Errorf("points for a win (%d) must not be lower than points for a loss (%d)",
			c.League.PointsForWin, c.League.PointsForLoss)
	}
	return nil
}
