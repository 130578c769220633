// Package config provides configuration loading, validation, and management
// for the file2link bot. It reads an optional YAML file, overlays environment
// variables, fills defaults and validates the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable mapped onto a config key.
const EnvPrefix = "FILE2LINK"

// Config defines the application configuration parameters for all components.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Transfer  TransferConfig  `mapstructure:"transfer"`
	Uploader  UploaderConfig  `mapstructure:"uploader"`
	Links     LinksConfig     `mapstructure:"links"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig holds the SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// TelegramConfig holds Bot API credentials and chat level settings.
type TelegramConfig struct {
	Token     string `mapstructure:"token"      validate:"required"`
	ServerURL string `mapstructure:"server_url" validate:"omitempty,url"`
	// APIID and APIHash are only meaningful for a self-hosted Bot API server,
	// which needs them to log in on the bot's behalf.
	APIID   int    `mapstructure:"api_id"   validate:"gte=0"`
	APIHash string `mapstructure:"api_hash" validate:"required_with=APIID"`

	SessionName     string        `mapstructure:"session_name"     validate:"required"`
	ChannelUsername string        `mapstructure:"channel_username" validate:"required,excludes=@"`
	NotifyChannelID int64         `mapstructure:"notify_channel_id"`
	AllowedUserIDs  []int64       `mapstructure:"allowed_user_ids" validate:"dive,gt=0"`
	PollTimeout     time.Duration `mapstructure:"poll_timeout"     validate:"min=1s,max=5m"`

	// BotInfo is filled at runtime from getMe.
	BotInfo *models.User `mapstructure:"-"`
}

// HTTPConfig configures the status/redirect HTTP server.
type HTTPConfig struct {
	Host            string        `mapstructure:"host"             validate:"required"`
	Port            int           `mapstructure:"port"             validate:"min=1,max=65535"`
	BaseURL         string        `mapstructure:"base_url"         validate:"required,url"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"min=1s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"min=1s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s"`
}

// TransferConfig bounds downloads from Telegram.
type TransferConfig struct {
	DownloadsDir     string        `mapstructure:"downloads_dir"     validate:"required"`
	MaxFileSize      int64         `mapstructure:"max_file_size"     validate:"gt=0"`
	MaxConcurrent    int           `mapstructure:"max_concurrent"    validate:"min=1,max=64"`
	DownloadTimeout  time.Duration `mapstructure:"download_timeout"  validate:"min=1s"`
	ProgressInterval time.Duration `mapstructure:"progress_interval" validate:"min=0"`
}

// UploaderConfig configures the Uploda.sh client.
type UploaderConfig struct {
	Endpoint        string        `mapstructure:"endpoint"         validate:"required,url"`
	Timeout         time.Duration `mapstructure:"timeout"          validate:"min=1s"`
	MaxAttempts     int           `mapstructure:"max_attempts"     validate:"min=1,max=10"`
	BreakerFailures int           `mapstructure:"breaker_failures" validate:"min=1"`
}

// LinksConfig controls link retention.
type LinksConfig struct {
	TTL time.Duration `mapstructure:"ttl" validate:"min=1m"`
}

// MessagesConfig holds every user-visible text. Placeholders of the form
// {name} are substituted by the handlers.
type MessagesConfig struct {
	Welcome          string `mapstructure:"welcome"           validate:"required"`
	JoinButton       string `mapstructure:"join_button"       validate:"required"`
	JoinedButton     string `mapstructure:"joined_button"     validate:"required"`
	Joined           string `mapstructure:"joined"            validate:"required"`
	JoinedAnswer     string `mapstructure:"joined_answer"     validate:"required"`
	Help             string `mapstructure:"help"              validate:"required"`
	NotAllowed       string `mapstructure:"not_allowed"       validate:"required"`
	Preparing        string `mapstructure:"preparing"         validate:"required"`
	Downloading      string `mapstructure:"downloading"       validate:"required"`
	DownloadFailed   string `mapstructure:"download_failed"   validate:"required"`
	Uploading        string `mapstructure:"uploading"         validate:"required"`
	UploadFailed     string `mapstructure:"upload_failed"     validate:"required"`
	TooLarge         string `mapstructure:"too_large"         validate:"required"`
	ProcessingFailed string `mapstructure:"processing_failed" validate:"required"`
	Completed        string `mapstructure:"completed"         validate:"required"`
	Notify           string `mapstructure:"notify"            validate:"required"`
	Root             string `mapstructure:"root"              validate:"required"`
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a task on a six-field cron schedule (seconds first).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// legacyEnv binds the variable names of the deployment .env file.
var legacyEnv = map[string]string{
	"telegram.token":        "BOT_TOKEN",
	"telegram.api_id":       "API_ID",
	"telegram.api_hash":     "API_HASH",
	"telegram.session_name": "SESSION_NAME",
	"http.base_url":         "BASE_URL",
	"http.host":             "HOST",
	"http.port":             "PORT",
}

// LoadConfig reads configuration from path (optional), environment variables
// and defaults, then validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the struct tags of the whole configuration tree.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s: %w", strings.Join(fields, ", "), err)
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
