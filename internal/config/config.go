package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Remote
		Sync
		Covers
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Path          string
		EncryptionKey string // path to the at-rest key file
	}

	// Remote holds the cataloguing service connection settings.
	Remote struct {
		BaseURL         string
		ConsumerKey     string
		ConsumerSecret  string
		CallbackURL     string
		RequestInterval time.Duration
	}

	Sync struct {
		Enabled  bool
		Schedule string // Cron format: "30 4 * * *" = daily at 04:30
	}

	Covers struct {
		Dir string
	}

	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8288)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_encryption_key", DefaultEncryptionKeyPath)

	// Remote catalogue defaults
	v.SetDefault("remote_base_url", DefaultRemoteBaseURL)
	v.SetDefault("remote_consumer_key", "")
	v.SetDefault("remote_consumer_secret", "")
	v.SetDefault("remote_callback_url", "http://localhost:8288/auth/callback")
	v.SetDefault("remote_request_interval", "1s")

	// Periodic sync defaults
	v.SetDefault("sync_enabled", true)
	v.SetDefault("sync_schedule", "30 4 * * *")

	v.SetDefault("covers_dir", "./covers")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path:          v.GetString("DATABASE_PATH"),
			EncryptionKey: v.GetString("DATABASE_ENCRYPTION_KEY"),
		},
		Remote: Remote{
			BaseURL:         v.GetString("REMOTE_BASE_URL"),
			ConsumerKey:     v.GetString("REMOTE_CONSUMER_KEY"),
			ConsumerSecret:  v.GetString("REMOTE_CONSUMER_SECRET"),
			CallbackURL:     v.GetString("REMOTE_CALLBACK_URL"),
			RequestInterval: v.GetDuration("REMOTE_REQUEST_INTERVAL"),
		},
		Sync: Sync{
			Enabled:  v.GetBool("SYNC_ENABLED"),
			Schedule: v.GetString("SYNC_SCHEDULE"),
		},
		Covers: Covers{
			Dir: v.GetString("COVERS_DIR"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
	}
}
