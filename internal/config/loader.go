package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rpattn/paneltrack/internal/db"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the service.
type Config struct {
	Database db.Config
	Server   ServerConfig
	Import   ImportConfig
	Log      LogConfig
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr        string
	CORSOrigins []string
}

// ImportConfig tunes the panel history importer.
type ImportConfig struct {
	DefaultActor      string
	ProgressEvery     int
	UpdateConcurrency int
	MaxRows           int
	MaxFileBytes      int64
}

// LogConfig selects the log handler.
type LogConfig struct {
	Format string
	Level  string
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Database: db.DefaultConfig(),
		Server: ServerConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Import: ImportConfig{
			DefaultActor:      "admin",
			ProgressEvery:     10,
			UpdateConcurrency: 8,
			MaxRows:           20000,
			MaxFileBytes:      32 << 20,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// Load reads config.yaml from configPath, then applies environment
// overrides. A missing file is not an error.
func Load(configPath string) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix("PANELTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.Database.Host = v.GetString("database.host")
	cfg.Database.Port = v.GetInt("database.port")
	cfg.Database.User = v.GetString("database.user")
	cfg.Database.Password = v.GetString("database.password")
	cfg.Database.DBName = v.GetString("database.dbname")
	cfg.Database.SSLMode = v.GetString("database.sslmode")
	cfg.Database.MaxConns = v.GetInt32("database.max_conns")

	cfg.Server.Addr = v.GetString("server.addr")
	cfg.Server.CORSOrigins = splitList(v.GetStringSlice("server.cors_origins"))

	cfg.Import.DefaultActor = strings.TrimSpace(v.GetString("import.default_actor"))
	cfg.Import.ProgressEvery = v.GetInt("import.progress_every")
	cfg.Import.UpdateConcurrency = v.GetInt("import.update_concurrency")
	cfg.Import.MaxRows = v.GetInt("import.max_rows")
	cfg.Import.MaxFileBytes = v.GetInt64("import.max_file_bytes")

	cfg.Log.Format = strings.ToLower(v.GetString("log.format"))
	cfg.Log.Level = strings.ToLower(v.GetString("log.level"))

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the importer cannot run with.
func (c Config) Validate() error {
	if c.Import.DefaultActor == "" {
		return errors.New("import.default_actor must not be empty")
	}
	if c.Import.ProgressEvery <= 0 {
		return errors.New("import.progress_every must be positive")
	}
	if c.Import.UpdateConcurrency <= 0 {
		return errors.New("import.update_concurrency must be positive")
	}
	if c.Import.MaxRows <= 0 {
		return errors.New("import.max_rows must be positive")
	}
	if c.Import.MaxFileBytes <= 0 {
		return errors.New("import.max_file_bytes must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("database.host", cfg.Database.Host)
	v.SetDefault("database.port", cfg.Database.Port)
	v.SetDefault("database.user", cfg.Database.User)
	v.SetDefault("database.password", cfg.Database.Password)
	v.SetDefault("database.dbname", cfg.Database.DBName)
	v.SetDefault("database.sslmode", cfg.Database.SSLMode)
	v.SetDefault("database.max_conns", cfg.Database.MaxConns)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.cors_origins", cfg.Server.CORSOrigins)

	v.SetDefault("import.default_actor", cfg.Import.DefaultActor)
	v.SetDefault("import.progress_every", cfg.Import.ProgressEvery)
	v.SetDefault("import.update_concurrency", cfg.Import.UpdateConcurrency)
	v.SetDefault("import.max_rows", cfg.Import.MaxRows)
	v.SetDefault("import.max_file_bytes", cfg.Import.MaxFileBytes)

	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.level", cfg.Log.Level)
}

// splitList accepts both yaml lists and comma separated env values.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
