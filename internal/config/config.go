package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"persona/internal/validation"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "persona.db"
	DefaultLogName        = "persona.log"
	DefaultSeedURL        = "https://jsonplaceholder.typicode.com/todos"
	DotEnvFileName        = ".env"

	appDirName = "persona"
	envPrefix  = "PERSONA_"
)

type Keymap struct {
	Quit           string `toml:"quit"`
	Tab            string `toml:"tab"`
	Add            string `toml:"add"`
	Up             string `toml:"up"`
	Down           string `toml:"down"`
	Toggle         string `toml:"toggle"`
	Delete         string `toml:"delete"`
	Confirm        string `toml:"confirm"`
	Cancel         string `toml:"cancel"`
	Edit           string `toml:"edit"`
	Due            string `toml:"due"`
	Search         string `toml:"search"`
	Filter         string `toml:"filter"`
	Sort           string `toml:"sort"`
	Order          string `toml:"order"`
	Backend        string `toml:"backend"`
	MarkAll        string `toml:"mark_all"`
	ClearCompleted string `toml:"clear_completed"`
	ClearAll       string `toml:"clear_all"`
}

type Seed struct {
	Enabled        bool   `toml:"enabled" env:"ENABLED"`
	SampleTask     bool   `toml:"sample_task" env:"SAMPLE_TASK"`
	URL            string `toml:"url" env:"URL" validate:"omitempty,url"`
	Limit          int    `toml:"limit" validate:"gte=0,lte=200"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"gte=0"`
}

type Config struct {
	DBPath        string `toml:"db_path" env:"DB_PATH" validate:"required"`
	LogFile       string `toml:"log_file" env:"LOG_FILE"`
	LogLevel      string `toml:"log_level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Backend       string `toml:"backend" env:"BACKEND" validate:"oneof=array map"`
	DefaultFilter string `toml:"default_filter" validate:"oneof=all active completed"`
	SortBy        string `toml:"sort_by" validate:"oneof=createdAt title due status"`
	SortOrder     string `toml:"sort_order" validate:"oneof=asc desc"`
	Seed          Seed   `toml:"seed" envPrefix:"SEED_"`
	Keys          Keymap `toml:"keys"`
}

// ResolveConfigPath returns $PERSONA_CONFIG, or config.toml under the user
// config directory, or config.toml in the working directory as a last resort.
func ResolveConfigPath() string {
	if p := os.Getenv(envPrefix + "CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, appDirName, DefaultConfigFileName)
}

// LoadOrCreate reads the config at path, writing the defaults there first if
// the file does not exist. PERSONA_* variables, from the environment or a .env
// file in the same directory, override the file.
// Relative db and log paths are resolved against the config file's directory.
func LoadOrCreate(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	environ, err := environment(filepath.Join(filepath.Dir(path), DotEnvFileName))
	if err != nil {
		return cfg, err
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix, Environment: environ}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBName
	}
	if cfg.LogFile == "" {
		cfg.LogFile = DefaultLogName
	}
	base := filepath.Dir(path)
	cfg.DBPath = resolve(base, cfg.DBPath)
	cfg.LogFile = resolve(base, cfg.LogFile)

	if err := validation.Validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// environment returns the optional .env file beside the config, overlaid by
// the process environment.
func environment(dotenv string) (map[string]string, error) {
	vars := map[string]string{}
	if _, err := os.Stat(dotenv); err == nil {
		if vars, err = godotenv.Read(dotenv); err != nil {
			return nil, fmt.Errorf("read %s: %w", dotenv, err)
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return vars, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default is the configuration written on first launch.
func Default() Config {
	return Config{
		DBPath:        DefaultDBName,
		LogFile:       DefaultLogName,
		LogLevel:      "info",
		Backend:       "array",
		DefaultFilter: "all",
		SortBy:        "createdAt",
		SortOrder:     "desc",
		Seed: Seed{
			Enabled:        false,
			SampleTask:     false,
			URL:            DefaultSeedURL,
			Limit:          5,
			TimeoutSeconds: 10,
		},
		Keys: Keymap{
			Quit:           "q",
			Tab:            "tab",
			Add:            "a",
			Up:             "k",
			Down:           "j",
			Toggle:         " ",
			Delete:         "d",
			Confirm:        "enter",
			Cancel:         "esc",
			Edit:           "e",
			Due:            "D",
			Search:         "/",
			Filter:         "f",
			Sort:           "s",
			Order:          "o",
			Backend:        "b",
			MarkAll:        "m",
			ClearCompleted: "c",
			ClearAll:       "X",
		},
	}
}
