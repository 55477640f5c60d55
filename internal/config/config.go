package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/letsssgooo/surveySite/internal/client"
)

// Хранилища постоянного состояния клиента.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Префикс переменных окружения.
const envPrefix = "SURVEYSITE_"

// Переменная из сборки веб-клиента, читается для совместимости.
const envViteAPIURL = "VITE_API_URL"

// ErrInvalid возвращается при неверном значении настройки.
var ErrInvalid = errors.New("invalid config")

// HelpError возвращается на --help и содержит описание флагов.
type HelpError struct {
	Usage string
}

func (e *HelpError) Error() string {
	return "usage:\n" + e.Usage
}

func (e *HelpError) Unwrap() error {
	return pflag.ErrHelp
}

// Config — настройки консольного клиента.
type Config struct {
	APIURL      string        `yaml:"api_url"`
	Origin      string        `yaml:"origin"`
	Insecure    bool          `yaml:"insecure_tls"`
	Timeout     time.Duration `yaml:"timeout"`
	Store       string        `yaml:"store"`
	SQLitePath  string        `yaml:"sqlite_path"`
	PostgresDSN string        `yaml:"postgres_dsn"`
	Profile     string        `yaml:"profile"`
	ExportDir   string        `yaml:"export_dir"`
	LogLevel    string        `yaml:"log_level"`
	NoColor     bool          `yaml:"no_color"`
	Start       string        `yaml:"start"`
}

// Default возвращает настройки по умолчанию.
func Default() Config {
	return Config{
		APIURL:     client.DefaultBaseURL,
		Origin:     "http://localhost:5173",
		Timeout:    10 * time.Second,
		Store:      StoreSQLite,
		SQLitePath: "surveysite.db",
		Profile:    "default",
		ExportDir:  ".",
		LogLevel:   "info",
		Start:      "/",
	}
}

// Load собирает настройки: значения по умолчанию, затем YAML файл,
// затем окружение (вместе с .env), затем флаги.
// lookupEnv обычно os.LookupEnv.
func Load(args []string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	fset := pflag.NewFlagSet("surveysite", pflag.ContinueOnError)
	fset.SetOutput(io.Discard)

	configPath := fset.String("config", "", "path to YAML config file")
	envFile := fset.String("env-file", ".env", "path to .env file")

	var flags Config
	fset.StringVar(&flags.APIURL, "api-url", cfg.APIURL, "survey API base URL")
	fset.StringVar(&flags.Origin, "origin", cfg.Origin, "site origin used in share links")
	fset.BoolVar(&flags.Insecure, "insecure", false, "skip TLS certificate verification")
	fset.DurationVar(&flags.Timeout, "timeout", cfg.Timeout, "per-request timeout")
	fset.StringVar(&flags.Store, "store", cfg.Store, "local state store: sqlite, postgres or memory")
	fset.StringVar(&flags.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite file for local state")
	fset.StringVar(&flags.PostgresDSN, "postgres-dsn", "", "Postgres DSN for local state")
	fset.StringVar(&flags.Profile, "profile", cfg.Profile, "state profile name in a shared Postgres store")
	fset.StringVar(&flags.ExportDir, "export-dir", cfg.ExportDir, "directory for exports and QR codes")
	fset.StringVar(&flags.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fset.BoolVar(&flags.NoColor, "no-color", false, "disable colored output")
	fset.StringVar(&flags.Start, "start", cfg.Start, "page to open on start")

	if err := fset.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, &HelpError{Usage: fset.FlagUsages()}
		}

		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	dotenv, err := readDotenv(*envFile, fset.Changed("env-file"))
	if err != nil {
		return nil, err
	}

	lookup := func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok {
			return v, true
		}

		v, ok := dotenv[key]

		return v, ok
	}

	if *configPath == "" {
		*configPath, _ = lookup(envPrefix + "CONFIG")
	}

	if *configPath != "" {
		if err = loadFile(*configPath, &cfg); err != nil {
			return nil, err
		}
	}

	if err = applyEnv(&cfg, lookup); err != nil {
		return nil, err
	}

	applyFlags(&cfg, &flags, fset)

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite store needs a file path", ErrInvalid)
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres store needs a DSN", ErrInvalid)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalid, c.Store)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalid)
	}

	if !strings.HasPrefix(c.Start, "/") {
		return fmt.Errorf("%w: start page must be a path", ErrInvalid)
	}

	return nil
}

// readDotenv читает .env. Отсутствие файла по умолчанию не ошибка.
func readDotenv(path string, explicit bool) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return map[string]string{}, nil
		}

		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	return values, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(envViteAPIURL); ok && v != "" {
		cfg.APIURL = v
	}

	strs := map[string]*string{
		"API_URL":      &cfg.APIURL,
		"ORIGIN":       &cfg.Origin,
		"STORE":        &cfg.Store,
		"SQLITE_PATH":  &cfg.SQLitePath,
		"POSTGRES_DSN": &cfg.PostgresDSN,
		"PROFILE":      &cfg.Profile,
		"EXPORT_DIR":   &cfg.ExportDir,
		"LOG_LEVEL":    &cfg.LogLevel,
		"START":        &cfg.Start,
	}

	for name, dst := range strs {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"INSECURE_TLS": &cfg.Insecure,
		"NO_COLOR":     &cfg.NoColor,
	}

	for name, dst := range bools {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			continue
		}

		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q", ErrInvalid, envPrefix, name, v)
		}
		*dst = b
	}

	if v, ok := lookup(envPrefix + "TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sTIMEOUT=%q", ErrInvalid, envPrefix, v)
		}
		cfg.Timeout = d
	}

	return nil
}

// applyFlags переносит только явно заданные флаги.
func applyFlags(cfg *Config, flags *Config, fset *pflag.FlagSet) {
	set := func(name string, apply func()) {
		if fset.Changed(name) {
			apply()
		}
	}

	set("api-url", func() { cfg.APIURL = flags.APIURL })
	set("origin", func() { cfg.Origin = flags.Origin })
	set("insecure", func() { cfg.Insecure = flags.Insecure })
	set("timeout", func() { cfg.Timeout = flags.Timeout })
	set("store", func() { cfg.Store = flags.Store })
	set("sqlite-path", func() { cfg.SQLitePath = flags.SQLitePath })
	set("postgres-dsn", func() { cfg.PostgresDSN = flags.PostgresDSN })
	set("profile", func() { cfg.Profile = flags.Profile })
	set("export-dir", func() { cfg.ExportDir = flags.ExportDir })
	set("log-level", func() { cfg.LogLevel = flags.LogLevel })
	set("no-color", func() { cfg.NoColor = flags.NoColor })
	set("start", func() { cfg.Start = flags.Start })
}
