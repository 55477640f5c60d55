package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/surveySite/internal/client"
)

func envOf(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load([]string{"--env-file", writeFile(t, ".env", "")}, envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, client.DefaultBaseURL, cfg.APIURL)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "/", cfg.Start)
}

func TestLoad_Precedence(t *testing.T) {
	file := writeFile(t, "surveysite.yaml", `
api_url: https://file.example
origin: https://site.example
store: memory
timeout: 30s
log_level: warn
`)
	dotenv := writeFile(t, ".env", "SURVEYSITE_LOG_LEVEL=debug\nSURVEYSITE_PROFILE=kiosk\n")

	testCases := []struct {
		name      string
		args      []string
		env       map[string]string
		wantURL   string
		wantLevel string
	}{
		{
			name:      "file over defaults",
			args:      []string{"--config", file, "--env-file", dotenv},
			wantURL:   "https://file.example",
			wantLevel: "debug",
		},
		{
			name:      "vite variable over file",
			args:      []string{"--config", file, "--env-file", dotenv},
			env:       map[string]string{"VITE_API_URL": "https://vite.example"},
			wantURL:   "https://vite.example",
			wantLevel: "debug",
		},
		{
			name: "own variable over vite variable",
			args: []string{"--config", file, "--env-file", dotenv},
			env: map[string]string{
				"VITE_API_URL":         "https://vite.example",
				"SURVEYSITE_API_URL":   "https://env.example",
				"SURVEYSITE_LOG_LEVEL": "error",
			},
			wantURL:   "https://env.example",
			wantLevel: "error",
		},
		{
			name:      "flags over everything",
			args:      []string{"--config", file, "--env-file", dotenv, "--api-url", "https://flag.example", "--log-level", "info"},
			env:       map[string]string{"SURVEYSITE_API_URL": "https://env.example"},
			wantURL:   "https://flag.example",
			wantLevel: "info",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(tc.args, envOf(tc.env))
			require.NoError(t, err)

			assert.Equal(t, tc.wantURL, cfg.APIURL)
			assert.Equal(t, tc.wantLevel, cfg.LogLevel)
			assert.Equal(t, "https://site.example", cfg.Origin)
			assert.Equal(t, StoreMemory, cfg.Store)
			assert.Equal(t, 30*time.Second, cfg.Timeout)
			assert.Equal(t, "kiosk", cfg.Profile)
		})
	}
}

func TestLoad_ConfigFromEnv(t *testing.T) {
	file := writeFile(t, "surveysite.yaml", "store: memory\nno_color: true\n")

	cfg, err := Load([]string{"--env-file", writeFile(t, ".env", "")}, envOf(map[string]string{
		"SURVEYSITE_CONFIG":       file,
		"SURVEYSITE_INSECURE_TLS": "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store)
	assert.True(t, cfg.NoColor)
	assert.True(t, cfg.Insecure)
}

func TestLoad_Errors(t *testing.T) {
	dotenv := writeFile(t, ".env", "")

	testCases := []struct {
		name string
		args []string
		env  map[string]string
		want error
	}{
		{name: "unknown store", args: []string{"--store", "redis"}, want: ErrInvalid},
		{name: "postgres without dsn", args: []string{"--store", "postgres"}, want: ErrInvalid},
		{name: "bad bool", env: map[string]string{"SURVEYSITE_NO_COLOR": "maybe"}, want: ErrInvalid},
		{name: "bad timeout", env: map[string]string{"SURVEYSITE_TIMEOUT": "soon"}, want: ErrInvalid},
		{name: "start is not a path", args: []string{"--start", "surveys"}, want: ErrInvalid},
		{name: "help", args: []string{"--help"}, want: pflag.ErrHelp},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"--env-file", dotenv}, tc.args...)

			_, err := Load(args, envOf(tc.env))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoad_MissingFiles(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")

	_, err := Load([]string{"--env-file", missing}, envOf(nil))
	assert.Error(t, err, "explicit env file must exist")

	_, err = Load([]string{"--env-file", writeFile(t, ".env", ""), "--config", missing}, envOf(nil))
	assert.Error(t, err)
}
