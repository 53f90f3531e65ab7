// Package config resolves the client's settings from flags, the environment and an optional
// .env file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// These constants refer to the flag names shared by every command.
const (
	FlagAPIURL            = "api-url"
	FlagWSURL             = "ws-url"
	FlagDB                = "db"
	FlagLog               = "log"
	FlagLogLevel          = "log-level"
	FlagReconnectAttempts = "reconnect-attempts"
	FlagReconnectDelay    = "reconnect-delay"
	FlagCacheSize         = "cache-size"
)

const (
	defaultAPIURL    = "http://localhost:5000/api"
	defaultCacheSize = 4096
)

// Config is everything the client needs to start.
type Config struct {
	APIURL            string
	WSURL             string
	DBFilename        string
	LogFilename       string
	LogLevel          zerolog.Level
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	CacheSize         int
}

// LoadDotEnv reads filename into the environment without overriding variables that are
// already set. A missing file is not an error.
func LoadDotEnv(filename string) error {
	err := godotenv.Load(filename)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading %s: %w", filename, err)
	}

	return nil
}

// DataDir is where the session database and the log file live unless configured.
func DataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "kanban")
	}

	return "."
}

// Flags returns the global flags of the command line app.
func Flags() []cli.Flag {
	dir := DataDir()

	return []cli.Flag{
		&cli.StringFlag{
			Name:    FlagAPIURL,
			Value:   defaultAPIURL,
			Usage:   "REST base url of the Kanban server",
			EnvVars: []string{"KANBAN_API_URL"},
		},
		&cli.StringFlag{
			Name:    FlagWSURL,
			Usage:   "push channel url (default: derived from the api url)",
			EnvVars: []string{"KANBAN_WS_URL"},
		},
		&cli.StringFlag{
			Name:    FlagDB,
			Value:   filepath.Join(dir, "session.sqlite"),
			Usage:   "sqlite file holding the signed in session",
			EnvVars: []string{"KANBAN_DB"},
		},
		&cli.StringFlag{
			Name:    FlagLog,
			Value:   filepath.Join(dir, "debug.log"),
			Usage:   "log file",
			EnvVars: []string{"KANBAN_LOG"},
		},
		&cli.StringFlag{
			Name:    FlagLogLevel,
			Value:   zerolog.InfoLevel.String(),
			Usage:   "one of trace, debug, info, warn, error",
			EnvVars: []string{"KANBAN_LOG_LEVEL"},
		},
		&cli.IntFlag{
			Name:    FlagReconnectAttempts,
			Value:   5,
			Usage:   "push reconnect attempts before giving up",
			EnvVars: []string{"KANBAN_RECONNECT_ATTEMPTS"},
		},
		&cli.DurationFlag{
			Name:    FlagReconnectDelay,
			Value:   time.Second,
			Usage:   "delay between push reconnect attempts",
			EnvVars: []string{"KANBAN_RECONNECT_DELAY"},
		},
		&cli.IntFlag{
			Name:    FlagCacheSize,
			Value:   defaultCacheSize,
			Usage:   "maximum number of cached collections",
			EnvVars: []string{"KANBAN_CACHE_SIZE"},
		},
	}
}

// FromContext builds a Config from the parsed flags.
func FromContext(c *cli.Context) (Config, error) {
	level, err := zerolog.ParseLevel(c.String(FlagLogLevel))
	if err != nil {
		return Config{}, fmt.Errorf("error parsing log level: %w", err)
	}

	cfg := Config{
		APIURL:            strings.TrimRight(c.String(FlagAPIURL), "/"),
		WSURL:             c.String(FlagWSURL),
		DBFilename:        c.String(FlagDB),
		LogFilename:       c.String(FlagLog),
		LogLevel:          level,
		ReconnectAttempts: c.Int(FlagReconnectAttempts),
		ReconnectDelay:    c.Duration(FlagReconnectDelay),
		CacheSize:         c.Int(FlagCacheSize),
	}

	if cfg.WSURL == "" {
		cfg.WSURL, err = PushURL(cfg.APIURL)
		if err != nil {
			return Config{}, err
		}
	}

	if cfg.ReconnectAttempts < 0 {
		return Config{}, fmt.Errorf("reconnect attempts must not be negative, got %d", cfg.ReconnectAttempts)
	}

	if cfg.CacheSize <= 0 {
		return Config{}, fmt.Errorf("cache size must be positive, got %d", cfg.CacheSize)
	}

	return cfg, nil
}

// PushURL derives the push channel url from the REST base url: same host, ws scheme, the
// /ws path at the root.
func PushURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("error parsing api url %s: %w", apiURL, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported api url scheme '%s'", u.Scheme)
	}

	u.Path = "/ws"
	u.RawQuery = ""

	return u.String(), nil
}
