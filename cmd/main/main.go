package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app := &cli.App{
		Name:   "kanban",
		Usage:  "collaborative Kanban boards in the terminal",
		Flags:  config.Flags(),
		Action: run,
		Commands: []*cli.Command{
			loginCommand(),
			signupCommand(),
			logoutCommand(),
			{
				Name:   "run",
				Usage:  "open the board view (default)",
				Action: run,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup resolves the configuration and points the global logger at the log file. The
// returned func closes the file.
func setup(c *cli.Context) (config.Config, func(), error) {
	cfg, err := config.FromContext(c)
	if err != nil {
		return config.Config{}, nil, err
	}

	dirPerms := 0o700
	filePerms := 0o600

	for _, filename := range []string{cfg.LogFilename, cfg.DBFilename} {
		if err := os.MkdirAll(filepath.Dir(filename), fs.FileMode(dirPerms)); err != nil {
			return config.Config{}, nil, fmt.Errorf("error creating directory for %s: %w", filename, err)
		}
	}

	logFile, err := os.OpenFile(cfg.LogFilename, os.O_RDWR|os.O_CREATE|os.O_APPEND, fs.FileMode(filePerms))
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("error opening log file: %w", err)
	}

	zerolog.SetGlobalLevel(cfg.LogLevel)

	log.Logger = log.With().Caller().Logger().Output(zerolog.ConsoleWriter{
		Out: logFile, TimeFormat: "2006-01-02_15:04:05",
	})

	return cfg, func() { logFile.Close() }, nil
}
