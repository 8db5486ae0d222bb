package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/tempinbox/internal/api"
	"github.com/nhle/tempinbox/internal/app"
	"github.com/nhle/tempinbox/internal/archive"
	"github.com/nhle/tempinbox/internal/credential"
	"github.com/nhle/tempinbox/internal/logger"
	"github.com/nhle/tempinbox/internal/model"
	"github.com/nhle/tempinbox/internal/poller"
	"github.com/nhle/tempinbox/internal/session"
	"github.com/nhle/tempinbox/internal/store"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to configuration file")
	apiURL := flag.String("api", "", "backend base URL (overrides the config file)")
	ttl := flag.Duration("ttl", 0, "create a mailbox with this lifetime at start-up, e.g. 1h")
	writeConfig := flag.Bool("write-config", false, "write the effective configuration to -config and exit")
	flag.Parse()

	if err := run(*configPath, *apiURL, *ttl, *writeConfig); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, apiURL string, ttl time.Duration, writeConfig bool) error {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if writeConfig {
		if err := model.SaveConfig(configPath, cfg); err != nil {
			return err
		}
		fmt.Println("wrote", configPath)
		return nil
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	token, err := credential.APIToken()
	if err != nil {
		log.Warn("reading api token failed", zap.Error(err))
	}

	client := api.NewClient(cfg.API.BaseURL,
		api.WithToken(token),
		api.WithTimeout(time.Duration(cfg.API.TimeoutSec)*time.Second),
		api.WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst),
	)

	p := poller.New(client,
		poller.WithBackoff(poller.NewBackoff(cfg.Poll.Start(), cfg.Poll.Max(), cfg.Poll.Multiplier)),
		poller.WithLogger(log),
	)
	ctrl := session.New(client, session.WithPoller(p), session.WithLogger(log))

	// The archive stays disabled until a password is stored.
	password, err := credential.IMAPPassword()
	if err != nil && cfg.Archive.Enabled {
		log.Info("archive password not available", zap.Error(err))
	}

	m := app.New(app.Deps{
		Config:     *cfg,
		Store:      db,
		Backend:    client,
		Session:    ctrl,
		Archiver:   archive.New(cfg.Archive, password, log),
		Log:        log,
		InitialTTL: ttl,
	})

	log.Info("tempinbox starting", zap.String("api", cfg.API.BaseURL))
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}
