package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/betbot/degiro/internal/journal"
	"github.com/betbot/degiro/pkg/config"
	"github.com/betbot/degiro/pkg/logger"
	"github.com/betbot/degiro/pkg/persistence"
	"github.com/betbot/degiro/pkg/ratelimit"
	"github.com/betbot/degiro/pkg/sdk/degiro"
	"github.com/betbot/degiro/pkg/secretstore"
)

// app holds what a command run needs. The client and journal are built
// lazily so commands like journal work without credentials.
type app struct {
	configPath string
	envFile    string

	cfg     *config.Config
	out     io.Writer
	client  *degiro.Client
	journal *journal.Journal
	closers []func() error
}

func (a *app) init(cmd *cobra.Command) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil {
			return errors.Wrapf(err, "load env file %s", a.envFile)
		}
	} else {
		_ = godotenv.Load()
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		return errors.Wrap(err, "init logger")
	}
	a.cfg = cfg
	a.out = cmd.OutOrStdout()
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warnf("close: %v", err)
		}
	}
	a.closers = nil
	_ = logger.Close()
}

// run wraps a command body so resources opened during the run are released
// on every exit path.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.close()
		return fn(cmd, args)
	}
}

func (a *app) openJournal() (*journal.Journal, error) {
	if a.journal != nil {
		return a.journal, nil
	}
	if a.cfg.Journal.Path == "" {
		return nil, nil
	}
	j, err := journal.Open(a.cfg.Journal.Path)
	if err != nil {
		return nil, err
	}
	a.journal = j
	a.closers = append(a.closers, j.Close)
	return j, nil
}

func (a *app) sessionStore() (degiro.SessionStore, error) {
	switch a.cfg.Session.Store {
	case config.StoreFile:
		return persistence.NewSessionStore(a.cfg.Session.Path), nil
	case config.StoreBadger:
		key, err := secretstore.ParseKey(a.cfg.Session.EncryptionKey)
		if err != nil {
			return nil, errors.Wrap(err, "session encryption key")
		}
		st, err := secretstore.Open(secretstore.OpenOptions{Path: a.cfg.Session.Path, EncryptionKey: key})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		return secretstore.NewSessionStore(st), nil
	}
	return nil, nil
}

func (a *app) rateLimiter() *ratelimit.Manager {
	switch {
	case a.cfg.HTTP.DisableLimit:
		return nil
	case a.cfg.HTTP.RatePerSecond > 0:
		return ratelimit.NewUniformManager(a.cfg.HTTP.Burst, a.cfg.HTTP.RatePerSecond)
	}
	return ratelimit.NewManager()
}

// newClient builds the client without touching the network.
func (a *app) newClient() (*degiro.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	cfg := a.cfg
	opts := []degiro.Option{
		degiro.WithLogger(logger.Logger),
		degiro.WithDebug(cfg.Debug),
		degiro.WithTimeout(cfg.HTTP.Timeout.Duration),
		degiro.WithStrictQuotes(cfg.Quotes.Strict),
		degiro.WithRateLimiter(a.rateLimiter()),
	}
	if cfg.Credentials.Username != "" {
		opts = append(opts, degiro.WithCredentials(cfg.Credentials.Username, cfg.Credentials.Password))
	}
	if cfg.Credentials.OneTimePassword != "" {
		opts = append(opts, degiro.WithOneTimePassword(cfg.Credentials.OneTimePassword))
	}
	if cfg.Session.ID != "" {
		opts = append(opts, degiro.WithSessionID(cfg.Session.ID))
	}
	if cfg.Session.Account != 0 {
		opts = append(opts, degiro.WithAccount(cfg.Session.Account))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, degiro.WithBaseURL(cfg.BaseURL))
	}
	if cfg.QuotecastURL != "" {
		opts = append(opts, degiro.WithQuotecastURL(cfg.QuotecastURL))
	}
	store, err := a.sessionStore()
	if err != nil {
		return nil, err
	}
	if store != nil {
		opts = append(opts, degiro.WithSessionStore(store))
	}
	j, err := a.openJournal()
	if err != nil {
		return nil, err
	}
	if j != nil {
		opts = append(opts, degiro.WithOrderHook(j))
	}
	a.client = degiro.NewClient(opts...)
	return a.client, nil
}

// connect returns a client with a usable session, resuming a stored or
// configured one before falling back to a fresh login.
func (a *app) connect(ctx context.Context) (*degiro.Client, error) {
	if err := a.cfg.RequireLogin(); err != nil {
		return nil, err
	}
	c, err := a.newClient()
	if err != nil {
		return nil, err
	}
	if _, err := c.LoginOrResume(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
