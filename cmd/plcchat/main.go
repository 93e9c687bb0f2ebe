package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"

	// earlyinit must be listed before bubbletea so its init() runs first and
	// pre-sets lipgloss.SetHasDarkBackground, preventing bubbletea's init()
	// from sending an OSC 11 terminal colour query that leaks into stdin on WSL2.
	_ "github.com/Dhanuzh/plcchat/internal/earlyinit"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Dhanuzh/plcchat/internal/api"
	"github.com/Dhanuzh/plcchat/internal/cache"
	"github.com/Dhanuzh/plcchat/internal/config"
	"github.com/Dhanuzh/plcchat/internal/conversation"
	"github.com/Dhanuzh/plcchat/internal/identity"
	"github.com/Dhanuzh/plcchat/internal/logging"
	"github.com/Dhanuzh/plcchat/internal/session"
	"github.com/Dhanuzh/plcchat/internal/theme"
	"github.com/Dhanuzh/plcchat/internal/tui"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "plcchat",
		Short: "plcchat - PLC assistant in your terminal",
		Long: `plcchat talks to the PLC chat assistant from your terminal.
Ask about ladder logic, Structured Text and PLC troubleshooting; replies
with code come with a validation verdict you can copy from.`,
		RunE:          runTUI,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("api-url", "", "Chat service base URL (overrides api_base_url)")
	rootCmd.PersistentFlags().String("theme", "", "Color theme ("+strings.Join(theme.NewRegistry().List(), ", ")+")")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging (to stderr for subcommands)")

	rootCmd.AddCommand(
		loginCmd(),
		logoutCmd(),
		whoamiCmd(),
		sessionsCmd(),
		sendCmd(),
		libraryCmd(),
		configCmd(),
		versionCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags overrides config values with the persistent flags that were set.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("api-url"); v != "" {
		cfg.APIBaseURL = strings.TrimRight(v, "/")
	}
	if v, _ := cmd.Flags().GetString("theme"); v != "" {
		cfg.Theme = v
	}
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		cfg.Verbose = true
	}
	if cfg.Verbose {
		cfg.LogLevel = "debug"
	}
}

// app holds what every command needs once the config is loaded.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	flush  func()
	auth   *identity.FileProvider
	ident  *identity.Context
	client *api.Client
	db     *cache.DB
	cache  *cache.UserCache // nil when the cache could not be opened
}

// setup loads and validates the config, opens the log and signs the user
// in from stored credentials. With needUser a missing user is an error.
// tty marks the TUI, which owns stderr.
func setup(cmd *cobra.Command, needUser, tty bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config:\n%w", err)
	}

	log, flush, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		File:   cfg.LogFile,
		Stderr: cfg.Verbose && !tty,
	})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, flush: flush}

	a.auth, err = identity.NewFileProvider(cfg.CredentialsPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.ident = identity.NewContext(a.auth)
	a.ident.Start()

	user := a.ident.User()
	if needUser && user == nil {
		a.Close()
		return nil, errors.New("not signed in, run `plcchat login` first")
	}

	a.client = api.NewClient(a.ident, api.Options{
		BaseURL:      cfg.APIBaseURL,
		Timeout:      cfg.RequestTimeout,
		RateLimit:    cfg.RateLimit,
		SessionLimit: cfg.SessionLimit,
		MessageLimit: cfg.MessageLimit,
		UserAgent:    "plcchat/" + version,
		Logger:       log,
	})

	if user != nil {
		a.openCache(user.UID)
	}
	return a, nil
}

// openCache opens the local cache for uid. A broken cache is logged and
// skipped; the service stays the source of truth.
func (a *app) openCache(uid string) {
	db, err := cache.Open(a.cfg.CachePath, a.log)
	if err != nil {
		a.log.Warn("cache unavailable", zap.Error(err))
		return
	}
	uc, err := db.ForUser(uid)
	if err != nil {
		_ = db.Close()
		a.log.Warn("cache unavailable", zap.Error(err))
		return
	}
	a.db, a.cache = db, uc
}

// store builds the session store over the service and the cache, if any.
func (a *app) store() *session.Store {
	var c session.Cache
	if a.cache != nil {
		c = a.cache
	}
	return session.NewStore(a.client, c, a.log)
}

func (a *app) controller(store *session.Store) (*conversation.Controller, error) {
	t := a.cfg.Title
	titler, err := conversation.NewTitler(t.Provider, t.APIKey, t.BaseURL, t.Model, a.log)
	if err != nil {
		return nil, err
	}
	return conversation.New(store, a.client, titler, a.log), nil
}

func (a *app) Close() {
	if a.ident != nil {
		a.ident.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.flush != nil {
		a.flush()
	}
}

// oscPattern matches fragments of terminal colour replies.
var oscPattern = regexp.MustCompile(`\d{1,4}/\d{4}/\d{4}`)

// filterOSCSequences drops OSC replies (e.g. to the OSC 11 background
// colour query) that leak into the input as key presses.
func filterOSCSequences(_ tea.Model, msg tea.Msg) tea.Msg {
	if k, ok := msg.(tea.KeyMsg); ok {
		str := k.String()
		if oscPattern.MatchString(str) ||
			strings.HasPrefix(str, "]11;") ||
			strings.HasPrefix(str, "rgb:") ||
			strings.Contains(str, ";rgb:") {
			return nil
		}
	}
	return msg
}

// runTUI is the default command - starts the chat screen
func runTUI(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, true, true)
	if err != nil {
		return err
	}
	defer a.Close()

	store := a.store()
	ctrl, err := a.controller(store)
	if err != nil {
		return err
	}

	themes := theme.NewRegistry()
	if err := themes.SetCurrent(a.cfg.Theme); err != nil {
		return err
	}

	deps := tui.Deps{
		Store:      store,
		Controller: ctrl,
		Identity:   a.ident,
		Themes:     themes,
		Timeout:    a.cfg.RequestTimeout,
		Logger:     a.log,

		HistoryFile: filepath.Join(config.GetConfigDir(), "prompt-history.jsonl"),
	}
	if a.cache != nil {
		deps.Library = a.cache
	}

	// Mouse stays off so terminal text selection works normally.
	p := tea.NewProgram(
		tui.New(deps),
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
		tea.WithFilter(filterOSCSequences),
	)
	ctrl.OnStateChange(func(s conversation.State) {
		p.Send(tui.SendStateMsg(s))
	})
	a.ident.OnChange(func(u *identity.User) {
		if u == nil {
			p.Send(tui.SignedOutMsg{})
		}
	})

	a.log.Info("starting chat screen", zap.String("api", a.cfg.APIBaseURL), zap.String("commit", commit))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
