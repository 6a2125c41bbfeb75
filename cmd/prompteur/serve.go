package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/fredcamaral/prompteur/internal/adapters/primary/http"
	"github.com/fredcamaral/prompteur/internal/adapters/secondary/assistant"
	"github.com/fredcamaral/prompteur/internal/adapters/secondary/browser"
	"github.com/fredcamaral/prompteur/internal/adapters/secondary/chatfeed"
	"github.com/fredcamaral/prompteur/internal/adapters/secondary/config"
	"github.com/fredcamaral/prompteur/internal/adapters/secondary/logging"
	"github.com/fredcamaral/prompteur/internal/adapters/secondary/markdown"
	"github.com/fredcamaral/prompteur/internal/adapters/secondary/monitoring"
	"github.com/fredcamaral/prompteur/internal/adapters/secondary/watcher"
	"github.com/fredcamaral/prompteur/internal/domain/entities"
	"github.com/fredcamaral/prompteur/internal/domain/ports"
	"github.com/fredcamaral/prompteur/internal/domain/services"
)

const (
	scriptDebounce  = 200 * time.Millisecond
	metricsInterval = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the teleprompter server",
	Long: `Start the HTTP and websocket server. The admin view is served at /
and the display view at /prompteur.html.

Example:
  prompteur serve
  prompteur serve --port 8080 --open --view display
  prompteur serve --live-chat-id Cg0KC3h5ejEyMw
  prompteur serve --script discours.md`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd)
}

// addServeFlags registers the serve flags. Defaults come from the
// configuration; flags only override when set.
func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 0, "Port to serve on")
	cmd.Flags().String("host", "", "Host to bind to")
	cmd.Flags().String("web-root", "", "Directory holding the admin and display views")
	cmd.Flags().Bool("no-browser", false, "Don't open a browser")
	cmd.Flags().Bool("open", false, "Open a browser once the server is up")
	cmd.Flags().String("view", "", "View to open: admin or display")
	cmd.Flags().String("live-chat-id", "", "Start relaying this YouTube live chat on startup")
	cmd.Flags().String("script", "", "Load the text from this file and reload it on change")
}

// app holds the wired components of a running server
type app struct {
	config   *entities.Config
	logger   zerolog.Logger
	server   *httpadapter.Server
	relay    *services.FeedRelayService
	script   *services.ScriptReloadService
	monitor  *monitoring.Monitor
	launcher ports.BrowserLauncher
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()
	logging.BridgeStdlog(logger)

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	return a.run(cmd.Context())
}

// loadConfig resolves defaults, files, environment and changed flags
func loadConfig(cmd *cobra.Command) (*entities.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}

	explicit, _ := cmd.Flags().GetString("config")
	svc := services.NewConfigService(config.NewFileLoader(), config.NewConfigMerger())

	cfg, err := svc.LoadConfig(cmd.Context(), ports.LoadOptions{
		WorkingDir:   wd,
		ExplicitPath: explicit,
		Flags:        changedFlags(cmd),
	})
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// changedFlags collects the flags the user actually set
func changedFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	fs := cmd.Flags()

	if fs.Changed("port") {
		v, _ := fs.GetInt("port")
		flags["port"] = v
	}
	for _, name := range []string{"host", "web-root", "view", "live-chat-id", "script"} {
		if fs.Changed(name) {
			v, _ := fs.GetString(name)
			flags[name] = v
		}
	}
	for _, name := range []string{"no-browser", "open", "verbose"} {
		if fs.Changed(name) {
			v, _ := fs.GetBool(name)
			flags[name] = v
		}
	}
	return flags
}

func newApp(cfg *entities.Config, logger zerolog.Logger) (*app, error) {
	catalog, err := assistant.LoadCatalog(cfg.Assistant.CommandsFile)
	if err != nil {
		return nil, fmt.Errorf("loading assistant commands: %w", err)
	}

	userAgent := "prompteur/" + Version

	store := services.NewStateStore(cfg.Prompter.InitialState())
	registry := httpadapter.NewConnectionManager(logging.Component(logger, "registry"))
	syncSvc := services.NewSyncService(store, registry, logger)

	feedHTTP := ports.NewRealHTTPClient(ports.HTTPClientConfig{
		Timeout:    cfg.Feed.GetRequestTimeout(),
		MaxRetries: 2,
		RetryDelay: 500 * time.Millisecond,
		UserAgent:  userAgent,
	})
	relay := services.NewFeedRelayService(chatfeed.NewYouTubeSource(feedHTTP, cfg.Feed), registry, cfg.Feed, logger)

	// the assistant client retries on its own
	assistantHTTP := ports.NewRealHTTPClient(ports.HTTPClientConfig{
		Timeout:   cfg.Assistant.GetTimeout(),
		UserAgent: userAgent,
	})
	asst := assistant.NewClient(assistantHTTP, cfg.Assistant, catalog, logger)

	monitor := monitoring.NewMonitor(metricsInterval)

	server := httpadapter.NewServer(httpadapter.Options{
		Config:    cfg.Server,
		Prompter:  syncSvc,
		Registry:  registry,
		Feed:      relay,
		Assistant: asst,
		Renderer:  markdown.NewRenderer(),
		Metrics:   monitor,
		Logger:    logger,
	})

	a := &app{
		config:   cfg,
		logger:   logging.Component(logger, "cli"),
		server:   server,
		relay:    relay,
		monitor:  monitor,
		launcher: browser.NewLauncher(cfg.Browser.Browser),
	}
	if cfg.Prompter.ScriptFile != "" {
		poller := watcher.NewPollingWatcher(cfg.Prompter.GetScriptPollInterval(), scriptDebounce, logger)
		a.script = services.NewScriptReloadService(poller, syncSvc, logger)
	}
	return a, nil
}

// run serves until ctx is cancelled, then shuts everything down
func (a *app) run(ctx context.Context) error {
	// the script is loaded before the first client can attach
	if a.script != nil {
		if err := a.script.Start(ctx, a.config.Prompter.ScriptFile); err != nil {
			return fmt.Errorf("loading script: %w", err)
		}
	}

	if err := a.server.Start(ctx, a.config.Server.Port, a.config.Server.Host); err != nil {
		a.stopScript()
		return err
	}

	url, err := a.viewURL()
	if err != nil {
		return err
	}
	a.logger.Info().
		Str("admin", a.url("/")).
		Str("display", a.url("/prompteur.html")).
		Bool("assistant", a.config.Assistant.IsConfigured()).
		Msg("prompteur is running")

	g, gctx := errgroup.WithContext(ctx)
	a.monitor.Start(gctx)

	if a.config.Feed.Enabled && a.config.Feed.LiveChatID != "" {
		if err := a.relay.Start(gctx, a.config.Feed.LiveChatID); err != nil {
			a.logger.Warn().Err(err).Msg("live chat relay not started")
		}
	}

	if a.config.Browser.AutoOpen {
		g.Go(func() error {
			if err := a.launcher.Launch(url, false); err != nil {
				a.logger.Warn().Err(err).Str("url", url).Msg("failed to open browser")
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutting down")

		a.relay.Stop()
		a.stopScript()
		a.monitor.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.GetShutdownTimeout())
		defer cancel()
		if err := a.server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("stopping server: %w", err)
		}
		return nil
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *app) stopScript() {
	if a.script == nil {
		return
	}
	if err := a.script.Stop(); err != nil {
		a.logger.Warn().Err(err).Msg("stopping script watcher")
	}
}

// viewURL is the URL of the configured browser view
func (a *app) viewURL() (string, error) {
	if _, _, err := net.SplitHostPort(a.server.Addr()); err != nil {
		return "", fmt.Errorf("server address: %w", err)
	}
	return a.url(a.config.Browser.GetPath()), nil
}

func (a *app) url(path string) string {
	host, portStr, err := net.SplitHostPort(a.server.Addr())
	if err != nil {
		return ""
	}
	port, _ := strconv.Atoi(portStr)
	if a.config.Server.Host != "" {
		host = a.config.Server.Host
	}
	return browser.ViewURL(host, port, path)
}
