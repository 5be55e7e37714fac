package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/ivywell/nbdap/internal/dap/rewrite"
	"github.com/ivywell/nbdap/internal/dap/translate"
	"github.com/ivywell/nbdap/internal/dap/transport"
	"github.com/ivywell/nbdap/internal/notebook"
	"github.com/ivywell/nbdap/internal/proxy"
	"github.com/ivywell/nbdap/internal/runtime/config"
	"github.com/ivywell/nbdap/internal/sourcemap"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "dap-bridge: %v\n", err)
		os.Exit(1)
	}
}

type bridgeOptions struct {
	configPath    string
	adapterCmd    string
	adapterAddr   string
	listenAddr    string
	scratchDir    string
	transcriptDir string
	verbosity     int
}

func newRootCommand() *cobra.Command {
	opts := &bridgeOptions{}

	cmd := &cobra.Command{
		Use:          "dap-bridge",
		Short:        "Debug adapter middleware that maps notebook cells onto compiled sources",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(opts)
			if err != nil {
				return err
			}
			log := newLogger(cfg.Logging.Verbosity)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Bridge.ListenAddr != "" {
				return runListen(ctx, cfg, log)
			}
			return runStdio(ctx, cfg, log)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "path to YAML config file")
	flags.StringVar(&opts.adapterCmd, "adapter-cmd", "", "shell command that starts the backend debug adapter")
	flags.StringVar(&opts.adapterAddr, "adapter-addr", "", "TCP address of the backend debug adapter")
	flags.StringVar(&opts.listenAddr, "listen", "", "serve websocket sessions on this address instead of stdio")
	flags.StringVar(&opts.scratchDir, "scratch-dir", "", "directory for compiled cell files (default: system temp)")
	flags.StringVar(&opts.transcriptDir, "transcript-dir", "", "write JSONL traffic transcripts into this directory")
	flags.IntVar(&opts.verbosity, "v", 0, "log verbosity")

	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "dap-bridge", version)
		},
	}
}

var version = "dev"

// resolveConfig layers file, environment, and flags (highest wins).
func resolveConfig(opts *bridgeOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	config.ApplyEnv(cfg)

	if opts.adapterCmd != "" {
		cfg.Adapter.Command = opts.adapterCmd
	}
	if opts.adapterAddr != "" {
		cfg.Adapter.Addr = opts.adapterAddr
	}
	if opts.listenAddr != "" {
		cfg.Bridge.ListenAddr = opts.listenAddr
	}
	if opts.scratchDir != "" {
		cfg.Bridge.ScratchDir = opts.scratchDir
	}
	if opts.transcriptDir != "" {
		cfg.Bridge.TranscriptDir = opts.transcriptDir
	}
	if opts.verbosity > 0 {
		cfg.Logging.Verbosity = opts.verbosity
	}

	if cfg.Adapter.Command == "" && cfg.Adapter.Addr == "" {
		return nil, proxy.ErrNoAdapter
	}
	return cfg, nil
}

func newLogger(verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s %s: %s\n", time.Now().Format(time.RFC3339), prefix, args)
			return
		}
		fmt.Fprintf(os.Stderr, "%s %s\n", time.Now().Format(time.RFC3339), args)
	}, funcr.Options{Verbosity: verbosity})
}

// runStdio bridges a single editor on stdin/stdout to one backend adapter.
func runStdio(ctx context.Context, cfg *config.Config, log logr.Logger) error {
	client := transport.NewStream(os.Stdin, os.Stdout)
	return runSession(ctx, cfg, log, client)
}

func runSession(ctx context.Context, cfg *config.Config, log logr.Logger, client transport.Endpoint) error {
	launcher := proxy.NewLauncher(proxy.LaunchConfig{
		Command:        cfg.Adapter.Command,
		Addr:           cfg.Adapter.Addr,
		ConnectTimeout: cfg.Adapter.ConnectTimeout,
	})
	adapter, err := launcher.Start(ctx)
	if err != nil {
		return fmt.Errorf("start adapter: %w", err)
	}
	defer func() {
		if err := launcher.Close(); err != nil {
			log.Error(err, "adapter shutdown")
		}
	}()

	registry := notebook.NewRegistry()
	registry.SetLoader(notebook.LoadPercent)

	store, err := notebook.NewStore(registry, cfg.Bridge.ScratchDir)
	if err != nil {
		return fmt.Errorf("create scratch store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(err, "scratch cleanup")
		}
	}()

	translator := translate.NewTranslator(registry, store, log.WithName("translate"))
	remapper := sourcemap.NewRemapper(registry)
	rewriter := rewrite.NewRewriter(translator, remapper, log.WithName("rewrite"))

	sessionID := uuid.NewString()
	session := proxy.NewSession(sessionID, client, adapter, rewriter, registry, log.WithName("session"))

	if cfg.Bridge.TranscriptDir != "" {
		file, err := openTranscript(cfg.Bridge.TranscriptDir, sessionID)
		if err != nil {
			log.Error(err, "transcript disabled")
		} else {
			defer file.Close()
			session.SetTrafficLogger(transport.NewJSONLTrafficLogger(file))
			log.Info("transcript enabled", "path", file.Name())
		}
	}

	log.Info("session starting", "id", sessionID)
	err = session.Run(ctx)
	log.Info("session finished", "id", sessionID)
	return err
}

func openTranscript(dir, sessionID string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("dap-%s-%s.jsonl", time.Now().UTC().Format("20060102-150405"), sessionID)
	return os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	// Editors connect from arbitrary local origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

// runListen serves one bridged session per websocket connection, each with
// its own backend adapter and scratch store.
func runListen(ctx context.Context, cfg *config.Config, log logr.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error(err, "websocket upgrade")
			return
		}
		client := transport.NewWebSocket(conn)
		if err := runSession(r.Context(), cfg, log, client); err != nil {
			log.Error(err, "session ended")
		}
	})

	server := &http.Server{
		Addr:    cfg.Bridge.ListenAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	log.Info("listening", "addr", cfg.Bridge.ListenAddr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
