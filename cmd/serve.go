package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conforme/conforme-cli/internal/config"
	"github.com/conforme/conforme-cli/internal/prompt"
	"github.com/conforme/conforme-cli/internal/rules"
	"github.com/conforme/conforme-cli/internal/scope"
	"github.com/conforme/conforme-cli/internal/scrape"
	"github.com/conforme/conforme-cli/internal/store"
	"github.com/conforme/conforme-cli/pkg/vertex"
)

var servePort int

// serverEnv holds everything the HTTP handlers share. The uploads mutex
// serializes multipart handling so concurrent requests never interleave
// writes in the shared uploads directory.
type serverEnv struct {
	cfg     *config.Config
	store   store.Store
	client  vertex.Client
	guard   *scope.Guard
	builder *prompt.Builder
	rules   *rules.Repository
	scraper *scrape.PageScraper

	uploads sync.Mutex
}

func newServerEnv(cfg *config.Config, st store.Store, client vertex.Client) *serverEnv {
	return &serverEnv{
		cfg:    cfg,
		store:  st,
		client: client,
		guard: scope.NewGuard(
			cfg.ScopeGuard.Competitors,
			cfg.ScopeGuard.OffTopicKeywords,
			cfg.ScopeGuard.InScopeKeywords,
		),
		builder: prompt.NewBuilder(cfg),
		rules:   rules.NewRepository(cfg.Paths.RulesDir),
		scraper: scrape.NewPageScraper(),
	}
}

// buildMux registers all routes on a fresh mux.
func buildMux(env *serverEnv) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", env.handleHealth)
	mux.HandleFunc("POST /analyze", env.handleAnalyze)
	mux.HandleFunc("POST /analyze-text", env.handleAnalyzeText)
	mux.HandleFunc("POST /analyze-url", env.handleAnalyzeURL)
	mux.HandleFunc("GET /download/{file}", env.handleDownload)
	mux.HandleFunc("GET /evaluations", env.handleListEvaluations)
	mux.HandleFunc("GET /evaluations/statistics", env.handleStatistics)
	mux.HandleFunc("GET /evaluations/{id}", env.handleGetEvaluation)

	return mux
}

func resolvePort(flag, configured int) int {
	if flag != 0 {
		return flag
	}
	return configured
}

func startServer(ctx context.Context, mux *http.ServeMux, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		srv.Shutdown(context.Background())
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP analysis server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, err := initClient(ctx)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			return eris.Wrap(err, "create database directory")
		}
		st, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.Paths.UploadsDir, 0o755); err != nil {
			return eris.Wrap(err, "create uploads directory")
		}

		env := newServerEnv(cfg, st, client)
		return startServer(ctx, buildMux(env), resolvePort(servePort, cfg.Server.Port))
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
