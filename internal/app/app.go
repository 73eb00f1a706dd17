// Package app wires the stores, model adapters, and HTTP surface into one
// server process and owns its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	adaptersinmem "github.com/dealdraft/dealdraft/adapters/inmem"
	"github.com/dealdraft/dealdraft/adapters/openai"
	"github.com/dealdraft/dealdraft/eventing"
	"github.com/dealdraft/dealdraft/internal/chathub"
	"github.com/dealdraft/dealdraft/internal/config"
	"github.com/dealdraft/dealdraft/internal/httpapi"
	"github.com/dealdraft/dealdraft/internal/modelmock"
	"github.com/dealdraft/dealdraft/internal/offerstream"
	"github.com/dealdraft/dealdraft/offer"
	storeinmem "github.com/dealdraft/dealdraft/offerstore/inmem"
	"github.com/dealdraft/dealdraft/policy/deadline"
)

// App owns component wiring and HTTP server lifecycle.
type App struct {
	cfg    config.Config
	logger *slog.Logger
	hub    *chathub.Hub
	server *http.Server
	ready  atomic.Bool
}

func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if cfg.HTTPAddr == "" {
		return nil, errors.New("new app: empty HTTPAddr")
	}
	if logger == nil {
		return nil, errors.New("new app: nil logger")
	}
	if cfg.ShutdownTimeout <= 0 {
		return nil, errors.New("new app: shutdown timeout must be > 0")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new app config: %w", err)
	}

	model, generator, err := buildModels(cfg)
	if err != nil {
		return nil, fmt.Errorf("new app models: %w", err)
	}

	store := storeinmem.New()
	broker := offerstream.New(cfg.EventHistoryLimit)
	events := eventing.NewFanout(broker, chathub.NewEventLogSink(logger, cfg.LogFormat))

	hub, err := chathub.New(chathub.Dependencies{
		Store:     store,
		Model:     model,
		Generator: generator,
		Events:    events,
		IDs:       adaptersinmem.NewUUIDGenerator(),
		MaxRounds: cfg.MaxTurnRounds,
	})
	if err != nil {
		return nil, fmt.Errorf("new app hub: %w", err)
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		hub:    hub,
	}

	apiRouter := httpapi.NewRouter(store, hub, broker, httpapi.Config{
		AuthSecret: cfg.AuthSecret,
	})
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/readyz", a.handleReadyz)
	mux.Handle("/", apiRouter)
	handler := requestLoggingMiddleware(logger)(mux)
	a.server = &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}

	return a, nil
}

// buildModels selects mock or provider-backed models and bounds every model
// call with the generation ceiling.
func buildModels(cfg config.Config) (offer.ChatModel, offer.TextGenerator, error) {
	switch cfg.ModelMode {
	case config.ModelModeMock:
		return deadline.WrapChatModel(modelmock.NewModel(), cfg.ProviderTimeout),
			deadline.WrapTextGenerator(modelmock.NewGenerator(), cfg.ProviderTimeout),
			nil
	case config.ModelModeProvider:
		adapter, err := openai.New(openai.Config{
			APIKey:       cfg.ProviderAPIKey,
			ChatModel:    cfg.ProviderChatModel,
			RewriteModel: cfg.ProviderRewriteModel,
			BaseURL:      cfg.ProviderBaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return deadline.WrapChatModel(adapter, cfg.ProviderTimeout),
			deadline.WrapTextGenerator(adapter, cfg.ProviderTimeout),
			nil
	default:
		return nil, nil, fmt.Errorf("unsupported model mode %q", cfg.ModelMode)
	}
}

func (a *App) Start() error {
	a.ready.Store(true)

	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	a.ready.Store(false)
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return errors.New("shutdown: nil context")
	}
	a.ready.Store(false)

	err := a.server.Shutdown(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		a.logger.Warn("graceful shutdown timed out; forcing connection close")
		if closeErr := a.server.Close(); closeErr != nil {
			return fmt.Errorf("shutdown timeout and forced close failed: %w", errors.Join(err, closeErr))
		}
		return nil
	}
	return err
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writePlain(w, http.StatusOK, "ok")
}

func (a *App) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !a.ready.Load() || a.hub == nil {
		writePlain(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writePlain(w, http.StatusOK, "ready")
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
