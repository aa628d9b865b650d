package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"FraudShield/internal/api"
	"FraudShield/internal/config"
	"FraudShield/internal/dom"
	"FraudShield/internal/heuristic"
	"FraudShield/internal/infrastructure/adapters"
	"FraudShield/internal/infrastructure/llm"
	"FraudShield/internal/infrastructure/scheduler"
	"FraudShield/internal/infrastructure/storage"
	"FraudShield/internal/infrastructure/telegram"
	"FraudShield/internal/ledger"
	"FraudShield/internal/logging"
	"FraudShield/internal/platform"
	"FraudShield/internal/ports"
	"FraudShield/internal/presentation"
	"FraudShield/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

// Store is what the application keeps between runs: settings and the report log.
type Store interface {
	ports.SettingsStore
	ports.ReportLog
}

// OpenStore opens the SQLite store at cfg.Path, or an in-memory one when the
// path is empty. The returned func releases it.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (Store, func() error, error) {
	if cfg.Path == "" {
		return storage.NewMemoryStore(), func() error { return nil }, nil
	}
	store, err := storage.OpenSQLite(ctx, cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

// Application wires configs to the protection pipeline for one host document.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	doc    *dom.Document
	store  Store
	close  func() error
	alerts *presentation.Manager
	coord  *usecase.Coordinator
}

// New builds a runnable application over doc.
func New(ctx context.Context, cfg config.Config, doc *dom.Document, baseLogger *slog.Logger) (*Application, error) {
	if doc == nil {
		return nil, fmt.Errorf("host document is required")
	}
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	store, closeStore, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := seedAPIKey(ctx, store, cfg.Classifier.APIKey); err != nil {
		_ = closeStore()
		return nil, err
	}

	remote := llm.NewClient(cfg.Classifier, store, nil)
	classifier := usecase.NewClassifier(usecase.ClassifierDeps{
		Remote:          remote,
		Heuristics:      heuristic.New(),
		Logger:          baseLogger,
		MinContentChars: cfg.Classifier.MinContentChars,
		DemoMode:        cfg.Classifier.DemoMode,
	})

	sinks := []ports.ReportSink{store}
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		sinks = append(sinks, telegram.NewNotifier(tg.BotToken, tg.ChatID))
	}
	alerts := presentation.NewManager(doc, storage.NewMultiSink(sinks...), baseLogger)

	coord, err := usecase.NewCoordinator(usecase.CoordinatorDeps{
		Document:   doc,
		Registry:   buildRegistry(doc, cfg.Platforms, baseLogger),
		Ledger:     ledger.New(),
		Classifier: classifier,
		Alerts:     alerts,
		Settings:   store,
		Logger:     baseLogger,
	})
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("build coordinator: %w", err)
	}

	return &Application{
		cfg:    cfg,
		logger: baseLogger.With("component", "app"),
		doc:    doc,
		store:  store,
		close:  closeStore,
		alerts: alerts,
		coord:  coord,
	}, nil
}

// Coordinator exposes the running coordinator.
func (a *Application) Coordinator() *usecase.Coordinator {
	return a.coord
}

// Scan runs one pass over the document: start, wait for the settle delay and
// every classification, then render the annotated page.
func (a *Application) Scan(ctx context.Context) (string, error) {
	if err := a.coord.Start(ctx); err != nil {
		return "", fmt.Errorf("start coordinator: %w", err)
	}
	a.coord.Wait()
	a.coord.Stop()
	a.alerts.WaitReports()

	st := a.coord.Status(ctx)
	a.logger.Info("scan finished", "platform", st.ActivePlatform, "scanned", st.ScannedUnits, "alerts", st.ActiveAlerts)

	out, err := a.doc.Render()
	if err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return out, nil
}

// Serve starts the coordinator and the control API on addr and blocks until
// ctx is cancelled or the listener fails.
func (a *Application) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		addr = a.cfg.API.Addr
	}
	server, err := api.New(api.Deps{
		Coordinator: a.coord,
		Document:    a.doc,
		Reports:     a.store,
		Logger:      a.logger,
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	httpServer := &http.Server{
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := a.coord.Start(ctx); err != nil {
		_ = ln.Close()
		return fmt.Errorf("start coordinator: %w", err)
	}
	monitor := usecase.NewStatusMonitor(scheduler.NewIntervalScheduler(a.cfg.API.StatusInterval), a.coord, a.logger)
	monitor.Sample(ctx)
	if err := monitor.Start(ctx); err != nil {
		a.logger.Warn("status monitor not started", "err", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("control api listening", "addr", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve api: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = monitor.Stop(shutdownCtx)
		a.coord.Stop()
		a.alerts.WaitReports()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	a.logger.Info("session stopped")
	return err
}

// Close releases the store.
func (a *Application) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}

func buildRegistry(doc *dom.Document, cfg config.PlatformsConfig, logger *slog.Logger) *platform.Registry {
	reg := platform.NewRegistry()
	if !cfg.Inbox.Disabled {
		reg.Register(adapters.NewInbox(doc, cfg.Inbox, logger))
	}
	if !cfg.Chat.Disabled {
		reg.Register(adapters.NewChat(doc, cfg.Chat, logger))
	}
	// generic is the catch-all and stays registered
	reg.Register(adapters.NewGeneric(doc, cfg.Generic, logger))
	return reg
}

func seedAPIKey(ctx context.Context, store ports.SettingsStore, key string) error {
	if key == "" {
		return nil
	}
	current, err := store.ClassifierAPIKey(ctx)
	if err != nil {
		return fmt.Errorf("read api key: %w", err)
	}
	if current != "" {
		return nil
	}
	if err := store.SetClassifierAPIKey(ctx, key); err != nil {
		return fmt.Errorf("seed api key: %w", err)
	}
	return nil
}
