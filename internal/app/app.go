package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"grocery-planner/internal/auth"
	"grocery-planner/internal/config"
	"grocery-planner/internal/database"
	"grocery-planner/internal/grocery"
	"grocery-planner/internal/logger"
	"grocery-planner/internal/metrics"
	"grocery-planner/internal/notify"
	"grocery-planner/internal/session"
	"grocery-planner/internal/storage"
	"grocery-planner/internal/web"
)

// App holds the application's dependencies.
type App struct {
	cfg          *config.Config
	log          logger.Logger
	db           *database.DB
	store        *storage.UserStore
	metricsStore *metrics.Store
	service      *grocery.Service
	sessions     *session.Manager
}

// New opens the database, loads the user store and wires the grocery service.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	log.Info("Database ready", zap.String("path", cfg.DatabasePath), zap.Uint("schema_version", db.SchemaVersion))

	backend, err := newBackend(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	store := storage.NewUserStore(backend, log)
	warnings, err := store.Load(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	for _, w := range warnings {
		log.Warn("User store loaded with warning", zap.String("warning", w))
	}

	metricsStore := metrics.NewStore(db.SQL)
	service := grocery.NewService(store,
		grocery.WithRecorder(metricsStore),
		grocery.WithLogger(log),
	)

	return &App{
		cfg:          cfg,
		log:          log,
		db:           db,
		store:        store,
		metricsStore: metricsStore,
		service:      service,
	}, nil
}

func newBackend(cfg *config.Config, db *database.DB) (storage.Backend, error) {
	if cfg.StoreBackend == config.BackendSQLite {
		return storage.NewSQLiteBackend(db.SQL), nil
	}
	backend, err := storage.NewFileBackend(cfg.DataFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}
	return backend, nil
}

// Close releases the database connection.
func (a *App) Close() error {
	return a.db.Close()
}

// Service exposes the grocery service.
func (a *App) Service() *grocery.Service {
	return a.service
}

// NewHTTPServer builds the HTTP server with auth, sessions and sharing wired in.
func (a *App) NewHTTPServer(ctx context.Context) (*http.Server, error) {
	client := &http.Client{Timeout: a.cfg.HTTPTimeout}

	fetcher, err := a.identityFetcher(ctx, client)
	if err != nil {
		return nil, err
	}
	gateway := auth.NewGateway(a.cfg, fetcher, client)

	secret := []byte(a.cfg.SessionSecret)
	if len(secret) == 0 {
		a.log.Warn("SESSION_SECRET not set, sessions will not survive a restart")
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
	}
	a.sessions = session.NewManager(secret, a.cfg.SessionTTL)

	srv := web.NewServer(web.Deps{
		Service:        a.service,
		Gateway:        gateway,
		Sessions:       a.sessions,
		Sender:         a.sender(),
		Logger:         a.log,
		DataDir:        a.dataDir(),
		Recommendation: a.cfg.RecommendationCount,
		SecureCookies:  a.cfg.Env == "production",
	})

	return &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func (a *App) identityFetcher(ctx context.Context, client *http.Client) (auth.IdentityFetcher, error) {
	if a.cfg.IdentitySource == config.IdentityIDToken {
		verifier, err := auth.NewIDTokenVerifier(ctx, a.cfg.GoogleClientID, client)
		if err != nil {
			return nil, err
		}
		return verifier, nil
	}
	return auth.NewUserInfoFetcher(a.cfg.UserInfoURL, client), nil
}

func (a *App) sender() notify.Sender {
	if !a.cfg.SharingEnabled() {
		return notify.Disabled{}
	}
	sender, err := notify.NewTelegramSender(a.cfg.TelegramBotToken, a.cfg.TelegramChatID, "")
	if err != nil {
		a.log.Error("Telegram sharing disabled", err)
		return notify.Disabled{}
	}
	return sender
}

func (a *App) dataDir() string {
	if a.cfg.StoreBackend == config.BackendSQLite {
		return filepath.Dir(a.cfg.DatabasePath)
	}
	return filepath.Dir(a.cfg.DataFile)
}

// RunSessionJanitor drops expired sessions every interval until ctx is done.
// It must be started after NewHTTPServer.
func (a *App) RunSessionJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.sessions.CleanupExpired(); n > 0 {
				a.log.Info("Removed expired sessions", zap.Int("count", n))
			}
		}
	}
}
