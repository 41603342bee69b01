package walletdev

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"golang.org/x/exp/slog"

	"github.com/alovak/cardsync/internal/devauth"
	"github.com/alovak/cardsync/internal/middleware"
	"github.com/alovak/cardsync/internal/security"
	"github.com/alovak/cardsync/store"
)

// App is the main application, it contains all the components of the
// wallet service and is responsible for starting and stopping them.
type App struct {
	srv    *http.Server
	wg     *sync.WaitGroup
	Addr   string
	logger *slog.Logger
	config *Config

	// Auth signs tokens for clients of this instance.
	Auth    *devauth.Issuer
	Service *Service

	db       *sql.DB
	closeCVC func()
}

func NewApp(logger *slog.Logger, config *Config) *App {
	logger = logger.With(slog.String("app", "walletdev"))

	if config == nil {
		config = DefaultConfig()
	}

	return &App{
		wg:     &sync.WaitGroup{},
		logger: logger,
		config: config,
	}
}

func (a *App) Start() error {
	a.logger.Info("starting app...")

	router := chi.NewRouter()
	router.Use(middleware.NewStructuredLogger(a.logger))

	repository, err := a.openRepository()
	if err != nil {
		return err
	}

	cvc, closeCVC, err := a.cvcProvider()
	if err != nil {
		return err
	}
	a.closeCVC = closeCVC

	loc := time.UTC
	if a.config.ExpiryTZ != "" {
		if l, err := time.LoadLocation(a.config.ExpiryTZ); err == nil {
			loc = l
		} else {
			a.logger.Info("invalid ExpiryTZ; using UTC", slog.String("tz", a.config.ExpiryTZ), slog.Any("err", err))
		}
	}

	auth, err := devauth.NewIssuer([]byte(a.config.TokenKey), a.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}
	a.Auth = auth
	a.Service = NewService(repository, cvc, loc, a.logger)

	api := NewAPI(a.Service, auth, a.logger)
	api.AppendRoutes(router)

	router.Get("/-/live", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	router.Get("/-/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := repository.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	l, err := net.Listen("tcp", a.config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening tcp port: %w", err)
	}

	a.Addr = l.Addr().String()

	a.srv = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.logger.Info("http server started", slog.String("addr", a.Addr))

		if err := a.srv.Serve(l); err != nil && err != http.ErrServerClosed {
			a.logger.Error("starting http server", "err", err)
		}
		a.logger.Info("http server stopped")
	}()

	return nil
}

func (a *App) openRepository() (*store.Repository, error) {
	switch a.config.Backend {
	case "", "mem":
		return store.NewRepository(), nil
	case "pg":
		if a.config.DSN == "" {
			return nil, fmt.Errorf("DB_DSN is required for pg backend")
		}
		db, err := sql.Open("postgres", a.config.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxIdleConns(5)
		db.SetMaxOpenConns(10)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		repo := store.NewPGRepository(db, []byte(a.config.PANHashKey))
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
		a.db = db
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported REPO_BACKEND=%s", a.config.Backend)
	}
}

func (a *App) cvcProvider() (security.CVCProvider, func(), error) {
	switch a.config.CVCProvider {
	case "", "hmac":
		p, err := security.NewHMACProvider([]byte(a.config.CVCKey))
		if err != nil {
			return nil, nil, fmt.Errorf("cvc provider: %w", err)
		}
		return p, func() {}, nil
	case "softhsm":
		return openHSM(a.config)
	default:
		return nil, nil, fmt.Errorf("unsupported CVC_PROVIDER=%s", a.config.CVCProvider)
	}
}

func (a *App) Shutdown() {
	a.logger.Info("shutting down app...")

	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(ctx); err != nil {
			a.logger.Error("shutting down http server", "err", err)
		}
	}

	a.wg.Wait()

	if a.closeCVC != nil {
		a.closeCVC()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("closing db", "err", err)
		}
	}

	a.logger.Info("app stopped")
}
