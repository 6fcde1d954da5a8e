package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"microblog/internal/langdetect"
	"microblog/internal/search"
	"microblog/internal/translate"
)

const usageDoc = `Microblog

Usage:
  microblog [serve]
  microblog db upgrade
  microblog db downgrade
  microblog search reindex
  microblog -h
Options:
  -h            Show this screen.

serve applies pending migrations before it starts listening.`

type app struct {
	cfg        Config
	log        *zap.Logger
	store      *store
	sessions   *sessions.CookieStore
	locales    *localizer
	translator translate.Translator
	detect     func(text string) (string, error)
}

func newApp(cfg Config, logger *zap.Logger, st *store, translator translate.Translator) *app {
	return &app{
		cfg:        cfg,
		log:        logger,
		store:      st,
		sessions:   newSessionStore(cfg.SecretKey),
		locales:    newLocalizer(cfg.Languages),
		translator: translator,
		detect:     langdetect.Detect,
	}
}

func (a *app) setupRouter() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", a.handle(a.loginRequired(a.index))).Methods("GET", "POST")
	r.HandleFunc("/index", a.handle(a.loginRequired(a.index))).Methods("GET", "POST")
	r.HandleFunc("/user/{username}", a.handle(a.loginRequired(a.user))).Methods("GET")
	r.HandleFunc("/edit_profile", a.handle(a.loginRequired(a.editProfile))).Methods("GET", "POST")
	r.HandleFunc("/follow/{username}", a.handle(a.loginRequired(a.follow))).Methods("POST")
	r.HandleFunc("/unfollow/{username}", a.handle(a.loginRequired(a.unfollow))).Methods("POST")
	r.HandleFunc("/explore", a.handle(a.loginRequired(a.explore))).Methods("GET")
	r.HandleFunc("/search", a.handle(a.loginRequired(a.search))).Methods("GET")
	r.HandleFunc("/translate", a.handle(a.loginRequired(a.translateText))).Methods("POST")

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", a.handle(a.login)).Methods("GET", "POST")
	auth.HandleFunc("/register", a.handle(a.register)).Methods("GET", "POST")
	auth.HandleFunc("/logout", a.handle(a.logout)).Methods("GET")

	r.NotFoundHandler = a.handle(func(w http.ResponseWriter, r *http.Request) error {
		return notFound(fmt.Errorf("no route for %s", r.URL.Path))
	})

	return a.logRequests(a.recoverPanics(a.beforeRequest(r)))
}

func main() {
	cfg, dotenv := loadConfig()
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Can't set up logging: %s\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	if !dotenv {
		logger.Debug("no .env file found, using the process environment")
	}

	if err := run(cfg, logger, os.Args[1:]); err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}

func run(cfg Config, logger *zap.Logger, args []string) error {
	cmd := "serve"
	if len(args) > 0 {
		cmd = strings.Join(args, " ")
	}

	switch cmd {
	case "-h", "--help", "help":
		fmt.Println(usageDoc)
		return nil
	case "serve":
		return serve(cfg, logger)
	case "db upgrade":
		return withDB(cfg, logger, func(db *gorm.DB) error {
			n, err := upgrade(db, logger)
			if err != nil {
				return err
			}
			fmt.Printf("%d migration(s) applied\n", n)
			return nil
		})
	case "db downgrade":
		return withDB(cfg, logger, func(db *gorm.DB) error {
			version, err := downgrade(db, logger)
			if errors.Is(err, errNothingToDowngrade) {
				fmt.Println("Nothing to downgrade")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("Reverted %s\n", version)
			return nil
		})
	case "search reindex":
		return withDB(cfg, logger, func(db *gorm.DB) error {
			if cfg.RedisURL == "" {
				return errors.New("REDIS_URL is not set")
			}
			ctx := context.Background()
			index, err := search.Open(ctx, cfg.RedisURL, "post")
			if err != nil {
				return err
			}
			defer index.Close()
			n, err := newStore(db, index).reindex(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%d post(s) indexed\n", n)
			return nil
		})
	default:
		fmt.Fprintln(os.Stderr, usageDoc)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func withDB(cfg Config, logger *zap.Logger, fn func(db *gorm.DB) error) error {
	db, err := openDB(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()
	return fn(db)
}

// openIndex returns the Redis index when REDIS_URL is set. Without it
// search answers with no results.
func openIndex(ctx context.Context, cfg Config, logger *zap.Logger) (search.Index, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set, full-text search is disabled")
		return search.Disabled{}, func() {}, nil
	}
	index, err := search.Open(ctx, cfg.RedisURL, "post")
	if err != nil {
		return nil, nil, err
	}
	return index, func() { index.Close() }, nil
}

func serve(cfg Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	if _, err := upgrade(db, logger); err != nil {
		return err
	}

	index, closeIndex, err := openIndex(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeIndex()

	st := newStore(db, index)
	defer st.close()

	if cfg.MSTranslatorKey == "" {
		logger.Warn("MS_TRANSLATOR_KEY not set, translation requests will fail")
	}
	translator := translate.NewMicrosoft(cfg.MSTranslatorKey, cfg.MSTranslatorRegion, cfg.MSTranslatorEndpoint)

	a := newApp(cfg, logger, st, translator)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
