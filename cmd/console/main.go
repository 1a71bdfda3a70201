package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sw360-console/cmd/console/auth"
	"sw360-console/cmd/console/handlers"
	"sw360-console/cmd/console/router"
	"sw360-console/cmd/console/services"
	"sw360-console/cmd/console/workspace"
	"sw360-console/config"
	"sw360-console/db"
	"sw360-console/httpclient"
	"sw360-console/logger"
	"sw360-console/notify"
	"sw360-console/repositories"
	"sw360-console/session"
	"sw360-console/sw360"
)

// @title           SW360 Console API
// @version         1.0
// @description     JSON rendition of the SW360 console list screens
// @BasePath        /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	config.InitApp()
	cfg := config.GetConfig()
	logger.Init(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open session store:", err)
	}
	defer closeStore()

	tokens, generated, err := auth.NewJWTManagerFromConfig(cfg.Session)
	if err != nil {
		log.Fatal(err)
	}
	if generated {
		logger.Log.Warn("session secret not configured, using a random one; sessions end on restart")
	}

	httpCfg := httpclient.Config{Timeout: cfg.Backend.Timeout}
	credentialCfg := httpclient.Config{Timeout: cfg.Backend.Timeout, Redact: true}
	client := sw360.NewClient(
		httpclient.NewBaseClient(cfg.Backend.BaseURL, httpCfg),
		httpclient.NewBaseClient(cfg.Backend.AuthURL, credentialCfg),
	)

	sessions := session.NewManager(store, cfg.Session.TTL)
	ws := workspace.New(sessions.Events())
	defer ws.Close()
	flash := notify.NewFlash(5, cfg.Listing.FlashTTL)
	unsubscribe := sessions.Events().Subscribe(func(ev session.Event) {
		flash.Forget(string(ev.SessionID))
		logger.InfoWithFields("session ended", logger.Fields{
			"session_id": string(ev.SessionID),
			"reason":     string(ev.Reason),
		})
	})
	defer unsubscribe()

	stopSweeper := startSweeper(ctx, cfg.Session, ws, flash, sessions)
	defer stopSweeper()

	if cfg.Events.Brokers != "" {
		stopRelay, err := startSessionRelay(ctx, cfg.Events, sessions.Events(), func(ev session.Event) {
			ws.CloseSession(ev.SessionID)
			flash.Forget(string(ev.SessionID))
		})
		if err != nil {
			log.Fatal("failed to start session relay:", err)
		}
		defer stopRelay()
	}

	env := &handlers.Env{
		Client:     client,
		Sessions:   sessions,
		Auth:       services.NewAuthService(client, sessions, tokens),
		Components: services.NewComponentService(client),
		Workspace:  ws,
		Flash:      flash,
		Cookie:     auth.Cookie{Name: cfg.Session.CookieName, Secure: cfg.Session.Secure},
		Listing:    cfg.Listing,
		Backend:    cfg.Backend,
		Resources:  handlers.Catalog(),
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router.New(env, tokens, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoWithFields("console listening", logger.Fields{
			"addr":    cfg.Server.Addr,
			"backend": cfg.Backend.BaseURL,
			"store":   cfg.Session.Store,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithFields("shutdown failed", logger.Fields{"error": err.Error()})
	}
}

// openStore picks the session store named in the config.
func openStore(ctx context.Context, cfg config.AppConfig) (session.Store, func(), error) {
	switch cfg.Session.Store {
	case "mongo":
		if err := db.Init(ctx); err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = db.Disconnect(ctx)
		}
		return repositories.NewSessionRepository(db.Database()), closeFn, nil
	case "memory", "":
		return session.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, errors.New("unknown session store " + cfg.Session.Store)
	}
}
