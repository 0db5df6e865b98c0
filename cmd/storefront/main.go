package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"beatsphere/internal/config"
	"beatsphere/internal/db"
	"beatsphere/internal/gateway"
	"beatsphere/internal/gateway/account"
	"beatsphere/internal/gateway/content"
	"beatsphere/internal/gateway/recommendation"
	"beatsphere/internal/httpserver"
	"beatsphere/internal/logger"
	cartsvc "beatsphere/internal/service/cart"
	catalogsvc "beatsphere/internal/service/catalog"
	checkoutsvc "beatsphere/internal/service/checkout"
	discoverysvc "beatsphere/internal/service/discovery"
	likessvc "beatsphere/internal/service/likes"
	radiosvc "beatsphere/internal/service/radio"
	sessionsvc "beatsphere/internal/service/session"
	"beatsphere/internal/storage"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log = log.Named("storefront")

	ctx := context.Background()
	store, closeStore, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal("open storage", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}
	defer closeStore()

	// One client and one jar for every upstream, so the session cookie set by
	// the account service travels with content and recommendation calls too.
	httpClient := gateway.NewHTTPClient(cfg.UpstreamTimeout, gateway.NewCookieJar())
	accounts := account.New(gateway.New("account", cfg.AccountServiceURL, httpClient))
	contents := content.New(gateway.New("content", cfg.ContentServiceURL, httpClient))
	recs := recommendation.New(gateway.New("recommendation", cfg.RecommendationServiceURL, httpClient))

	cartStore := cartsvc.New(log.Named("cart"))
	sessions := sessionsvc.New(accounts, store, cfg.SessionRestore, log.Named("session"))
	defer sessions.Close()

	restoreCtx, cancelRestore := context.WithTimeout(ctx, cfg.UpstreamTimeout)
	sessions.Restore(restoreCtx)
	cancelRestore()

	likes := likessvc.New(accounts, sessions, log.Named("likes"))
	playlist := radiosvc.New(contents, likes, log.Named("radio"))
	go func() {
		loadCtx, cancel := context.WithTimeout(ctx, cfg.UpstreamTimeout)
		defer cancel()
		if err := playlist.Load(loadCtx); err != nil {
			log.Warn("radio playlist not loaded", zap.Error(err))
		}
	}()

	srv, err := httpserver.New(cfg.HTTPAddr, log.Named("http"), httpserver.Deps{
		Cart:      cartStore,
		Session:   sessions,
		Accounts:  accounts,
		Checkout:  checkoutsvc.New(cartStore, sessions, accounts, log.Named("checkout")),
		Catalog:   catalogsvc.New(contents, cfg.CatalogPageSize, log.Named("catalog")),
		Discovery: discoverysvc.New(recs, contents, sessions, log.Named("discovery")),
		Likes:     likes,
		Radio:     playlist,
		Storage:   store,
	}, httpserver.Options{
		Env:            cfg.Env,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	if err != nil {
		log.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	} else {
		log.Info("server stopped")
	}
}

// openStorage returns the configured persistent store and a func releasing
// its connections.
func openStorage(ctx context.Context, cfg config.Config) (storage.Store, func(), error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.StorageDriver {
	case config.StorageMemory, "":
		return storage.NewMemory(), func() {}, nil
	case config.StoragePostgres:
		pool, err := db.Connect(connectCtx, cfg.DBConnString)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewPostgres(pool), pool.Close, nil
	case config.StorageRedis:
		client, err := storage.NewRedisClient(connectCtx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewRedis(client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
