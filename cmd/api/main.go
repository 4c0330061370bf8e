package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"signbridge/internal/config"
	"signbridge/internal/httpserver"
	"signbridge/internal/logging"
	"signbridge/internal/observability"
	"signbridge/internal/providers/cms"
	"signbridge/internal/providers/docusign"
	"signbridge/internal/render"
	"signbridge/internal/service"
	"signbridge/internal/store/pg"
)

func main() {
	cfg := config.LoadAPI()
	logging.Init("api", cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := pg.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		slog.Error("api db connect failed", "err", err)
		os.Exit(1)
	}
	store := pg.New(db)

	observability.Register(prometheus.DefaultRegisterer)

	httpc := &http.Client{Timeout: 30 * time.Second}
	tokens := &docusign.TokenSource{
		ClientID:             cfg.DocuSign.ClientID,
		ImpersonatedUserGUID: cfg.DocuSign.ImpersonatedUserGUID,
		PrivateKeyPEM:        cfg.DocuSign.PrivateKeyPEM,
		AuthHost:             cfg.DocuSign.AuthHost,
		APIBasePath:          cfg.DocuSign.APIBasePath,
		HTTP:                 httpc,
	}
	dsClient := &docusign.Client{BasePath: cfg.DocuSign.APIBasePath, HTTP: httpc}

	signatures := &service.SignatureService{
		Store:  store,
		Tokens: tokens,
		API:    dsClient,
		Renderer: &render.Client{
			BaseURL: cfg.PrintBaseURL,
			APIKey:  cfg.PrintAPIKey,
			Format:  cfg.PrintFormat,
			HTTP:    httpc,
		},
		TemplateID: cfg.DocuSign.TemplateID,
	}

	tariffs := &service.TariffService{
		Store: store,
		CMS: &cms.Client{
			BaseURL: cfg.CMSBaseURL,
			APIKey:  cfg.CMSAPIKey,
			HTTP:    httpc,
			Limiter: rate.NewLimiter(rate.Limit(cfg.CMSRPS), cfg.CMSBurst),
			Breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:    "cms",
				Timeout: 30 * time.Second,
			}),
		},
	}

	s := httpserver.New()
	api := &httpserver.API{Signatures: signatures, Tariffs: tariffs}
	api.Register(s.Mux)

	s.Mux.HandleFunc("/healthz", httpserver.Healthz())
	s.Mux.HandleFunc("/readyz", httpserver.Readyz(2*time.Second, func(ctx context.Context) error {
		return db.Ping(ctx)
	}))

	handler := httpserver.Logging(httpserver.Metrics(observability.APIRequests)(s.Mux))
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("api shutdown", "signal", sig.String())
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("api listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("api server failed", "err", err)
		os.Exit(1)
	}
	db.Close()
}
