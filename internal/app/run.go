package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/svemuri1602/air-quality-dashboard/internal/config"
	httpapi "github.com/svemuri1602/air-quality-dashboard/internal/httpapi"
	airquality "github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality"
	airqualityviews "github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/views"
	"github.com/svemuri1602/air-quality-dashboard/internal/mqtt"
)

const mqttConnectTimeout = 5 * time.Second

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.Level().String(),
		"httpAddr", cfg.HTTPAddr,
		"indoorURL", cfg.IndoorURL,
		"outdoorURL", cfg.OutdoorURL,
		"cacheDir", cfg.CacheDir,
		"cacheTTL", cfg.CacheTTL,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"mqttEnabled", cfg.MQTTEnabled,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)
	dbConn, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB(dbConn)

	if err := airqualityviews.LoadTemplates(); err != nil {
		return err
	}

	svc := newService(cfg, dbConn)
	mux := httpapi.NewMux(dbConn, svc)
	airquality.RegisterFeature(mux, svc)

	var subscriber *mqtt.Subscriber
	if cfg.MQTTEnabled {
		// Set the handler before Connect so the first CONNACK can subscribe
		// and queued messages are not lost.
		subscriber = mqtt.NewSubscriber(cfg, slog.Default())
		airquality.RegisterMQTTHandler(subscriber, svc, slog.Default())

		connectCtx, connectCancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	srv := httpapi.NewServer(cfg, mux)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		if err := svc.Load(gctx); err != nil {
			return fmt.Errorf("load datasets: %w", err)
		}
		slog.Info("datasets loaded", "count", len(svc.Datasets()), "duration_ms", time.Since(start).Milliseconds())
		return nil
	})
	g.Go(func() error {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if subscriber != nil {
			slog.Info("mqtt disconnecting")
			subscriber.Disconnect()
		}

		slog.Info("http shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}
