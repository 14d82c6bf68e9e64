package airquality

import (
	"context"
	"log/slog"
	"time"

	"github.com/svemuri1602/air-quality-dashboard/internal/mqtt"
	"github.com/svemuri1602/air-quality-dashboard/internal/telemetry"
)

// ingestTimeout bounds the repository write for one message.
const ingestTimeout = 5 * time.Second

// Ingester stores one live reading.
type Ingester interface {
	Ingest(ctx context.Context, r telemetry.Reading) error
}

// RegisterMQTTHandler appends every reading received on the subscriber to
// the dataset it names.
func RegisterMQTTHandler(subscriber mqtt.MQTTSubscriber, ingester Ingester, logger *slog.Logger) {
	subscriber.SetMessageHandler(func(reading telemetry.Reading) error {
		logger.Debug("processing reading",
			"dataset", reading.Dataset,
			"timestamp", reading.Timestamp,
		)

		ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
		defer cancel()
		if err := ingester.Ingest(ctx, reading); err != nil {
			logger.Error("failed to ingest reading",
				"dataset", reading.Dataset,
				"error", err,
			)
			return err
		}

		logger.Debug("successfully stored reading",
			"dataset", reading.Dataset,
		)
		return nil
	})
}
