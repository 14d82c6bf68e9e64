package app

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/svemuri1602/air-quality-dashboard/internal/config"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/dataset"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
	"github.com/svemuri1602/air-quality-dashboard/internal/mqtt"
	"github.com/svemuri1602/air-quality-dashboard/internal/telemetry"
)

const publishConnectTimeout = 10 * time.Second

// PublishOptions replays File as live readings of Dataset, waiting Interval
// between messages.
type PublishOptions struct {
	Dataset  string
	File     string
	Interval time.Duration
}

type readingPublisher interface {
	Publish(r telemetry.Reading) error
}

// Publish parses opts.File and sends each row to the broker. It returns the
// number of readings published.
func Publish(ctx context.Context, cfg config.Config, opts PublishOptions) (int, error) {
	f, err := os.Open(opts.File)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("close file", "error", err)
		}
	}()

	ds, err := dataset.Parse(opts.Dataset, f, dataset.ParseOptions{Source: opts.File})
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", opts.File, err)
	}
	readings := Readings(ds)
	slog.Info("replaying dataset", "dataset", ds.Name, "file", opts.File,
		"readings", len(readings), "dropped", ds.DroppedRows)

	pub := mqtt.NewPublisher(cfg, slog.Default())
	connectCtx, cancel := context.WithTimeout(ctx, publishConnectTimeout)
	defer cancel()
	if err := pub.Connect(connectCtx); err != nil {
		return 0, err
	}
	defer pub.Disconnect()

	return publishAll(ctx, pub, readings, opts.Interval)
}

// Readings converts rows to readings. Missing values are left out, the
// cooking column becomes the Cooking flag, and rows without any value are
// skipped.
func Readings(ds *types.Dataset) []telemetry.Reading {
	out := make([]telemetry.Reading, 0, len(ds.Rows))
	for i, row := range ds.Rows {
		values := make(map[string]float64, len(ds.NumericColumns))
		for idx, name := range ds.NumericColumns {
			if strings.EqualFold(name, dataset.CookingColumn) {
				continue
			}
			v := row.Values[idx]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			values[name] = v
		}
		if len(values) == 0 {
			continue
		}
		seq := i
		r := telemetry.Reading{
			Dataset:   ds.Name,
			Timestamp: row.Time,
			Values:    values,
			Sequence:  &seq,
		}
		if ds.HasCooking {
			cooking := row.Cooking
			r.Cooking = &cooking
		}
		out = append(out, r)
	}
	return out
}

func publishAll(ctx context.Context, pub readingPublisher, readings []telemetry.Reading, interval time.Duration) (int, error) {
	sent := 0
	for i, r := range readings {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return sent, ctx.Err()
			case <-time.After(interval):
			}
		}
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := pub.Publish(r); err != nil {
			return sent, fmt.Errorf("reading %d: %w", i, err)
		}
		sent++
	}
	return sent, nil
}
