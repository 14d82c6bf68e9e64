package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/svemuri1602/air-quality-dashboard/internal/config"
	db "github.com/svemuri1602/air-quality-dashboard/internal/db"
	"github.com/svemuri1602/air-quality-dashboard/internal/migrate"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/analysis"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/repository"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/service"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/source"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
)

// Sources lists the dashboard datasets in tab order.
func Sources(cfg config.Config) []service.Source {
	return []service.Source{
		{Name: "indoor", Title: "Indoor Air Quality", URL: cfg.IndoorURL},
		{Name: "outdoor", Title: "Outdoor Air Quality", URL: cfg.OutdoorURL},
	}
}

// openDB opens the database, applies pending migrations and checks the
// connection. The caller closes the returned handle with db.Close.
func openDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	dbConn, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := migrate.Run(ctx, dbConn); err != nil {
		closeDB(dbConn)
		return nil, err
	}

	var ok int
	if err := dbConn.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
		closeDB(dbConn)
		return nil, err
	}
	if ok != 1 {
		closeDB(dbConn)
		return nil, errors.New("database connection failed")
	}
	slog.Info("database connection successful")
	return dbConn, nil
}

func closeDB(dbConn *sql.DB) {
	if err := db.Close(dbConn); err != nil {
		slog.Error("db close", "error", err)
	}
}

func newService(cfg config.Config, dbConn *sql.DB) *service.Service {
	fetcher := source.NewFetcher(cfg.CacheDir, cfg.CacheTTL, cfg.FetchTimeout)
	return service.NewService(repository.NewRepository(dbConn), fetcher, Sources(cfg), cfg.CacheTTL)
}

// Migrate applies pending migrations and exits.
func Migrate(ctx context.Context, cfg config.Config) error {
	dbConn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer closeDB(dbConn)

	pending, err := migrate.Pending(ctx, dbConn)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		slog.Info("schema up to date")
		return nil
	}
	return migrate.Run(ctx, dbConn)
}

// Fetch loads every dataset, downloading and storing those that are missing
// or stale, and returns what the database now holds.
func Fetch(ctx context.Context, cfg config.Config) ([]types.DatasetInfo, error) {
	dbConn, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeDB(dbConn)

	svc := newService(cfg, dbConn)
	if err := svc.Load(ctx); err != nil {
		return nil, err
	}
	return repository.NewRepository(dbConn).ListDatasets(ctx)
}

// DescribeOptions overrides the default filter of a dataset. Empty dates and
// negative hours keep the defaults.
type DescribeOptions struct {
	Dataset     string
	From        string
	To          string
	HourFrom    int
	HourTo      int
	Parameter   string
	CookingOnly bool
}

// Describe loads the datasets and runs one query against opts.Dataset.
func Describe(ctx context.Context, cfg config.Config, opts DescribeOptions) (*types.Result, error) {
	dbConn, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeDB(dbConn)

	svc := newService(cfg, dbConn)
	if err := svc.Load(ctx); err != nil {
		return nil, err
	}
	ds, err := svc.Dataset(opts.Dataset)
	if err != nil {
		return nil, err
	}
	f, err := opts.filter(ds)
	if err != nil {
		return nil, err
	}
	return svc.Query(ds.Name, f)
}

func (o DescribeOptions) filter(ds *types.Dataset) (types.Filter, error) {
	f := analysis.DefaultFilter(ds)
	var err error
	if o.From != "" {
		if f.From, err = parseDate(o.From); err != nil {
			return types.Filter{}, fmt.Errorf("%w: --from: %v", types.ErrInvalidFilter, err)
		}
	}
	if o.To != "" {
		if f.To, err = parseDate(o.To); err != nil {
			return types.Filter{}, fmt.Errorf("%w: --to: %v", types.ErrInvalidFilter, err)
		}
	}
	if o.HourFrom >= 0 {
		f.HourFrom = o.HourFrom
	}
	if o.HourTo >= 0 {
		f.HourTo = o.HourTo
	}
	if o.Parameter != "" {
		f.Parameter = o.Parameter
	}
	f.CookingOnly = o.CookingOnly
	return f, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}
