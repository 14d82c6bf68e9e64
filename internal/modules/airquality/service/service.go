// Package service keeps the parsed datasets in memory and answers
// dashboard queries against them.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/svemuri1602/air-quality-dashboard/internal/metrics"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/analysis"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/dataset"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/repository"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
	"github.com/svemuri1602/air-quality-dashboard/internal/telemetry"
)

// Source names one configured dataset and where to download it from.
type Source struct {
	Name  string
	Title string
	URL   string
}

type Fetcher interface {
	Fetch(ctx context.Context, name, url string) (string, error)
	Invalidate(name string) error
}

type Service struct {
	repository repository.DatasetRepository
	fetcher    Fetcher
	sources    []Source
	ttl        time.Duration
	now        func() time.Time

	// writeMu serializes everything that changes stored rows: saving a
	// fetched dataset and appending live readings.
	writeMu sync.Mutex

	mu       sync.RWMutex
	datasets map[string]*types.Dataset
}

// NewService serves sources in the given order. A stored copy older than
// ttl is refetched on Load; ttl 0 reuses it forever.
func NewService(repo repository.DatasetRepository, fetcher Fetcher, sources []Source, ttl time.Duration) *Service {
	return &Service{
		repository: repo,
		fetcher:    fetcher,
		sources:    sources,
		ttl:        ttl,
		now:        time.Now,
		datasets:   make(map[string]*types.Dataset),
	}
}

// Load brings every source into memory concurrently.
func (s *Service) Load(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range s.sources {
		g.Go(func() error {
			ds, err := s.loadOne(ctx, src)
			if err != nil {
				return fmt.Errorf("load %s: %w", src.Name, err)
			}
			slog.Info("dataset ready", "dataset", ds.Name, "rows", len(ds.Rows),
				"dropped", ds.DroppedRows, "columns", len(ds.NumericColumns))
			return nil
		})
	}
	return g.Wait()
}

// loadOne settles on the stored copy or a fresh download of src and puts it
// in memory.
func (s *Service) loadOne(ctx context.Context, src Source) (*types.Dataset, error) {
	stored, err := s.repository.LoadDataset(ctx, src.Name)
	if err != nil && !errors.Is(err, types.ErrDatasetNotFound) {
		slog.Warn("stored dataset unreadable", "dataset", src.Name, "error", err)
		stored = nil
	}
	if stored != nil && s.fresh(stored) {
		slog.Debug("using stored dataset", "dataset", src.Name, "loaded_at", stored.LoadedAt)
		s.put(stored)
		return stored, nil
	}

	ds, err := s.fetchAndStore(ctx, src)
	if err != nil {
		if stored != nil {
			slog.Warn("fetch failed, serving stored copy", "dataset", src.Name, "error", err,
				"loaded_at", stored.LoadedAt)
			s.put(stored)
			return stored, nil
		}
		return nil, err
	}
	return ds, nil
}

func (s *Service) fresh(ds *types.Dataset) bool {
	if s.ttl <= 0 {
		return true
	}
	return s.now().Sub(ds.LoadedAt) < s.ttl
}

func (s *Service) fetchAndStore(ctx context.Context, src Source) (*types.Dataset, error) {
	path, err := s.fetcher.Fetch(ctx, src.Name, src.URL)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("close dataset file", "path", path, "error", err)
		}
	}()

	ds, err := dataset.Parse(src.Name, f, dataset.ParseOptions{Title: src.Title, Source: src.URL, Now: s.now})
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.Name, err)
	}
	if ds.DroppedRows > 0 {
		slog.Warn("rows with unparseable timestamps dropped", "dataset", src.Name, "dropped", ds.DroppedRows)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	cols, live, err := s.repository.LiveRows(ctx, src.Name)
	if err != nil {
		return nil, fmt.Errorf("live rows of %s: %w", src.Name, err)
	}
	if kept := mergeLive(ds, cols, live); kept > 0 {
		slog.Info("live readings carried over", "dataset", src.Name, "rows", kept)
	}
	if err := s.repository.SaveDataset(ctx, ds); err != nil {
		return nil, fmt.Errorf("store %s: %w", src.Name, err)
	}
	s.put(ds)
	return ds, nil
}

// mergeLive appends live rows, whose values line up with cols, to ds. Values
// are matched by column name; those of columns ds no longer has are dropped,
// and rows left without any value are skipped.
func mergeLive(ds *types.Dataset, cols []string, live []types.Row) int {
	kept := 0
	for _, lr := range live {
		row := types.Row{Time: lr.Time, Values: missingValues(len(ds.NumericColumns)), Live: true}
		hasValue := false
		for i, name := range cols {
			j := ds.ColumnIndex(name)
			if j < 0 || i >= len(lr.Values) || math.IsNaN(lr.Values[i]) {
				continue
			}
			row.Values[j] = lr.Values[i]
			hasValue = true
		}
		if !hasValue {
			continue
		}
		row.Cooking = lr.Cooking && ds.HasCooking
		ds.Rows = append(ds.Rows, row)
		kept++
	}
	return kept
}

// Refresh discards the cached download of name and loads it again.
func (s *Service) Refresh(ctx context.Context, name string) (types.DatasetInfo, error) {
	src, ok := s.source(name)
	if !ok {
		return types.DatasetInfo{}, fmt.Errorf("%w: %q", types.ErrDatasetNotFound, name)
	}
	if err := s.fetcher.Invalidate(name); err != nil {
		return types.DatasetInfo{}, fmt.Errorf("invalidate %s: %w", name, err)
	}
	ds, err := s.fetchAndStore(ctx, src)
	if err != nil {
		return types.DatasetInfo{}, err
	}
	slog.Info("dataset refreshed", "dataset", name, "rows", len(ds.Rows))
	return ds.Info(), nil
}

// Dataset returns the in-memory snapshot of name. Callers must not modify it.
func (s *Service) Dataset(name string) (*types.Dataset, error) {
	s.mu.RLock()
	ds, ok := s.datasets[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrDatasetNotFound, name)
	}
	return ds, nil
}

// Datasets lists the loaded datasets in configuration order.
func (s *Service) Datasets() []types.DatasetInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.DatasetInfo, 0, len(s.datasets))
	for _, src := range s.sources {
		if ds, ok := s.datasets[src.Name]; ok {
			out = append(out, ds.Info())
		}
	}
	return out
}

// Ready reports whether every configured dataset is loaded.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sources) > 0 && len(s.datasets) == len(s.sources)
}

// Query filters name with f and computes the statistics for the matching rows.
func (s *Service) Query(name string, f types.Filter) (*types.Result, error) {
	ds, err := s.Dataset(name)
	if err != nil {
		metrics.Queries.WithLabelValues(name, "error").Inc()
		return nil, err
	}
	if err := analysis.Validate(ds, f); err != nil {
		metrics.Queries.WithLabelValues(name, "error").Inc()
		return nil, err
	}

	rows := analysis.Apply(ds, f)
	res := &types.Result{
		Dataset:   ds,
		Info:      ds.Info(),
		Filter:    f,
		Rows:      rows,
		Count:     len(rows),
		Empty:     len(rows) == 0,
		Summaries: []types.Summary{},
	}
	if res.Empty {
		metrics.Queries.WithLabelValues(name, "empty").Inc()
		return res, nil
	}
	res.Summaries = analysis.DescribeAll(ds, rows)
	m := analysis.Correlation(ds, rows)
	res.Correlation = &m
	metrics.Queries.WithLabelValues(name, "ok").Inc()
	return res, nil
}

// Ingest appends a live reading to the dataset it names, both in memory and
// in the repository. Every value key must be a numeric column. Live readings
// survive a refresh of the dataset.
func (s *Service) Ingest(ctx context.Context, r telemetry.Reading) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ds, err := s.Dataset(r.Dataset)
	if err != nil {
		metrics.IngestedReadings.WithLabelValues(r.Dataset, "rejected").Inc()
		return err
	}
	row, err := toRow(ds, r)
	if err != nil {
		metrics.IngestedReadings.WithLabelValues(r.Dataset, "rejected").Inc()
		return err
	}
	if err := s.repository.AppendRow(ctx, ds.Name, row); err != nil {
		metrics.IngestedReadings.WithLabelValues(r.Dataset, "error").Inc()
		return fmt.Errorf("store reading: %w", err)
	}

	s.mu.Lock()
	cur := s.datasets[ds.Name]
	if cur != ds {
		// Replaced meanwhile; the row must follow the columns of cur.
		if row, err = toRow(cur, r); err != nil {
			s.mu.Unlock()
			metrics.IngestedReadings.WithLabelValues(r.Dataset, "rejected").Inc()
			return err
		}
	}
	// Readers keep their snapshot, so the row goes onto a copy.
	next := *cur
	next.Rows = append(cur.Rows[:len(cur.Rows):len(cur.Rows)], row)
	s.datasets[ds.Name] = &next
	s.mu.Unlock()

	metrics.IngestedReadings.WithLabelValues(r.Dataset, "ok").Inc()
	return nil
}

func toRow(ds *types.Dataset, r telemetry.Reading) (types.Row, error) {
	row := types.Row{Time: r.Timestamp, Values: missingValues(len(ds.NumericColumns)), Live: true}
	for k, v := range r.Values {
		idx := ds.ColumnIndex(k)
		if idx < 0 {
			return types.Row{}, fmt.Errorf("%w: %q in dataset %q", types.ErrUnknownParameter, k, ds.Name)
		}
		row.Values[idx] = v
	}

	cookingIdx := cookingIndex(ds)
	switch {
	case r.Cooking != nil:
		row.Cooking = *r.Cooking && ds.HasCooking
		if cookingIdx >= 0 {
			row.Values[cookingIdx] = 0
			if *r.Cooking {
				row.Values[cookingIdx] = 1
			}
		}
	case cookingIdx >= 0:
		row.Cooking = row.Values[cookingIdx] == 1
	}
	return row, nil
}

// cookingIndex finds the cooking column the way the parser does, ignoring case.
func cookingIndex(ds *types.Dataset) int {
	for i, c := range ds.NumericColumns {
		if strings.EqualFold(c, dataset.CookingColumn) {
			return i
		}
	}
	return -1
}

func missingValues(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = math.NaN()
	}
	return values
}

func (s *Service) put(ds *types.Dataset) {
	s.mu.Lock()
	s.datasets[ds.Name] = ds
	s.mu.Unlock()
}

func (s *Service) source(name string) (Source, bool) {
	for _, src := range s.sources {
		if src.Name == name {
			return src, true
		}
	}
	return Source{}, false
}
