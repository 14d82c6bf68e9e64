package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
)

//go:embed sql/upsert-dataset.sql
var upsertDatasetSQL string

//go:embed sql/delete-samples.sql
var deleteSamplesSQL string

//go:embed sql/delete-rows.sql
var deleteRowsSQL string

//go:embed sql/insert-row.sql
var insertRowSQL string

//go:embed sql/insert-sample.sql
var insertSampleSQL string

//go:embed sql/get-dataset.sql
var getDatasetSQL string

//go:embed sql/get-rows.sql
var getRowsSQL string

//go:embed sql/get-samples.sql
var getSamplesSQL string

//go:embed sql/list-datasets.sql
var listDatasetsSQL string

//go:embed sql/list-row-times.sql
var listRowTimesSQL string

//go:embed sql/get-live-rows.sql
var getLiveRowsSQL string

//go:embed sql/get-live-samples.sql
var getLiveSamplesSQL string

//go:embed sql/next-seq.sql
var nextSeqSQL string

//go:embed sql/get-numeric-columns.sql
var getNumericColumnsSQL string

type DatasetRepository interface {
	SaveDataset(ctx context.Context, ds *types.Dataset) error
	LoadDataset(ctx context.Context, name string) (*types.Dataset, error)
	ListDatasets(ctx context.Context) ([]types.DatasetInfo, error)
	AppendRow(ctx context.Context, name string, row types.Row) error
	LiveRows(ctx context.Context, name string) ([]string, []types.Row, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) DatasetRepository {
	return &repositoryImpl{db: db}
}

// SaveDataset replaces every stored row of ds.Name in one transaction. Each
// row keeps its Live flag, so live readings the caller merged into ds survive.
func (r *repositoryImpl) SaveDataset(ctx context.Context, ds *types.Dataset) error {
	columns, err := json.Marshal(ds.Columns)
	if err != nil {
		return err
	}
	numeric, err := json.Marshal(ds.NumericColumns)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("rollback save dataset", "dataset", ds.Name, "error", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, upsertDatasetSQL,
		ds.Name, ds.Title, ds.TimeColumn, string(columns), string(numeric),
		boolToInt(ds.HasCooking), ds.DroppedRows, ds.Source, formatTime(ds.LoadedAt),
	); err != nil {
		return fmt.Errorf("upsert dataset: %w", err)
	}
	if _, err := tx.ExecContext(ctx, deleteSamplesSQL, ds.Name); err != nil {
		return fmt.Errorf("delete samples: %w", err)
	}
	if _, err := tx.ExecContext(ctx, deleteRowsSQL, ds.Name); err != nil {
		return fmt.Errorf("delete rows: %w", err)
	}

	rowStmt, err := tx.PrepareContext(ctx, insertRowSQL)
	if err != nil {
		return err
	}
	defer closeStmt(rowStmt)
	sampleStmt, err := tx.PrepareContext(ctx, insertSampleSQL)
	if err != nil {
		return err
	}
	defer closeStmt(sampleStmt)

	for seq, row := range ds.Rows {
		if err := insertRow(ctx, rowStmt, sampleStmt, ds.Name, seq, row); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.Debug("dataset stored", "dataset", ds.Name, "rows", len(ds.Rows))
	return nil
}

func (r *repositoryImpl) LoadDataset(ctx context.Context, name string) (*types.Dataset, error) {
	ds, err := scanDataset(r.db.QueryRowContext(ctx, getDatasetSQL, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", types.ErrDatasetNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load dataset %q: %w", name, err)
	}

	index, err := r.loadRows(ctx, ds, getRowsSQL)
	if err != nil {
		return nil, fmt.Errorf("load rows of %q: %w", name, err)
	}
	if err := r.loadSamples(ctx, ds, index, getSamplesSQL); err != nil {
		return nil, fmt.Errorf("load samples of %q: %w", name, err)
	}
	return ds, nil
}

// loadRows appends the stored rows to ds with every value missing and
// returns the position of each seq in ds.Rows.
func (r *repositoryImpl) loadRows(ctx context.Context, ds *types.Dataset, query string) (map[int]int, error) {
	rows, err := r.db.QueryContext(ctx, query, ds.Name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close dataset rows", "error", err)
		}
	}()

	index := make(map[int]int)
	for rows.Next() {
		var (
			seq           int
			ts            string
			cooking, live int
		)
		if err := rows.Scan(&seq, &ts, &cooking, &live); err != nil {
			return nil, err
		}
		t, err := parseTime(ts)
		if err != nil {
			return nil, err
		}
		values := make([]float64, len(ds.NumericColumns))
		for i := range values {
			values[i] = math.NaN()
		}
		index[seq] = len(ds.Rows)
		ds.Rows = append(ds.Rows, types.Row{Time: t, Values: values, Cooking: cooking != 0, Live: live != 0})
	}
	return index, rows.Err()
}

func (r *repositoryImpl) loadSamples(ctx context.Context, ds *types.Dataset, index map[int]int, query string) error {
	samples, err := r.db.QueryContext(ctx, query, ds.Name)
	if err != nil {
		return err
	}
	defer func() {
		if err := samples.Close(); err != nil {
			slog.Error("close dataset samples", "error", err)
		}
	}()

	for samples.Next() {
		var (
			seq, col int
			value    sql.NullFloat64
		)
		if err := samples.Scan(&seq, &col, &value); err != nil {
			return err
		}
		i, ok := index[seq]
		if !ok || col < 0 || col >= len(ds.NumericColumns) || !value.Valid {
			continue
		}
		ds.Rows[i].Values[col] = value.Float64
	}
	return samples.Err()
}

// ListDatasets describes every stored dataset with its stored row count
// and time range.
func (r *repositoryImpl) ListDatasets(ctx context.Context) ([]types.DatasetInfo, error) {
	out, err := r.listDatasets(ctx)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	ranges, err := r.rowRanges(ctx)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if rg, ok := ranges[out[i].Name]; ok {
			from, to := rg[0], rg[1]
			out[i].From, out[i].To = &from, &to
		}
	}
	return out, nil
}

func (r *repositoryImpl) listDatasets(ctx context.Context) ([]types.DatasetInfo, error) {
	rows, err := r.db.QueryContext(ctx, listDatasetsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close list datasets rows", "error", err)
		}
	}()

	out := []types.DatasetInfo{}
	for rows.Next() {
		var (
			ds               types.Dataset
			columns, numeric string
			hasCooking       int
			loadedAt         string
			count            int
		)
		if err := rows.Scan(&ds.Name, &ds.Title, &ds.TimeColumn, &columns, &numeric, &hasCooking,
			&ds.DroppedRows, &ds.Source, &loadedAt, &count); err != nil {
			return nil, err
		}
		if err := fillMeta(&ds, columns, numeric, hasCooking, loadedAt); err != nil {
			return nil, err
		}
		info := ds.Info()
		info.Rows = count
		out = append(out, info)
	}
	return out, rows.Err()
}

// rowRanges returns the earliest and latest row time per dataset. Stored
// timestamps keep their own offset, so they are compared as instants here
// rather than as strings in SQL.
func (r *repositoryImpl) rowRanges(ctx context.Context) (map[string][2]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, listRowTimesSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close row times", "error", err)
		}
	}()

	ranges := make(map[string][2]time.Time)
	for rows.Next() {
		var name, ts string
		if err := rows.Scan(&name, &ts); err != nil {
			return nil, err
		}
		t, err := parseTime(ts)
		if err != nil {
			return nil, err
		}
		rg, ok := ranges[name]
		if !ok {
			ranges[name] = [2]time.Time{t, t}
			continue
		}
		if t.Before(rg[0]) {
			rg[0] = t
		}
		if t.After(rg[1]) {
			rg[1] = t
		}
		ranges[name] = rg
	}
	return ranges, rows.Err()
}

// LiveRows returns the stored live readings of name together with the
// numeric columns their values line up with. An unknown dataset has none.
func (r *repositoryImpl) LiveRows(ctx context.Context, name string) ([]string, []types.Row, error) {
	var numeric string
	err := r.db.QueryRowContext(ctx, getNumericColumnsSQL, name).Scan(&numeric)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	ds := &types.Dataset{Name: name}
	if err := json.Unmarshal([]byte(numeric), &ds.NumericColumns); err != nil {
		return nil, nil, fmt.Errorf("decode numeric columns: %w", err)
	}

	index, err := r.loadRows(ctx, ds, getLiveRowsSQL)
	if err != nil {
		return nil, nil, fmt.Errorf("load live rows of %q: %w", name, err)
	}
	if len(ds.Rows) == 0 {
		return ds.NumericColumns, nil, nil
	}
	if err := r.loadSamples(ctx, ds, index, getLiveSamplesSQL); err != nil {
		return nil, nil, fmt.Errorf("load live samples of %q: %w", name, err)
	}
	return ds.NumericColumns, ds.Rows, nil
}

// AppendRow stores one reading after the last row of dataset name.
func (r *repositoryImpl) AppendRow(ctx context.Context, name string, row types.Row) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("rollback append row", "dataset", name, "error", err)
		}
	}()

	var numeric string
	err = tx.QueryRowContext(ctx, getNumericColumnsSQL, name).Scan(&numeric)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %q", types.ErrDatasetNotFound, name)
	}
	if err != nil {
		return err
	}
	var cols []string
	if err := json.Unmarshal([]byte(numeric), &cols); err != nil {
		return fmt.Errorf("decode numeric columns: %w", err)
	}
	if len(row.Values) != len(cols) {
		return fmt.Errorf("row has %d values; dataset %q has %d numeric columns", len(row.Values), name, len(cols))
	}

	var seq int
	if err := tx.QueryRowContext(ctx, nextSeqSQL, name).Scan(&seq); err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	rowStmt, err := tx.PrepareContext(ctx, insertRowSQL)
	if err != nil {
		return err
	}
	defer closeStmt(rowStmt)
	sampleStmt, err := tx.PrepareContext(ctx, insertSampleSQL)
	if err != nil {
		return err
	}
	defer closeStmt(sampleStmt)

	if err := insertRow(ctx, rowStmt, sampleStmt, name, seq, row); err != nil {
		return err
	}
	return tx.Commit()
}

func insertRow(ctx context.Context, rowStmt, sampleStmt *sql.Stmt, name string, seq int, row types.Row) error {
	if _, err := rowStmt.ExecContext(ctx, name, seq, formatTime(row.Time), boolToInt(row.Cooking), boolToInt(row.Live)); err != nil {
		return fmt.Errorf("insert row %d: %w", seq, err)
	}
	for col, v := range row.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if _, err := sampleStmt.ExecContext(ctx, name, seq, col, v); err != nil {
			return fmt.Errorf("insert sample %d/%d: %w", seq, col, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(s rowScanner) (*types.Dataset, error) {
	var (
		ds               types.Dataset
		columns, numeric string
		hasCooking       int
		loadedAt         string
	)
	if err := s.Scan(&ds.Name, &ds.Title, &ds.TimeColumn, &columns, &numeric, &hasCooking,
		&ds.DroppedRows, &ds.Source, &loadedAt); err != nil {
		return nil, err
	}
	if err := fillMeta(&ds, columns, numeric, hasCooking, loadedAt); err != nil {
		return nil, err
	}
	return &ds, nil
}

func fillMeta(ds *types.Dataset, columns, numeric string, hasCooking int, loadedAt string) error {
	if err := json.Unmarshal([]byte(columns), &ds.Columns); err != nil {
		return fmt.Errorf("decode columns: %w", err)
	}
	if err := json.Unmarshal([]byte(numeric), &ds.NumericColumns); err != nil {
		return fmt.Errorf("decode numeric columns: %w", err)
	}
	ds.HasCooking = hasCooking != 0
	t, err := parseTime(loadedAt)
	if err != nil {
		return err
	}
	ds.LoadedAt = t
	return nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func closeStmt(stmt *sql.Stmt) {
	if err := stmt.Close(); err != nil {
		slog.Error("close statement", "error", err)
	}
}
