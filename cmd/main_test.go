package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
)

const indoorCSV = `Datetime,PM2.5,CO2,Cooking
2024-03-01 06:30:00,12,420,0
2024-03-01 07:15:00,36,610,1
2024-03-02 07:05:00,40,700,1
`

func setEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	indoor := filepath.Join(dir, "indoor.csv")
	if err := os.WriteFile(indoor, []byte(indoorCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	t.Setenv("APP_ENV", "dev")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("INDOOR_CSV_URL", indoor)
	t.Setenv("OUTDOOR_CSV_URL", indoor)
	t.Setenv("CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "aqdash.db"))
	t.Setenv("MQTT_ENABLED", "false")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "migrate", "fetch", "describe", "publish"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("subcommand %q missing; have %v", want, names)
		}
	}
}

func TestDescribeCmd_JSON(t *testing.T) {
	setEnv(t)

	out, err := execute(t, "describe", "--dataset", "indoor", "--cooking", "--json")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got["count"] != 2.0 {
		t.Errorf("count = %v; want 2", got["count"])
	}
}

func TestDescribeCmd_Table(t *testing.T) {
	setEnv(t)

	out, err := execute(t, "describe", "--dataset", "indoor", "--from", "2024-03-01", "--to", "2024-03-01")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	for _, want := range []string{"Indoor Air Quality: 2 readings", "PM2.5", "24.000", "Correlation"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDescribeCmd_Errors(t *testing.T) {
	setEnv(t)

	if _, err := execute(t, "describe", "--dataset", "kitchen"); !errors.Is(err, types.ErrDatasetNotFound) {
		t.Errorf("unknown dataset error = %v; want ErrDatasetNotFound", err)
	}
	if _, err := execute(t, "describe", "--hour-from", "20", "--hour-to", "3"); !errors.Is(err, types.ErrInvalidFilter) {
		t.Errorf("reversed hours error = %v; want ErrInvalidFilter", err)
	}
}

func TestConfigError(t *testing.T) {
	setEnv(t)
	t.Setenv("APP_ENV", "staging")

	_, err := execute(t, "migrate")
	var cfgErr *configError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v; want *configError", err)
	}
	if !strings.Contains(cfgErr.err.Error(), "APP_ENV") {
		t.Errorf("config error = %q; want it to name APP_ENV", cfgErr.err)
	}
}

func TestFetchCmd(t *testing.T) {
	setEnv(t)

	out, err := execute(t, "fetch")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(out, "indoor") || !strings.Contains(out, "outdoor") {
		t.Errorf("output missing dataset rows:\n%s", out)
	}
}

func TestPrintResult_Empty(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, &types.Result{Info: types.DatasetInfo{Title: "Outdoor"}, Empty: true})
	if !strings.Contains(buf.String(), "No data available for the selected filters.") {
		t.Errorf("output = %q; want the empty notice", buf.String())
	}
}

func TestPrintResult_NaNCorrelation(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, &types.Result{
		Info:      types.DatasetInfo{Title: "Indoor"},
		Count:     1,
		Summaries: []types.Summary{{Column: "PM2.5", Count: 1, Mean: 12, Std: math.NaN(), Min: 12, P25: 12, P50: 12, P75: 12, Max: 12}},
		Correlation: &types.Matrix{
			Columns: []string{"PM2.5"},
			Values:  [][]float64{{math.NaN()}},
		},
	})
	out := buf.String()
	if strings.Count(out, "n/a") != 2 {
		t.Errorf("want n/a for std and correlation:\n%s", out)
	}
}

func TestFormatTime(t *testing.T) {
	if got := formatTime(nil); got != "-" {
		t.Errorf("formatTime(nil) = %q", got)
	}
	ts := time.Date(2024, 3, 1, 6, 30, 0, 0, time.UTC)
	if got := formatTime(&ts); got != "2024-03-01 06:30" {
		t.Errorf("formatTime = %q", got)
	}
}

func TestPublishCmd_RequiresFile(t *testing.T) {
	setEnv(t)
	if _, err := execute(t, "publish"); err == nil {
		t.Error("publish without FILE = nil; want argument error")
	}
}
