package telemetry

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"
)

func TestReadingJSON(t *testing.T) {
	payload := `{"dataset":"indoor","timestamp":"2024-03-01T07:15:00Z","values":{"PM2.5":35.5,"CO2":610},"cooking":true}`
	var r Reading
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r.Dataset != "indoor" || !r.Timestamp.Equal(time.Date(2024, 3, 1, 7, 15, 0, 0, time.UTC)) {
		t.Errorf("reading = %+v", r)
	}
	if r.Values["PM2.5"] != 35.5 || r.Cooking == nil || !*r.Cooking {
		t.Errorf("reading values = %+v cooking = %v", r.Values, r.Cooking)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("Validate() = %v; want nil", err)
	}
}

func TestReadingValidate(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	neg := -1
	tests := []struct {
		name    string
		r       Reading
		wantErr string
	}{
		{name: "missing dataset", r: Reading{Timestamp: now, Values: map[string]float64{"a": 1}}, wantErr: "Dataset"},
		{name: "missing timestamp", r: Reading{Dataset: "indoor", Values: map[string]float64{"a": 1}}, wantErr: "Timestamp"},
		{name: "no values", r: Reading{Dataset: "indoor", Timestamp: now, Values: map[string]float64{}}, wantErr: "Values"},
		{name: "empty key", r: Reading{Dataset: "indoor", Timestamp: now, Values: map[string]float64{"": 1}}, wantErr: "Values"},
		{name: "negative sequence", r: Reading{Dataset: "indoor", Timestamp: now, Values: map[string]float64{"a": 1}, Sequence: &neg}, wantErr: "Sequence"},
		{name: "non-finite", r: Reading{Dataset: "indoor", Timestamp: now, Values: map[string]float64{"a": math.Inf(1)}}, wantErr: "finite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if err == nil {
				t.Fatal("Validate() = nil; want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q; want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
