package mqtt

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/svemuri1602/air-quality-dashboard/internal/config"
	"github.com/svemuri1602/air-quality-dashboard/internal/telemetry"
)

type captureHandler struct {
	mu   sync.Mutex
	msgs []string
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, r.Message)
	return nil
}

func (h *captureHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(_ string) slog.Handler { return h }

func (h *captureHandler) has(msg string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.msgs {
		if m == msg {
			return true
		}
	}
	return false
}

func newTestSubscriber(t *testing.T) (*Subscriber, *captureHandler) {
	t.Helper()
	logs := &captureHandler{}
	cfg := config.Config{MQTTBroker: "127.0.0.1", MQTTPort: 1, MQTTTopic: "aqdash/readings", MQTTClientID: "test"}
	return NewSubscriber(cfg, slog.New(logs)), logs
}

func TestHandleMessage_ValidReading(t *testing.T) {
	s, _ := newTestSubscriber(t)
	var got []telemetry.Reading
	s.SetMessageHandler(func(r telemetry.Reading) error {
		got = append(got, r)
		return nil
	})

	s.handleMessage("aqdash/readings", []byte(`{"dataset":"indoor","timestamp":"2024-03-01T07:15:00Z","values":{"PM2.5":35.5},"cooking":true}`))

	if len(got) != 1 {
		t.Fatalf("handler calls = %d; want 1", len(got))
	}
	if got[0].Dataset != "indoor" || got[0].Values["PM2.5"] != 35.5 {
		t.Errorf("reading = %+v", got[0])
	}
	if !got[0].Timestamp.Equal(time.Date(2024, 3, 1, 7, 15, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", got[0].Timestamp)
	}
}

func TestHandleMessage_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		logMsg  string
	}{
		{name: "malformed json", payload: `{"dataset":`, logMsg: "failed to parse reading"},
		{name: "missing dataset", payload: `{"timestamp":"2024-03-01T07:15:00Z","values":{"PM2.5":1}}`, logMsg: "invalid reading"},
		{name: "missing timestamp", payload: `{"dataset":"indoor","values":{"PM2.5":1}}`, logMsg: "invalid reading"},
		{name: "no values", payload: `{"dataset":"indoor","timestamp":"2024-03-01T07:15:00Z","values":{}}`, logMsg: "invalid reading"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, logs := newTestSubscriber(t)
			called := false
			s.SetMessageHandler(func(telemetry.Reading) error {
				called = true
				return nil
			})

			s.handleMessage("aqdash/readings", []byte(tt.payload))

			if called {
				t.Error("handler called for rejected payload")
			}
			if !logs.has(tt.logMsg) {
				t.Errorf("log %q not emitted; got %v", tt.logMsg, logs.msgs)
			}
		})
	}
}

func TestHandleMessage_HandlerError(t *testing.T) {
	s, logs := newTestSubscriber(t)
	s.SetMessageHandler(func(telemetry.Reading) error { return errors.New("boom") })

	s.handleMessage("aqdash/readings", []byte(`{"dataset":"indoor","timestamp":"2024-03-01T07:15:00Z","values":{"PM2.5":1}}`))

	if !logs.has("message handler failed") {
		t.Errorf("handler error not logged; got %v", logs.msgs)
	}
}

func TestHandleMessage_NoHandler(t *testing.T) {
	s, _ := newTestSubscriber(t)
	s.handleMessage("aqdash/readings", []byte(`{"dataset":"indoor","timestamp":"2024-03-01T07:15:00Z","values":{"PM2.5":1}}`))
}

func TestConnect_RespectsContext(t *testing.T) {
	s, _ := newTestSubscriber(t)
	defer s.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := s.Connect(ctx); err == nil {
		t.Fatal("Connect() to an unreachable broker = nil; want error")
	}
	if s.IsConnected() {
		t.Error("IsConnected() = true after failed connect")
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	s, _ := newTestSubscriber(t)
	s.Disconnect()
	s.Disconnect()
	if err := s.Connect(context.Background()); err == nil {
		t.Error("Connect() after Disconnect = nil; want error")
	}
}

func newTestPublisher(t *testing.T) *Publisher {
	t.Helper()
	cfg := config.Config{MQTTBroker: "127.0.0.1", MQTTPort: 1, MQTTTopic: "aqdash/readings", MQTTClientID: "test"}
	return NewPublisher(cfg, slog.New(&captureHandler{}))
}

func TestPublish_RejectsInvalidReading(t *testing.T) {
	p := newTestPublisher(t)
	err := p.Publish(telemetry.Reading{Dataset: "indoor"})
	if err == nil || !strings.Contains(err.Error(), "invalid reading") {
		t.Errorf("Publish() error = %v; want invalid reading", err)
	}
}

func TestPublish_NotConnected(t *testing.T) {
	p := newTestPublisher(t)
	r := telemetry.Reading{
		Dataset:   "indoor",
		Timestamp: time.Date(2024, 3, 1, 7, 15, 0, 0, time.UTC),
		Values:    map[string]float64{"PM2.5": 35.5},
	}
	err := p.Publish(r)
	if err == nil || !strings.Contains(err.Error(), "not connected") {
		t.Errorf("Publish() error = %v; want not connected", err)
	}
}

func TestPublisher_ConnectAfterDisconnect(t *testing.T) {
	p := newTestPublisher(t)
	p.Disconnect()
	p.Disconnect()
	if err := p.Connect(context.Background()); err == nil {
		t.Error("Connect() after Disconnect() = nil; want error")
	}
	if p.IsConnected() {
		t.Error("IsConnected() = true after Disconnect()")
	}
}
