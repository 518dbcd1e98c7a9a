package visualize

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/tilecoder/tilecoder/training"
)

func TestLossCurvesWritesPlot(t *testing.T) {
	h := training.NewHistory([]string{"loss"})
	for _, v := range []float64{0.9, 0.5, 0.3} {
		if err := h.Record("train", []training.MetricValue{training.Scalar(v)}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if err := h.Record("val", []training.MetricValue{training.Scalar(v + 0.1)}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "loss.png")
	if err := LossCurves(h, "training loss", path); err != nil {
		t.Fatalf("LossCurves failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("plot not written: %v", err)
	}
	if info.Size() == 0 {
		t.Errorf("plot file is empty")
	}
}

func TestLossCurvesEmptyHistory(t *testing.T) {
	h := training.NewHistory([]string{"loss"})
	if err := LossCurves(h, "x", filepath.Join(t.TempDir(), "x.png")); err == nil {
		t.Errorf("expected error for empty history")
	}
}

func TestServiceSinkPush(t *testing.T) {
	var got metricsPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/metrics":
			if err := decodeJSON(r, &got); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	sink := NewServiceSink(srv.URL)
	if err := sink.CheckHealth(); err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	err := sink.PushScalars("training", 3, map[string]float64{"train_loss": 0.25})
	if err != nil {
		t.Fatalf("PushScalars failed: %v", err)
	}
	if got.Epoch != 3 || got.Values["train_loss"] != 0.25 {
		t.Errorf("payload = %+v", got)
	}
}

func TestServiceSinkRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewServiceSink(srv.URL)
	if err := sink.PushScalars("training", 1, map[string]float64{"train_loss": 1}); err != nil {
		t.Fatalf("PushScalars failed after retries: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestServiceSinkGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewServiceSink(srv.URL)
	if err := sink.PushScalars("training", 1, nil); err == nil {
		t.Errorf("expected error after exhausting retries")
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
