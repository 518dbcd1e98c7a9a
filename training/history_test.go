package training

import (
	"bytes"
	"strings"
	"testing"
)

func TestRecordScalarKeys(t *testing.T) {
	h := NewHistory([]string{"loss"})
	if err := h.Record("train", []MetricValue{Scalar(0.5)}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := h.Record("val", []MetricValue{Scalar(0.6)}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if v, ok := h.Last("train_loss"); !ok || v != 0.5 {
		t.Errorf("train_loss = %v, %v", v, ok)
	}
	if v, ok := h.Last("val_loss"); !ok || v != 0.6 {
		t.Errorf("val_loss = %v, %v", v, ok)
	}
}

func TestRecordListKeys(t *testing.T) {
	h := NewHistory([]string{"loss", "vq"})
	err := h.Record("train", []MetricValue{Scalar(1.0), List(0.1, 0.2)})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	want := []string{"train_loss", "train_vq1", "train_vq2"}
	keys := h.Keys()
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], k)
		}
	}
	if v, _ := h.Last("train_vq2"); v != 0.2 {
		t.Errorf("train_vq2 = %v, want 0.2", v)
	}
}

func TestRecordValidation(t *testing.T) {
	h := NewHistory([]string{"loss"})
	if err := h.Record("", []MetricValue{Scalar(1)}); err == nil {
		t.Errorf("expected error for empty phase")
	}
	if err := h.Record("train", []MetricValue{Scalar(1), Scalar(2)}); err == nil {
		t.Errorf("expected error for value count mismatch")
	}
}

func TestBest(t *testing.T) {
	h := NewHistory([]string{"loss"})
	for _, v := range []float64{0.9, 0.4, 0.7} {
		if err := h.Record("val", []MetricValue{Scalar(v)}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	if best, ok := h.Best("val_loss"); !ok || best != 0.4 {
		t.Errorf("Best = %v, %v; want 0.4", best, ok)
	}
	if _, ok := h.Best("train_loss"); ok {
		t.Errorf("Best should report missing key")
	}
}

func TestLastExcludingPrefix(t *testing.T) {
	h := NewHistory([]string{"loss"})
	h.Record("train", []MetricValue{Scalar(0.3)})
	h.Record("val", []MetricValue{Scalar(0.4)})
	got := h.LastExcludingPrefix("val_")
	if len(got) != 1 {
		t.Fatalf("got %v, want only train metrics", got)
	}
	if got["train_loss"] != 0.3 {
		t.Errorf("train_loss = %v, want 0.3", got["train_loss"])
	}
}

func TestWriteCSV(t *testing.T) {
	h := NewHistory([]string{"loss"})
	h.Record("train", []MetricValue{Scalar(1)})
	h.Record("val", []MetricValue{Scalar(2)})
	h.Record("train", []MetricValue{Scalar(3)})

	var buf bytes.Buffer
	if err := h.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if lines[0] != "train_loss,val_loss" {
		t.Errorf("header = %q", lines[0])
	}
	// val_loss has one row fewer; the pad shows up as NaN.
	if !strings.Contains(lines[2], "NaN") {
		t.Errorf("missing NaN pad in %q", lines[2])
	}
}
