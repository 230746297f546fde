package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	apperrors "github.com/GriffinCanCode/minimap-tracker/internal/errors"
	"github.com/GriffinCanCode/minimap-tracker/internal/tracker"
)

func openTest(t *testing.T, cfg Config) (*PositionStore, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	cfg.Addr = m.Addr()
	s, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, m
}

func sampleFix(x float64) tracker.Fix {
	return tracker.Fix{
		X:       x,
		Y:       6000,
		Lat:     0.7731770481395224,
		Lng:     -0.7644551902985031,
		Heading: 62,
		At:      time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		TraceID: "abc",
	}
}

func TestSaveAndLast(t *testing.T) {
	s, m := openTest(t, Config{})
	ctx := context.Background()

	if err := s.Save(ctx, sampleFix(8500)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if got := m.HGet("minimap:last", "x"); got != "8500" {
		t.Errorf("hash x = %q, want 8500", got)
	}
	if ttl := m.TTL("minimap:last"); ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", ttl, DefaultTTL)
	}

	got, ok, err := s.Last(ctx)
	if err != nil || !ok {
		t.Fatalf("Last = (%v, %v)", ok, err)
	}
	want := sampleFix(8500)
	if got.X != want.X || got.Y != want.Y || got.Lat != want.Lat || got.Lng != want.Lng ||
		got.Heading != want.Heading || !got.At.Equal(want.At) || got.TraceID != want.TraceID {
		t.Errorf("Last = %+v, want %+v", got, want)
	}
}

func TestLastMissing(t *testing.T) {
	s, _ := openTest(t, Config{})
	_, ok, err := s.Last(context.Background())
	if err != nil || ok {
		t.Errorf("Last = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestLastExpires(t *testing.T) {
	s, m := openTest(t, Config{TTL: time.Minute})
	ctx := context.Background()
	_ = s.Save(ctx, sampleFix(8500))

	m.FastForward(2 * time.Minute)
	if _, ok, _ := s.Last(ctx); ok {
		t.Error("last fix should have expired")
	}
}

func TestSaveBatchTrimsTrail(t *testing.T) {
	s, m := openTest(t, Config{TrailLength: 3, Prefix: "test:"})
	ctx := context.Background()

	batch := []tracker.Fix{sampleFix(8500), sampleFix(8501), sampleFix(8502), sampleFix(8503), sampleFix(8504)}
	if err := s.SaveBatch(ctx, batch); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	items, err := m.List("test:trail")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("trail len = %d, want 3", len(items))
	}
	var first tracker.Fix
	if err := json.Unmarshal([]byte(items[0]), &first); err != nil || first.X != 8502 {
		t.Errorf("first trail entry = %+v (%v)", first, err)
	}
	if got := m.HGet("test:last", "x"); got != "8504" {
		t.Errorf("last x = %q, want 8504", got)
	}

	trail, err := s.Trail(ctx, 2)
	if err != nil {
		t.Fatalf("Trail: %v", err)
	}
	if len(trail) != 2 || trail[0].X != 8503 || trail[1].X != 8504 {
		t.Errorf("Trail = %+v", trail)
	}
}

func TestSaveBatchEmpty(t *testing.T) {
	s, m := openTest(t, Config{})
	if err := s.SaveBatch(context.Background(), nil); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}
	if m.Exists("minimap:trail") {
		t.Error("empty batch should not create the trail")
	}
}

func TestTrailSkipsForeignEntries(t *testing.T) {
	s, m := openTest(t, Config{})
	if _, err := m.Push("minimap:trail", "not json"); err != nil {
		t.Fatal(err)
	}
	_ = s.Save(context.Background(), sampleFix(8500))

	trail, err := s.Trail(context.Background(), 0)
	if err != nil {
		t.Fatalf("Trail: %v", err)
	}
	if len(trail) != 1 || trail[0].X != 8500 {
		t.Errorf("Trail = %+v", trail)
	}
}

func TestOpenUnavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Open(ctx, Config{Addr: "127.0.0.1:1"})
	if !apperrors.IsCode(err, apperrors.CodeUnavailable) {
		t.Errorf("err = %v, want UNAVAILABLE", err)
	}
}

func TestSaveFailsWhenServerGone(t *testing.T) {
	s, m := openTest(t, Config{})
	m.SetError("ERR injected failure")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Save(ctx, sampleFix(8500)); !apperrors.IsCode(err, apperrors.CodeStoreFailed) {
		t.Errorf("err = %v, want STORE_FAILED", err)
	}
}

func TestBatcherWithRedis(t *testing.T) {
	s, m := openTest(t, Config{})
	b := NewBatcher(s, 2, time.Hour)
	b.Add(sampleFix(8500))
	b.Add(sampleFix(8501))
	b.Stop()

	items, err := m.List("minimap:trail")
	if err != nil || len(items) != 2 {
		t.Errorf("trail = %v (%v), want 2 entries", items, err)
	}
}
