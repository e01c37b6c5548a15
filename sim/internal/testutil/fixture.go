// Package testutil provides shared test infrastructure for the ward simulator.
// It consolidates the reference dataset fixture, scripted random sources and
// decimal assertions used across sim/ and its store test packages.
package testutil

import (
	"math/rand"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wardsim/wardsim/sim/dataset"
)

// Monday is the first tick used by most tests: 2025-01-06 00:00 UTC.
var Monday = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

// At returns Monday plus h hours.
func At(h int) time.Time {
	return Monday.Add(time.Duration(h) * time.Hour)
}

// SmallDatasetPath returns the path of sim/dataset/testdata/small.yaml.
// The path is resolved relative to this source file: sim/internal/testutil/ → sim/dataset/testdata/.
func SmallDatasetPath(t testing.TB) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "dataset", "testdata", "small.yaml")
}

// LoadSmall loads a fresh copy of the small reference network.
func LoadSmall(t testing.TB) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Load(SmallDatasetPath(t))
	if err != nil {
		t.Fatalf("Failed to load small dataset: %v", err)
	}
	return ds
}

// === Scripted randomness ===

// Draw returns the raw source value that makes rand.Rand.Float64 return v.
func Draw(v float64) int64 {
	return int64(v * (1 << 63))
}

// Pick returns the raw source value that makes rand.Rand.Intn(n) return k
// for any n > k.
func Pick(k int) int64 {
	return int64(k) << 32
}

// ScriptedSource replays a fixed sequence of Int63 values and fails the test
// once the script runs out.
type ScriptedSource struct {
	t      testing.TB
	values []int64
	next   int
}

// Int63 implements rand.Source.
func (s *ScriptedSource) Int63() int64 {
	if s.next >= len(s.values) {
		s.t.Fatalf("scripted random source exhausted after %d draws", len(s.values))
	}
	v := s.values[s.next]
	s.next++
	return v
}

// Seed implements rand.Source.
func (s *ScriptedSource) Seed(int64) {}

// Remaining returns how many scripted values have not been consumed.
func (s *ScriptedSource) Remaining() int { return len(s.values) - s.next }

// Scripted returns a rand.Rand that replays values built with Draw and Pick.
func Scripted(t testing.TB, values ...int64) (*rand.Rand, *ScriptedSource) {
	src := &ScriptedSource{t: t, values: values}
	return rand.New(src), src
}

// AssertDecimalEqual fails the test unless got equals the decimal literal want.
func AssertDecimalEqual(t testing.TB, name, want string, got decimal.Decimal) {
	t.Helper()
	w := decimal.RequireFromString(want)
	if !w.Equal(got) {
		t.Errorf("%s: got %s, want %s", name, got.String(), w.String())
	}
}
