package sim

import (
	"bufio"
	"bytes"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogObserver_Levels(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	obs := NewLogObserver(logger)
	at := time.Date(2025, 1, 6, 6, 0, 0, 0, time.UTC)

	obs.Observe(Observation{Kind: KindSupplyAnomaly, At: at, Attrs: map[string]any{"order_id": int64(3)}})
	obs.Observe(Observation{Kind: KindTick, At: at})
	obs.Observe(Observation{Kind: KindAdmission, At: at})

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, logrus.WarnLevel, entries[0].Level)
	assert.Equal(t, int64(3), entries[0].Data["order_id"])
	assert.Equal(t, "2025-01-06T06:00:00Z", entries[0].Data["sim_time"])
	assert.Equal(t, logrus.DebugLevel, entries[1].Level)
	assert.Equal(t, logrus.InfoLevel, entries[2].Level)
	assert.Equal(t, "admission", entries[2].Message)
}

func TestWithRunID_StampsEveryObservation(t *testing.T) {
	rec := &Recorder{}
	obs := withRunID{runID: "run-1", next: MultiObserver{rec, NopObserver{}}}

	obs.Observe(Observation{Kind: KindTick})
	obs.Observe(Observation{Kind: KindPayroll, Attrs: map[string]any{"employee_id": int64(1)}})

	all := rec.All()
	require.Len(t, all, 2)
	for _, o := range all {
		assert.Equal(t, "run-1", o.Attrs["run_id"])
	}
	assert.Len(t, rec.OfKind(KindPayroll), 1)
}

func TestWithRunID_LeavesCallerAttrsUntouched(t *testing.T) {
	attrs := map[string]any{"employee_id": int64(1)}
	var seen Observation
	obs := withRunID{runID: "run-1", next: ObserverFunc(func(o Observation) { seen = o })}

	obs.Observe(Observation{Kind: KindPayroll, Attrs: attrs})

	assert.Equal(t, map[string]any{"employee_id": int64(1)}, attrs)
	assert.Equal(t, "run-1", seen.Attrs["run_id"])
	assert.Equal(t, int64(1), seen.Attrs["employee_id"])
}

func TestTraceWriter_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	tw := NewTraceWriter(&buf)
	at := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	tw.Observe(Observation{Kind: KindDepletion, At: at, Attrs: map[string]any{"records": 4}})
	tw.Observe(Observation{Kind: KindTick, At: at.Add(time.Hour)})
	require.NoError(t, tw.Err())

	sc := bufio.NewScanner(&buf)
	var lines []traceLine
	for sc.Scan() {
		var l traceLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l))
		lines = append(lines, l)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, KindDepletion, lines[0].Kind)
	assert.Equal(t, float64(4), lines[0].Attrs["records"])
	assert.True(t, lines[1].At.Equal(at.Add(time.Hour)))
	assert.Empty(t, lines[1].Attrs)
}
