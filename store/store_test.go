package store

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RunLifecycle(t *testing.T) {
	s := tempStore(t)
	info := RunInfo{
		Mode:      "batch_valid",
		Split:     "valid",
		ModelName: "contactformer",
		Datatype:  "proxd",
		DataDir:   "data/proxd_valid",
		Seed:      1,
	}
	id, err := s.StartRun(info)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	run, err := s.Run(id)
	require.NoError(t, err)
	assert.Equal(t, info, run.RunInfo)
	assert.False(t, run.StartedAt.IsZero())
	assert.True(t, run.FinishedAt.IsZero())

	samples := []SampleRecord{
		{Index: 1, Stem: "seqB", Label: "a sofa", Chamfer: 0.3, Correct: 0, PredClass: 2, TargetClass: 4, PredictionPath: "out/predictions/seqB.npy"},
		{Index: 0, Stem: "seqA", Label: "the red chair scene", Chamfer: 0.1, Correct: 1, PredClass: 3, TargetClass: 3, PredictionPath: "out/predictions/seqA.npy"},
	}
	for _, r := range samples {
		require.NoError(t, s.RecordSample(id, r))
	}
	require.NoError(t, s.FinishRun(id, 0.2, 0.5))

	run, err = s.Run(id)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, run.Chamfer, 1e-12)
	assert.InDelta(t, 0.5, run.Accuracy, 1e-12)
	assert.False(t, run.FinishedAt.IsZero())

	got, err := s.Samples(id)
	require.NoError(t, err)
	assert.Equal(t, []SampleRecord{samples[1], samples[0]}, got)
}

func TestStore_Errors(t *testing.T) {
	s := tempStore(t)

	assert.Error(t, s.FinishRun("missing", 0, 0))
	_, err := s.Run("missing")
	assert.Error(t, err)
	// foreign key on samples
	assert.Error(t, s.RecordSample("missing", SampleRecord{Stem: "x"}))

	id, err := s.StartRun(RunInfo{Mode: "batch_report"})
	require.NoError(t, err)
	require.NoError(t, s.RecordSample(id, SampleRecord{Index: 0, Stem: "a"}))
	assert.Error(t, s.RecordSample(id, SampleRecord{Index: 0, Stem: "a"}), "duplicate index")
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	s, err := Open(path)
	require.NoError(t, err)
	id, err := s.StartRun(RunInfo{Mode: "visualize", ModelName: "m"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	run, err := s.Run(id)
	require.NoError(t, err)
	assert.Equal(t, "visualize", run.Mode)
}
