package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Noofbiz/sceneEval/datasets"
	"github.com/Noofbiz/sceneEval/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"
)

func TestResultsFile(t *testing.T) {
	dir := t.TempDir()
	r, err := CreateResults(dir)
	require.NoError(t, err)

	require.NoError(t, r.WriteSample("seqA", 0.1))
	require.NoError(t, r.WriteSample("seqB", 0.30004))
	require.NoError(t, r.WriteSummary(0.2, 0.5))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(filepath.Join(dir, ResultsFileName))
	require.NoError(t, err)
	assert.Equal(t, "Chamfer distance for seq seqA: 0.1000\n"+
		"Chamfer distance for seq seqB: 0.3000\n"+
		"Final Chamfer distance: 0.2000\n"+
		"Category accuracy: 0.5000\n", string(data))
}

func TestCreateResults_Truncates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ResultsFileName)
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o644))

	r, err := CreateResults(dir)
	require.NoError(t, err)
	require.NoError(t, r.WriteSample("s", 1))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Chamfer distance for seq s: 1.0000\n", string(data))
}

func TestSavePrediction(t *testing.T) {
	dir := t.TempDir()
	pts := []geometry.Point3{{1, 2, 3}, {-1, 0.5, 4}}

	path, err := SavePrediction(dir, "seqA", pts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, PredictionsDir, "seqA.npy"), path)

	got, err := datasets.ReadNpy(path)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, got.Shape)
	assert.Equal(t, []float32{1, 2, 3, -1, 0.5, 4}, got.Data)

	// the predictions directory already exists the second time
	_, err = SavePrediction(dir, "seqB", pts)
	require.NoError(t, err)

	_, err = SavePrediction(dir, "empty", nil)
	assert.Error(t, err)
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}

func TestPlotChamferHist(t *testing.T) {
	dir := t.TempDir()
	path, err := PlotChamferHist(dir, []float64{0.1, 0.3, 0.25, 0.7})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, HistFileName), path)
	assertPNG(t, path)

	_, err = PlotChamferHist(dir, nil)
	assert.Error(t, err)
}

func TestPlotSampleAndTurntable(t *testing.T) {
	dir := t.TempDir()
	pred := []geometry.Point3{{0, 0, 0}, {1, 1, 1}}
	ground := []geometry.Point3{{0.5, 0, 0.5}}

	path, err := PlotSample(dir, "seqA", "the red chair scene", pred, ground)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, VisDir, "seqA.png"), path)
	assertPNG(t, path)

	frames, err := PlotTurntable(dir, "seqA", pred, ground, 3)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Equal(t, filepath.Join(dir, VideoDir, "seqA", "frame_002.png"), frames[2])
	for _, f := range frames {
		assertPNG(t, f)
	}

	_, err = PlotTurntable(dir, "seqA", pred, ground, 0)
	assert.Error(t, err)
}

func TestProject(t *testing.T) {
	pts := []geometry.Point3{{1, 2, 0}}
	// a quarter turn about y sends x onto -z
	xys := project(pts, 3.141592653589793/2, 0, 2)
	assert.InDelta(t, 0, xys[0].X, 1e-12)
	assert.InDelta(t, -1, xys[0].Y, 1e-12)
}

func TestAutoRange(t *testing.T) {
	xmin, xmax, ymin, ymax := autoRange(nil)
	assert.Equal(t, []float64{-1, 1, -1, 1}, []float64{xmin, xmax, ymin, ymax})

	xmin, xmax, ymin, ymax = autoRange(plotter.XYs{{X: 0, Y: 5}, {X: 10, Y: 5}})
	assert.InDelta(t, -0.6, xmin, 1e-12)
	assert.InDelta(t, 10.6, xmax, 1e-12)
	assert.Equal(t, 4.0, ymin)
	assert.Equal(t, 6.0, ymax)
}
