// Package report writes the evaluation outputs: the plain-text results file,
// per-sequence prediction arrays and the optional plots.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Noofbiz/sceneEval/geometry"
	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// Output names below the output directory.
const (
	ResultsFileName = "results.txt"
	PredictionsDir  = "predictions"
)

// ResultsFile is the line-oriented results log. Lines go straight to the file
// so an aborted run keeps everything written so far.
type ResultsFile struct {
	f    *os.File
	path string
}

// CreateResults creates (or truncates) results.txt in outputDir.
func CreateResults(outputDir string) (*ResultsFile, error) {
	path := filepath.Join(outputDir, ResultsFileName)
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create results file %s", path)
	}
	return &ResultsFile{f: f, path: path}, nil
}

// Path returns the file location.
func (r *ResultsFile) Path() string { return r.path }

// WriteSample appends the per-sequence Chamfer line.
func (r *ResultsFile) WriteSample(stem string, chamfer float64) error {
	_, err := fmt.Fprintf(r.f, "Chamfer distance for seq %s: %.4f\n", stem, chamfer)
	return errors.Wrap(err, "failed to write results")
}

// WriteSummary appends the final mean Chamfer distance and category accuracy.
func (r *ResultsFile) WriteSummary(chamfer, accuracy float64) error {
	if _, err := fmt.Fprintf(r.f, "Final Chamfer distance: %.4f\n", chamfer); err != nil {
		return errors.Wrap(err, "failed to write results")
	}
	_, err := fmt.Fprintf(r.f, "Category accuracy: %.4f\n", accuracy)
	return errors.Wrap(err, "failed to write results")
}

// Close closes the underlying file.
func (r *ResultsFile) Close() error {
	return r.f.Close()
}

// SavePrediction writes a predicted point cloud as a [P, 3] float64 array to
// {outputDir}/predictions/{stem}.npy, creating the directory if needed. It
// returns the written path.
func SavePrediction(outputDir, stem string, points []geometry.Point3) (string, error) {
	if len(points) == 0 {
		return "", errors.Errorf("no points to save for %s", stem)
	}
	dir := filepath.Join(outputDir, PredictionsDir)
	if err := ensureDir(dir); err != nil {
		return "", errors.Wrapf(err, "failed to create %s", dir)
	}

	data := make([]float64, 0, 3*len(points))
	for _, p := range points {
		data = append(data, p[0], p[1], p[2])
	}
	path := filepath.Join(dir, stem+".npy")
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	if err := npyio.Write(f, mat.NewDense(len(points), 3, data)); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	return path, f.Close()
}

func ensureDir(path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(path, 0755)
}
