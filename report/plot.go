package report

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"github.com/Noofbiz/sceneEval/geometry"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot file names.
const (
	HistFileName = "chamfer_hist.png"
	VisDir       = "vis"
	VideoDir     = "video"

	// TurntableFrames is the number of frames in a saved turntable.
	TurntableFrames = 36
)

var (
	groundColor = color.RGBA{R: 120, G: 120, B: 120, A: 180}
	predColor   = color.RGBA{R: 20, G: 80, B: 200, A: 220}
)

// PlotChamferHist writes a histogram of per-sequence Chamfer distances to
// {outputDir}/chamfer_hist.png.
func PlotChamferHist(outputDir string, values []float64) (string, error) {
	if len(values) == 0 {
		return "", errors.New("no chamfer distances to plot")
	}
	p := plot.New()
	p.Title.Text = "Chamfer distance per sequence"
	p.X.Label.Text = "chamfer distance"
	p.Y.Label.Text = "sequences"

	bins := int(math.Ceil(math.Sqrt(float64(len(values)))))
	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return "", err
	}
	h.FillColor = predColor
	p.Add(h)
	p.Add(plotter.NewGrid())

	if err := ensureDir(outputDir); err != nil {
		return "", err
	}
	path := filepath.Join(outputDir, HistFileName)
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return "", errors.Wrapf(err, "failed to save %s", path)
	}
	return path, nil
}

// PlotSample writes a top-down (x/z) view of the predicted and ground-truth
// points to {outputDir}/vis/{stem}.png.
func PlotSample(outputDir, stem, label string, pred, ground []geometry.Point3) (string, error) {
	dir := filepath.Join(outputDir, VisDir)
	path := filepath.Join(dir, stem+".png")
	err := savePointPlot(path, fmt.Sprintf("%s: %s", stem, label), "x", "z",
		project(ground, 0, 0, 2), project(pred, 0, 0, 2))
	if err != nil {
		return "", err
	}
	return path, nil
}

// PlotTurntable renders frames of the scene rotating about the vertical axis
// to {outputDir}/video/{stem}/frame_NNN.png and returns the frame paths.
func PlotTurntable(outputDir, stem string, pred, ground []geometry.Point3, frames int) ([]string, error) {
	if frames <= 0 {
		return nil, errors.Errorf("frame count must be positive, got %d", frames)
	}
	dir := filepath.Join(outputDir, VideoDir, stem)
	paths := make([]string, 0, frames)
	for k := 0; k < frames; k++ {
		theta := 2 * math.Pi * float64(k) / float64(frames)
		path := filepath.Join(dir, fmt.Sprintf("frame_%03d.png", k))
		title := fmt.Sprintf("%s (%.0f°)", stem, theta*180/math.Pi)
		if err := savePointPlot(path, title, "", "y", project(ground, theta, 0, 1), project(pred, theta, 0, 1)); err != nil {
			return paths, errors.Wrapf(err, "frame %d", k)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// project rotates points by theta about y and keeps axes a and b.
func project(pts []geometry.Point3, theta float64, a, b int) plotter.XYs {
	c, s := math.Cos(theta), math.Sin(theta)
	xys := make(plotter.XYs, len(pts))
	for i, p := range pts {
		r := geometry.Point3{c*p[0] + s*p[2], p[1], -s*p[0] + c*p[2]}
		xys[i] = plotter.XY{X: r[a], Y: r[b]}
	}
	return xys
}

func savePointPlot(path, title, xLabel, yLabel string, ground, pred plotter.XYs) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	gr, err := plotter.NewScatter(ground)
	if err != nil {
		return err
	}
	gr.GlyphStyle.Color = groundColor
	gr.GlyphStyle.Radius = vg.Points(1.8)
	p.Add(gr)
	p.Legend.Add("ground truth", gr)

	pr, err := plotter.NewScatter(pred)
	if err != nil {
		return err
	}
	pr.GlyphStyle.Color = predColor
	pr.GlyphStyle.Radius = vg.Points(1.8)
	p.Add(pr)
	p.Legend.Add("prediction", pr)

	p.Add(plotter.NewGrid())
	all := append(append(plotter.XYs{}, ground...), pred...)
	p.X.Min, p.X.Max, p.Y.Min, p.Y.Max = autoRange(all)

	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save %s", path)
	}
	return nil
}

// autoRange computes padded min/max for X and Y for a set of points.
func autoRange(xs plotter.XYs) (xmin, xmax, ymin, ymax float64) {
	if len(xs) == 0 {
		return -1, 1, -1, 1
	}
	xmin = math.Inf(1)
	xmax = math.Inf(-1)
	ymin = math.Inf(1)
	ymax = math.Inf(-1)
	for _, p := range xs {
		xmin = math.Min(xmin, p.X)
		xmax = math.Max(xmax, p.X)
		ymin = math.Min(ymin, p.Y)
		ymax = math.Max(ymax, p.Y)
	}
	padx := (xmax - xmin) * 0.06
	pady := (ymax - ymin) * 0.06
	if padx == 0 {
		padx = 1.0
	}
	if pady == 0 {
		pady = 1.0
	}
	return xmin - padx, xmax + padx, ymin - pady, ymax + pady
}
