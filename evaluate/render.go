package evaluate

import (
	"github.com/Noofbiz/sceneEval/config"
	"github.com/Noofbiz/sceneEval/geometry"
	"github.com/Noofbiz/sceneEval/report"
	"go.uber.org/zap"
)

// NewRenderer returns the render hook for the configured run mode, or nil
// when the mode draws nothing.
func NewRenderer(cfg *config.Config, log *zap.SugaredLogger) RenderFunc {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	switch cfg.Mode {
	case config.ModeVisualize:
		return func(stem, label string, pred, ground []geometry.Point3) error {
			if !cfg.ShouldRender(stem) {
				return nil
			}
			path, err := report.PlotSample(cfg.Args.OutputDir, stem, label, pred, ground)
			if err != nil {
				return err
			}
			log.Infow("rendered sequence", "stem", stem, "path", path)
			return nil
		}
	case config.ModeSaveVideo:
		return func(stem, label string, pred, ground []geometry.Point3) error {
			if !cfg.ShouldRender(stem) {
				return nil
			}
			frames, err := report.PlotTurntable(cfg.Args.OutputDir, stem, pred, ground, report.TurntableFrames)
			if err != nil {
				return err
			}
			log.Infow("rendered turntable", "stem", stem, "frames", len(frames))
			return nil
		}
	default:
		return nil
	}
}
