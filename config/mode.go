package config

// RunMode is the single mode a run executes in, resolved from the split and
// rendering flags.
type RunMode int

const (
	ModeBatchReport RunMode = iota
	ModeBatchTrain
	ModeBatchValid
	ModeVisualize
	ModeSaveVideo
)

func (m RunMode) String() string {
	switch m {
	case ModeBatchReport:
		return "batch_report"
	case ModeBatchTrain:
		return "batch_train"
	case ModeBatchValid:
		return "batch_valid"
	case ModeVisualize:
		return "visualize"
	case ModeSaveVideo:
		return "save_video"
	default:
		return "unknown"
	}
}

// Renders reports whether the mode produces images.
func (m RunMode) Renders() bool {
	return m == ModeVisualize || m == ModeSaveVideo
}
