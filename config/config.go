// Package config resolves the evaluator's command line into a run
// configuration.
package config

import (
	"math/rand"
	"os"
	"path/filepath"

	"github.com/alexflint/go-arg"
	"github.com/pkg/errors"
)

// Contact predictor backends.
const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

// DisabledDB turns off the run ledger when given as --results_db.
const DisabledDB = "none"

// Args are the raw command line arguments.
type Args struct {
	DataDir string `arg:"positional,required" help:"directory holding the evaluation sequences"`

	LoadModel      string `arg:"--load_model" help:"layout synthesizer checkpoint"`
	PosaPath       string `arg:"--posa_path" help:"POSA checkpoint used by the contact predictor"`
	CFCkpt         string `arg:"--cf_ckpt" help:"contact predictor checkpoint"`
	SceneDir       string `arg:"--scene_dir"`
	TposeMeshDir   string `arg:"--tpose_mesh_dir"`
	CamSettingPath string `arg:"--cam_setting_path"`

	Visualize      bool `arg:"--visualize" help:"render the predicted object for the selected sequence"`
	SaveVideo      bool `arg:"--save_video" help:"render a turntable for the selected sequence"`
	TestOnTrainSet bool `arg:"--test_on_train_set"`
	TestOnValidSet bool `arg:"--test_on_valid_set"`
	FixOri         bool `arg:"--fix_ori" help:"normalize sequence orientation"`

	OutputDir     string `arg:"--output_dir"`
	SingleSeqName string `arg:"--single_seq_name" help:"sequence to render; empty renders all"`
	ModelName     string `arg:"--model_name"`

	EncoderMode int    `arg:"--encoder_mode"`
	DecoderMode int    `arg:"--decoder_mode"`
	NLayer      int    `arg:"--n_layer"`
	NHead       int    `arg:"--n_head"`
	JumpStep    int    `arg:"--jump_step"`
	DimFF       int    `arg:"--dim_ff"`
	FVert       int    `arg:"--f_vert"`
	MaxFrame    int    `arg:"--max_frame"`
	Seed        int64  `arg:"--seed"`
	Datatype    string `arg:"--datatype" help:"proxd or humanise"`

	LayoutConfig   string `arg:"--layout_config" help:"layout network YAML"`
	DsWeights      string `arg:"--ds_weights" help:"downsampled skinning weights (.npy)"`
	ModelAddr      string `arg:"--model_addr" help:"address of the model service"`
	ContactBackend string `arg:"--contact_backend" help:"remote or local"`
	PointsPerBox   int    `arg:"--points_per_box" help:"surface points sampled per predicted box"`
	ResultsDB      string `arg:"--results_db" help:"SQLite run ledger; 'none' disables, empty means <output_dir>/results.db"`
	Verbose        bool   `arg:"--verbose"`
}

// DefaultArgs returns the arguments with every default filled in.
func DefaultArgs() Args {
	return Args{
		LoadModel:      "training/contactformer/model_ckpt/best_model_recon_acc.pt",
		PosaPath:       "training/posa/model_ckpt/best_model_recon_acc.pt",
		CFCkpt:         "training/contactformer/model_ckpt/best_model_recon_acc.pt",
		SceneDir:       "data/scenes",
		TposeMeshDir:   "data/mesh_ds",
		CamSettingPath: "posa/support_files/ScreenCamera_0.json",
		OutputDir:      "../test_output",
		SingleSeqName:  "BasementSittingBooth_00142_01",
		ModelName:      "default_model",
		EncoderMode:    1,
		DecoderMode:    1,
		NLayer:         3,
		NHead:          4,
		JumpStep:       8,
		DimFF:          512,
		FVert:          64,
		MaxFrame:       256,
		Seed:           1,
		Datatype:       "proxd",
		LayoutConfig:   "atiss/config/bedrooms_eval_config.yaml",
		DsWeights:      "posa/support_files/downsampled_weights.npy",
		ModelAddr:      "localhost:50051",
		ContactBackend: BackendRemote,
		PointsPerBox:   1024,
	}
}

// Validate checks values go-arg cannot.
func (a Args) Validate() error {
	if a.Datatype != "proxd" && a.Datatype != "humanise" {
		return errors.Errorf("--datatype must be proxd or humanise, got %q", a.Datatype)
	}
	if a.ContactBackend != BackendRemote && a.ContactBackend != BackendLocal {
		return errors.Errorf("--contact_backend must be %s or %s, got %q", BackendRemote, BackendLocal, a.ContactBackend)
	}
	positive := []struct {
		name string
		v    int
	}{
		{"--n_layer", a.NLayer},
		{"--n_head", a.NHead},
		{"--jump_step", a.JumpStep},
		{"--dim_ff", a.DimFF},
		{"--f_vert", a.FVert},
		{"--max_frame", a.MaxFrame},
		{"--points_per_box", a.PointsPerBox},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return errors.Errorf("%s must be positive, got %d", p.name, p.v)
		}
	}
	if a.TestOnTrainSet && a.TestOnValidSet {
		return errors.New("--test_on_train_set and --test_on_valid_set are mutually exclusive")
	}
	return nil
}

// Config is the resolved run configuration.
type Config struct {
	Args Args
	Mode RunMode

	// Visualize and SaveVideo are the effective render switches after flag
	// conflicts are resolved.
	Visualize bool
	SaveVideo bool

	// Warnings describes every requested flag that was overridden.
	Warnings []string
}

// Parse parses argv (without the program name) and resolves it.
func Parse(argv []string) (*Config, error) {
	args := DefaultArgs()
	p, err := arg.NewParser(arg.Config{Program: "evaluate"}, &args)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build argument parser")
	}
	if err := p.Parse(argv); err != nil {
		if err == arg.ErrHelp {
			p.WriteHelp(os.Stdout)
		}
		return nil, err
	}
	return Resolve(args)
}

// Split names the dataset split of a batch mode, or "" for other modes.
func (c *Config) Split() string {
	switch c.Mode {
	case ModeBatchTrain:
		return "train"
	case ModeBatchValid:
		return "valid"
	default:
		return ""
	}
}

// Resolve validates args and applies the flag precedence rules.
func Resolve(args Args) (*Config, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	c := &Config{Args: args, Visualize: args.Visualize, SaveVideo: args.SaveVideo}

	if c.Visualize && c.SaveVideo {
		c.SaveVideo = false
		c.Warnings = append(c.Warnings, "--visualize and --save_video both set; --save_video is ignored")
	}
	if args.TestOnTrainSet || args.TestOnValidSet {
		if c.Visualize || c.SaveVideo {
			c.Warnings = append(c.Warnings, "batch evaluation requested; rendering flags are ignored")
		}
		c.Visualize = false
		c.SaveVideo = false
	}

	switch {
	case args.TestOnTrainSet:
		c.Mode = ModeBatchTrain
	case args.TestOnValidSet:
		c.Mode = ModeBatchValid
	case c.Visualize:
		c.Mode = ModeVisualize
	case c.SaveVideo:
		c.Mode = ModeSaveVideo
	default:
		c.Mode = ModeBatchReport
	}
	return c, nil
}

// EnsureOutputDir creates the output directory if needed.
func (c *Config) EnsureOutputDir() error {
	if err := os.MkdirAll(c.Args.OutputDir, os.ModePerm); err != nil {
		return errors.Wrapf(err, "failed to create output directory %s", c.Args.OutputDir)
	}
	return nil
}

// ResultsDBPath is the run ledger location, or "" when disabled.
func (c *Config) ResultsDBPath() string {
	switch c.Args.ResultsDB {
	case DisabledDB:
		return ""
	case "":
		return filepath.Join(c.Args.OutputDir, "results.db")
	default:
		return c.Args.ResultsDB
	}
}

// NewRand returns a random source seeded with --seed.
func (c *Config) NewRand() *rand.Rand {
	return rand.New(rand.NewSource(c.Args.Seed))
}

// ShouldRender reports whether the sequence with the given stem is rendered
// in this run.
func (c *Config) ShouldRender(stem string) bool {
	if !c.Mode.Renders() {
		return false
	}
	return c.Args.SingleSeqName == "" || c.Args.SingleSeqName == stem
}
