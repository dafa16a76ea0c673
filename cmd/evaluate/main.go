package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/Noofbiz/sceneEval/config"
	"github.com/Noofbiz/sceneEval/datasets"
	"github.com/Noofbiz/sceneEval/evaluate"
	"github.com/Noofbiz/sceneEval/models"
	"github.com/Noofbiz/sceneEval/store"
	"github.com/alexflint/go-arg"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger splits output between stdout and stderr by level.
func newLogger(verbose bool) *zap.Logger {
	threshold := zapcore.InfoLevel
	if verbose {
		threshold = zapcore.DebugLevel
	}
	isErrorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})
	isInfoLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= threshold && lvl < zapcore.ErrorLevel
	})

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	enc := zapcore.NewConsoleEncoder(encCfg)

	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), isErrorLevel),
		zapcore.NewCore(enc, zapcore.Lock(os.Stdout), isInfoLevel),
	)
	return zap.New(core, zap.AddCaller())
}

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err == arg.ErrHelp {
		os.Exit(0)
	}
	logger := newLogger(cfg != nil && cfg.Args.Verbose)
	defer logger.Sync()
	log := logger.Sugar()
	if err != nil {
		log.Errorw("invalid arguments", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Errorw("evaluation failed", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	a := cfg.Args
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}
	log.Infow("configuration",
		"data_dir", a.DataDir,
		"mode", cfg.Mode.String(),
		"datatype", a.Datatype,
		"model_name", a.ModelName,
		"load_model", a.LoadModel,
		"cf_ckpt", a.CFCkpt,
		"contact_backend", a.ContactBackend,
		"model_addr", a.ModelAddr,
		"fix_ori", a.FixOri,
		"max_frame", a.MaxFrame,
		"jump_step", a.JumpStep,
		"seed", a.Seed,
		"output_dir", a.OutputDir,
	)
	// Scene meshes and camera settings are consumed by the model service.
	log.Debugw("service-side assets", "scene_dir", a.SceneDir, "tpose_mesh_dir", a.TposeMeshDir, "cam_setting_path", a.CamSettingPath)

	if err := cfg.EnsureOutputDir(); err != nil {
		return err
	}

	ds, err := datasets.Open(a.Datatype, a.DataDir, datasets.Options{
		MaxFrame:       a.MaxFrame,
		JumpStep:       a.JumpStep,
		FixOrientation: a.FixOri,
	})
	if err != nil {
		return err
	}
	lookup, err := datasets.BuildLookupTable(a.DataDir)
	if err != nil {
		return err
	}
	for _, p := range lookup.Duplicates() {
		log.Warnw("prompt appears in more than one context file; the last one wins", "prompt", p)
	}
	numClasses := ds.MaxCategories()
	log.Infow("dataset loaded", "name", ds.Name(), "sequences", ds.Len(), "classes", numClasses, "prompts", lookup.Len())

	bridge, closeModels, err := buildModel(ctx, cfg, numClasses)
	if err != nil {
		return err
	}
	defer closeModels()

	ev := &evaluate.Evaluator{
		Dataset:      ds,
		Model:        bridge,
		Lookup:       lookup,
		OutputDir:    a.OutputDir,
		Rand:         cfg.NewRand(),
		PointsPerBox: a.PointsPerBox,
		Render:       evaluate.NewRenderer(cfg, log),
		Log:          log,
	}

	if path := cfg.ResultsDBPath(); path != "" {
		ledger, err := store.Open(path)
		if err != nil {
			return err
		}
		defer ledger.Close()
		runID, err := ledger.StartRun(store.RunInfo{
			Mode:      cfg.Mode.String(),
			Split:     cfg.Split(),
			ModelName: a.ModelName,
			Datatype:  a.Datatype,
			DataDir:   a.DataDir,
			Seed:      a.Seed,
		})
		if err != nil {
			return err
		}
		ev.Ledger = ledger
		ev.RunID = runID
		log.Infow("recording run", "db", path, "run_id", runID)
	}

	summary, err := ev.Run(ctx)
	if err != nil {
		return err
	}
	log.Infow("results written",
		"path", summary.ResultsPath,
		"sequences", summary.Samples,
		"chamfer", summary.Chamfer,
		"accuracy", summary.Accuracy,
	)
	return nil
}

// buildModel assembles the contact predictor and layout synthesizer. The
// returned func closes the model service connection.
func buildModel(ctx context.Context, cfg *config.Config, numClasses int) (*models.Bridge, func(), error) {
	a := cfg.Args
	layoutCfg, err := models.LoadLayoutConfig(a.LayoutConfig)
	if err != nil {
		return nil, nil, err
	}

	client, err := models.Dial(a.ModelAddr)
	if err != nil {
		return nil, nil, err
	}
	closeClient := func() { client.Close() }

	contactCfg := models.ContactConfig{
		SegLen:      a.MaxFrame,
		EncoderMode: a.EncoderMode,
		DecoderMode: a.DecoderMode,
		NLayer:      a.NLayer,
		NHead:       a.NHead,
		FVert:       a.FVert,
		DimFF:       a.DimFF,
		DHid:        models.DefaultHiddenWidth,
		PosaPath:    a.PosaPath,
	}
	var contact models.ContactPredictor
	switch a.ContactBackend {
	case config.BackendLocal:
		contact, err = models.NewLocalContactPredictor(contactCfg, a.CFCkpt)
	default:
		contact, err = models.NewRemoteContactPredictor(ctx, client, contactCfg, a.CFCkpt)
	}
	if err != nil {
		closeClient()
		return nil, nil, errors.Wrap(err, "contact predictor")
	}

	layout, err := models.NewRemoteLayoutSynthesizer(ctx, client, layoutCfg.WithClasses(numClasses), a.LoadModel)
	if err != nil {
		closeClient()
		return nil, nil, errors.Wrap(err, "layout synthesizer")
	}

	bridge, err := models.NewBridge(layout, contact, a.Datatype, numClasses)
	if err != nil {
		closeClient()
		return nil, nil, err
	}
	if a.FixOri {
		joints, err := datasets.LoadAssociatedJoints(a.DsWeights)
		if err != nil {
			closeClient()
			return nil, nil, err
		}
		bridge.AssociatedJoints = joints
	}
	return bridge, closeClient, nil
}
