package main

// Example command that opens a sequence dataset, builds the prompt lookup
// table and prints the tensor shapes of the first few samples.
//
// Usage:
//   go run ./datasets/example --root ../data/proxd_valid --type proxd
//
// The dataset is read lazily: only the files of the printed samples are
// opened.

import (
	"fmt"

	"github.com/Noofbiz/sceneEval/datasets"
	"github.com/alexflint/go-arg"
	"go.uber.org/zap"
)

func main() {
	args := struct {
		Root string `help:"dataset root (must contain a context directory)"`
		Type string `help:"dataset type: proxd or humanise"`
		N    int    `help:"number of samples to print"`
	}{
		Root: "../data/proxd_valid",
		Type: datasets.TypeProxd,
		N:    4,
	}
	arg.MustParse(&args)

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()
	log := logger.Sugar()

	ds, err := datasets.Open(args.Type, args.Root, datasets.Options{MaxFrame: 256, JumpStep: 8})
	if err != nil {
		log.Fatalw("failed to open dataset", "error", err)
	}
	fmt.Printf("Opened %s dataset at %s: %d sequences, %d categories\n", ds.Name(), args.Root, ds.Len(), ds.MaxCategories())

	lt, err := datasets.BuildLookupTable(args.Root)
	if err != nil {
		log.Fatalw("failed to build lookup table", "error", err)
	}
	fmt.Printf("Lookup table: %d prompts (%d duplicates)\n", lt.Len(), len(lt.Duplicates()))

	for i := range min(args.N, ds.Len()) {
		s, err := ds.Sample(i)
		if err != nil {
			log.Fatalw("failed to read sample", "index", i, "error", err)
		}
		stem, err := lt.Stem(s.Label)
		if err != nil {
			stem = "<missing>"
		}
		fmt.Printf("Sample %d (%s -> %s): %q\n", i, s.Sequence, stem, s.Label)
		fmt.Printf("  mask=%v given_objs=%v given_cats=%v target_obj=%v target_cat=%v\n",
			s.Mask.Shape().Dimensions, s.GivenObjects.Shape().Dimensions, s.GivenCategories.Shape().Dimensions,
			s.TargetObject.Shape().Dimensions, s.TargetCategory.Shape().Dimensions)
	}
}
