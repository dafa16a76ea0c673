package datasets

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Subdirectories of a proxd dataset root. Each holds one <seq>.npy per
// sequence.
const (
	MaskDir      = "mask"
	GivenObjsDir = "given_objs"
	GivenCatsDir = "given_cats"
	TargetObjDir = "target_obj"
	TargetCatDir = "target_cat"
	OrientDir    = "orient"
)

// PointCloudSequenceSource reads sequences stored as per-field .npy files.
// The sequence list is taken from the context directory, sorted by stem.
type PointCloudSequenceSource struct {
	Root    string
	Options Options

	sequences []string
	maxCats   int
}

// NewPointCloudSequenceSource indexes the sequences under root and reads the
// first one to learn the category count.
func NewPointCloudSequenceSource(root string, opts Options) (*PointCloudSequenceSource, error) {
	stems, err := listStems(filepath.Join(root, ContextDir))
	if err != nil {
		return nil, err
	}
	ds := &PointCloudSequenceSource{
		Root:      root,
		Options:   opts,
		sequences: stems,
	}
	if len(stems) > 0 {
		raw, err := ds.read(0)
		if err != nil {
			return nil, err
		}
		ds.maxCats = raw.targetCat.Dim(0)
	}
	return ds, nil
}

// Len returns the number of sequences.
func (d *PointCloudSequenceSource) Len() int { return len(d.sequences) }

// MaxCategories returns the width of the one-hot category vectors.
func (d *PointCloudSequenceSource) MaxCategories() int { return d.maxCats }

// Name returns the dataset type selector.
func (d *PointCloudSequenceSource) Name() string { return TypeProxd }

// Sequences returns the sequence names in iteration order.
func (d *PointCloudSequenceSource) Sequences() []string {
	return append([]string(nil), d.sequences...)
}

// Sample reads sequence i.
func (d *PointCloudSequenceSource) Sample(i int) (*Sample, error) {
	raw, err := d.read(i)
	if err != nil {
		return nil, err
	}
	return raw.sample(d.Options)
}

func (d *PointCloudSequenceSource) read(i int) (*rawSequence, error) {
	if i < 0 || i >= len(d.sequences) {
		return nil, errors.Errorf("index %d out of range [0, %d)", i, len(d.sequences))
	}
	seq := d.sequences[i]
	npy := func(dir string) (*Array, error) {
		return ReadNpy(filepath.Join(d.Root, dir, seq+".npy"))
	}

	label, err := readPrompt(d.contextPath(seq))
	if err != nil {
		return nil, err
	}
	raw := &rawSequence{name: seq, label: label}

	mask, err := npy(MaskDir)
	if err != nil {
		return nil, err
	}
	raw.mask = mask.Data
	if raw.givenObjs, err = npy(GivenObjsDir); err != nil {
		return nil, err
	}
	if raw.givenCats, err = npy(GivenCatsDir); err != nil {
		return nil, err
	}
	if raw.targetObj, err = npy(TargetObjDir); err != nil {
		return nil, err
	}
	if raw.targetCat, err = npy(TargetCatDir); err != nil {
		return nil, err
	}

	orientPath := filepath.Join(d.Root, OrientDir, seq+".npy")
	if _, err := os.Stat(orientPath); err == nil {
		orient, err := ReadNpy(orientPath)
		if err != nil {
			return nil, err
		}
		if len(orient.Data) > 0 {
			raw.yaw = orient.Data[0]
		}
	}
	return raw, nil
}

// contextPath finds the context file of seq, whatever its extension.
func (d *PointCloudSequenceSource) contextPath(seq string) string {
	dir := filepath.Join(d.Root, ContextDir)
	if matches, _ := filepath.Glob(filepath.Join(dir, seq+".*")); len(matches) > 0 {
		return matches[0]
	}
	return filepath.Join(dir, seq)
}
