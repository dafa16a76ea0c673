package datasets

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// SequencesDir is the subdirectory of a humanise dataset root holding one
// JSON document per sequence.
const SequencesDir = "sequences"

// humaniseRecord is the on-disk form of one humanise sequence.
type humaniseRecord struct {
	Text        string      `json:"text"`
	Mask        []float32   `json:"mask"`
	GivenObjs   [][]float32 `json:"given_objs"`
	GivenCats   [][]float32 `json:"given_cats"`
	TargetObj   [][]float32 `json:"target_obj"`
	TargetCat   []float32   `json:"target_cat"`
	Orientation float32     `json:"orientation"`
}

// HumaniseSequenceSource reads sequences stored as one JSON document each. The
// prompt comes from the document's text field.
type HumaniseSequenceSource struct {
	Root    string
	Options Options

	paths   []string
	maxCats int
}

// NewHumaniseSequenceSource indexes <root>/sequences/*.json.
func NewHumaniseSequenceSource(root string, opts Options) (*HumaniseSequenceSource, error) {
	dir := filepath.Join(root, SequencesDir)
	if _, err := os.Stat(dir); err != nil {
		return nil, errors.Wrapf(err, "failed to open sequences directory %s", dir)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to glob %s", dir)
	}

	ds := &HumaniseSequenceSource{Root: root, Options: opts, paths: paths}
	if len(paths) > 0 {
		raw, err := ds.read(0)
		if err != nil {
			return nil, err
		}
		ds.maxCats = raw.targetCat.Dim(0)
	}
	return ds, nil
}

// Len returns the number of sequences.
func (d *HumaniseSequenceSource) Len() int { return len(d.paths) }

// MaxCategories returns the width of the one-hot category vectors.
func (d *HumaniseSequenceSource) MaxCategories() int { return d.maxCats }

// Name returns the dataset type selector.
func (d *HumaniseSequenceSource) Name() string { return TypeHumanise }

// Sample reads sequence i.
func (d *HumaniseSequenceSource) Sample(i int) (*Sample, error) {
	raw, err := d.read(i)
	if err != nil {
		return nil, err
	}
	return raw.sample(d.Options)
}

func (d *HumaniseSequenceSource) read(i int) (*rawSequence, error) {
	if i < 0 || i >= len(d.paths) {
		return nil, errors.Errorf("index %d out of range [0, %d)", i, len(d.paths))
	}
	path := d.paths[i]
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	var rec humaniseRecord
	if err := json.Unmarshal(buf, &rec); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}

	raw := &rawSequence{
		name:  fileStem(path),
		label: strings.TrimSpace(rec.Text),
		mask:  rec.Mask,
		yaw:   rec.Orientation,
	}
	if raw.label == "" {
		return nil, errors.Errorf("%s: empty text", path)
	}
	if raw.givenObjs, err = MatrixArray(rec.GivenObjs, ObjectParams); err != nil {
		return nil, errors.Wrapf(err, "%s: given_objs", path)
	}
	if raw.targetCat, err = NewArray(rec.TargetCat, len(rec.TargetCat)); err != nil {
		return nil, errors.Wrapf(err, "%s: target_cat", path)
	}
	if raw.givenCats, err = MatrixArray(rec.GivenCats, len(rec.TargetCat)); err != nil {
		return nil, errors.Wrapf(err, "%s: given_cats", path)
	}
	if raw.targetObj, err = MatrixArray(rec.TargetObj, 3); err != nil {
		return nil, errors.Wrapf(err, "%s: target_obj", path)
	}
	return raw, nil
}
