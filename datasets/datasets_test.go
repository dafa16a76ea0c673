package datasets

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// proxdFixture describes one sequence written by writeProxdSequence.
type proxdFixture struct {
	name      string
	prompt    string
	mask      []float32
	givenObjs [][]float32
	givenCats [][]float32
	targetObj [][]float32
	targetCat []float32
	yaw       *float32
}

func writeMatrix(t *testing.T, path string, rows [][]float32, width int) {
	t.Helper()
	arr, err := MatrixArray(rows, width)
	require.NoError(t, err)
	require.NoError(t, WriteNpy(path, arr))
}

func writeVector(t *testing.T, path string, v []float32) {
	t.Helper()
	arr, err := NewArray(v, len(v))
	require.NoError(t, err)
	require.NoError(t, WriteNpy(path, arr))
}

func writeProxdSequence(t *testing.T, root string, f proxdFixture) {
	t.Helper()
	for _, dir := range []string{MaskDir, GivenObjsDir, GivenCatsDir, TargetObjDir, TargetCatDir, OrientDir} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0755))
	}
	writeContext(t, root, f.name+".txt", f.prompt)
	npy := func(dir string) string { return filepath.Join(root, dir, f.name+".npy") }
	writeVector(t, npy(MaskDir), f.mask)
	writeMatrix(t, npy(GivenObjsDir), f.givenObjs, ObjectParams)
	writeMatrix(t, npy(GivenCatsDir), f.givenCats, len(f.targetCat))
	writeMatrix(t, npy(TargetObjDir), f.targetObj, 3)
	writeVector(t, npy(TargetCatDir), f.targetCat)
	if f.yaw != nil {
		writeVector(t, npy(OrientDir), []float32{*f.yaw})
	}
}

func defaultFixture(name, prompt string) proxdFixture {
	return proxdFixture{
		name:      name,
		prompt:    prompt,
		mask:      []float32{1, 1, 1, 1, 0, 0},
		givenObjs: [][]float32{{1, 0, 0, 0.5, 0.5, 0.5, 0}},
		givenCats: [][]float32{{0, 1, 0, 0}},
		targetObj: [][]float32{{1, 0, 0}, {0, 0, 1}},
		targetCat: []float32{0, 0, 1, 0},
	}
}

func TestPointCloudSequenceSource_ReadsSamples(t *testing.T) {
	root := t.TempDir()
	writeProxdSequence(t, root, defaultFixture("seqB", "prompt b"))
	writeProxdSequence(t, root, defaultFixture("seqA", "prompt a"))

	ds, err := Open(TypeProxd, root, Options{MaxFrame: 4})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, 4, ds.MaxCategories())
	assert.Equal(t, TypeProxd, ds.Name())

	// sorted order: seqA first
	s, err := ds.Sample(0)
	require.NoError(t, err)
	assert.Equal(t, "seqA", s.Sequence)
	assert.Equal(t, "prompt a", s.Label)

	assert.Equal(t, []int{1, 4}, s.Mask.Shape().Dimensions)
	assert.Equal(t, []int{1, 1, ObjectParams}, s.GivenObjects.Shape().Dimensions)
	assert.Equal(t, []int{1, 1, 4}, s.GivenCategories.Shape().Dimensions)
	assert.Equal(t, []int{1, 2, 3}, s.TargetObject.Shape().Dimensions)
	assert.Equal(t, []int{1, 4}, s.TargetCategory.Shape().Dimensions)

	target, err := FromTensor(s.TargetObject)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 0, 0, 1}, target.Data)

	_, err = ds.Sample(2)
	assert.Error(t, err)
}

func TestPointCloudSequenceSource_FixOrientation(t *testing.T) {
	root := t.TempDir()
	yaw := float32(math.Pi / 2)
	f := defaultFixture("seqA", "prompt a")
	f.yaw = &yaw
	writeProxdSequence(t, root, f)

	ds, err := NewPointCloudSequenceSource(root, Options{FixOrientation: true})
	require.NoError(t, err)
	s, err := ds.Sample(0)
	require.NoError(t, err)

	// rotating by -pi/2 about y maps +x to +z and +z to -x
	target, err := FromTensor(s.TargetObject)
	require.NoError(t, err)
	expected := []float32{0, 0, 1, -1, 0, 0}
	for i := range expected {
		assert.InDelta(t, expected[i], target.Data[i], 1e-6)
	}

	objs, err := FromTensor(s.GivenObjects)
	require.NoError(t, err)
	assert.InDelta(t, 0, objs.Data[0], 1e-6)
	assert.InDelta(t, 1, objs.Data[2], 1e-6)
	assert.InDelta(t, -math.Pi/2, objs.Data[6], 1e-6)
}

func TestPointCloudSequenceSource_ShapeMismatch(t *testing.T) {
	root := t.TempDir()
	f := defaultFixture("seqA", "prompt a")
	f.targetCat = []float32{0, 1}
	f.givenCats = [][]float32{{0, 1}}
	writeProxdSequence(t, root, f)
	// overwrite target_cat with a width that disagrees with given_cats
	writeVector(t, filepath.Join(root, TargetCatDir, "seqA.npy"), []float32{0, 0, 1})

	_, err := NewPointCloudSequenceSource(root, Options{})
	assert.Error(t, err)
}

func TestHumaniseSequenceSource_ReadsSamples(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, SequencesDir)
	require.NoError(t, os.MkdirAll(dir, 0755))

	rec := humaniseRecord{
		Text:      " lie on the bed ",
		Mask:      []float32{1, 0, 1, 0, 1, 0, 1, 0},
		GivenObjs: [][]float32{{0, 0, 0, 1, 1, 1, 0}, {2, 0, 2, 1, 1, 1, 0}},
		GivenCats: [][]float32{{1, 0, 0}, {0, 1, 0}},
		TargetObj: [][]float32{{0, 0, 0}},
		TargetCat: []float32{0, 0, 1},
	}
	buf, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "h001.json"), buf, 0644))

	ds, err := Open(TypeHumanise, root, Options{JumpStep: 2, MaxFrame: 6})
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, 3, ds.MaxCategories())

	s, err := ds.Sample(0)
	require.NoError(t, err)
	assert.Equal(t, "lie on the bed", s.Label)
	assert.Equal(t, "h001", s.Sequence)

	mask, err := FromTensor(s.Mask)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 1, 1, 0, 0}, mask.Data)
	assert.Equal(t, []int{1, 2, ObjectParams}, s.GivenObjects.Shape().Dimensions)
}

func TestOpen_UnknownType(t *testing.T) {
	_, err := Open("scannet", t.TempDir(), Options{})
	assert.Error(t, err)
}

func TestFrameMask(t *testing.T) {
	mask := []float32{1, 2, 3, 4, 5, 6, 7}
	assert.Equal(t, mask, frameMask(mask, 1, 0))
	assert.Equal(t, []float32{1, 4, 7}, frameMask(mask, 3, 0))
	assert.Equal(t, []float32{1, 3, 5, 7, 0, 0}, frameMask(mask, 2, 6))
	assert.Equal(t, []float32{1, 2}, frameMask(mask, 0, 2))
}

func TestLoadAssociatedJoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "downsampled_weights.npy")
	writeMatrix(t, path, [][]float32{
		{0.1, 0.8, 0.1},
		{0.6, 0.2, 0.2},
		{0.0, 0.3, 0.7},
	}, 3)

	joints, err := LoadAssociatedJoints(path)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 2}, joints)
}

func TestArray_TensorRoundTrip(t *testing.T) {
	arr, err := NewArray([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)

	back, err := FromTensor(arr.Tensor())
	require.NoError(t, err)
	assert.Equal(t, arr.Shape, back.Shape)
	assert.Equal(t, arr.Data, back.Data)
	assert.Equal(t, []int{2, 2}, arr.ArgMax())

	_, err = NewArray([]float32{1, 2, 3}, 2, 2)
	assert.Error(t, err)
}
