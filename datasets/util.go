package datasets

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// ReadNpy reads a NumPy array file into an Array. Float and integer element
// types are converted to float32.
func ReadNpy(path string) (*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read npy header of %s", path)
	}
	shape := r.Header.Descr.Shape
	if r.Header.Descr.Fortran && len(shape) > 1 {
		return nil, errors.Errorf("%s: fortran-ordered arrays are not supported", path)
	}

	var data []float32
	switch strings.TrimLeft(r.Header.Descr.Type, "<|=") {
	case "f4":
		if err := r.Read(&data); err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
	case "f8":
		var raw []float64
		if err := r.Read(&raw); err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
		data = make([]float32, len(raw))
		for i, v := range raw {
			data[i] = float32(v)
		}
	case "i4":
		var raw []int32
		if err := r.Read(&raw); err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
		data = make([]float32, len(raw))
		for i, v := range raw {
			data[i] = float32(v)
		}
	case "i8":
		var raw []int64
		if err := r.Read(&raw); err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
		data = make([]float32, len(raw))
		for i, v := range raw {
			data[i] = float32(v)
		}
	default:
		return nil, errors.Errorf("%s: unsupported npy dtype %q", path, r.Header.Descr.Type)
	}

	arr, err := NewArray(data, shape...)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return arr, nil
}

// WriteNpy writes a rank-1 or rank-2 array in NumPy format. Rank-1 arrays
// keep their float32 element type, matrices are written as float64.
func WriteNpy(path string, a *Array) error {
	var val interface{}
	switch a.Rank() {
	case 1:
		val = a.Data
	case 2:
		if a.Shape[0] == 0 || a.Shape[1] == 0 {
			return errors.Errorf("%s: cannot write empty matrix %v", path, a.Shape)
		}
		m := mat.NewDense(a.Shape[0], a.Shape[1], nil)
		for i, r := range a.Rows() {
			for j, v := range r {
				m.Set(i, j, float64(v))
			}
		}
		val = m
	default:
		return errors.Errorf("%s: cannot write rank-%d array", path, a.Rank())
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := npyio.Write(f, val); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return f.Close()
}

// fileStem is the file name up to its first dot ("seq.a.txt" -> "seq").
func fileStem(name string) string {
	base := filepath.Base(name)
	if i := strings.Index(base, "."); i >= 0 {
		return base[:i]
	}
	return base
}

// listStems returns the sorted stems of the regular files in dir.
func listStems(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", dir)
	}
	stems := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stems = append(stems, fileStem(e.Name()))
	}
	sort.Strings(stems)
	return stems, nil
}

// frameMask applies the frame stride and then pads/truncates to maxFrame.
func frameMask(mask []float32, jumpStep, maxFrame int) []float32 {
	step := jumpStep
	if step < 2 {
		step = 1
	}
	strided := make([]float32, 0, len(mask)/step+1)
	for i := 0; i < len(mask); i += step {
		strided = append(strided, mask[i])
	}
	if maxFrame <= 0 {
		return strided
	}
	out := make([]float32, maxFrame)
	copy(out, strided)
	return out
}

// rotateY rotates xyz in place about the y axis by theta radians.
func rotateY(xyz []float32, theta float64) {
	c, s := math.Cos(theta), math.Sin(theta)
	x, z := float64(xyz[0]), float64(xyz[2])
	xyz[0] = float32(c*x + s*z)
	xyz[2] = float32(-s*x + c*z)
}
