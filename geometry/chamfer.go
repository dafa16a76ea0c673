package geometry

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Chamfer returns the symmetric Chamfer distance between a and b: the mean
// squared distance from each point of a to its nearest neighbour in b, plus
// the same quantity from b to a.
func Chamfer(a, b []Point3) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, errors.Errorf("chamfer distance needs non-empty point sets (got %d and %d points)", len(a), len(b))
	}
	return meanNearest(a, b) + meanNearest(b, a), nil
}

// BatchChamfer averages Chamfer over paired batch items.
func BatchChamfer(a, b [][]Point3) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.Errorf("batch sizes differ: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, errors.New("empty batch")
	}
	var sum float64
	for i := range a {
		d, err := Chamfer(a[i], b[i])
		if err != nil {
			return 0, errors.Wrapf(err, "batch item %d", i)
		}
		sum += d
	}
	return sum / float64(len(a)), nil
}

// meanNearest is the mean squared nearest-neighbour distance from each query
// point to the reference set.
func meanNearest(query, ref []Point3) float64 {
	pts := make(kdtree.Points, len(ref))
	for i, p := range ref {
		pts[i] = kdtree.Point{p[0], p[1], p[2]}
	}
	tree := kdtree.New(pts, false)

	var sum float64
	for _, q := range query {
		// Distance of kdtree.Point is already squared
		_, d := tree.Nearest(kdtree.Point{q[0], q[1], q[2]})
		sum += d
	}
	return sum / float64(len(query))
}
