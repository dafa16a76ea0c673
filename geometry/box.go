// Package geometry turns predicted boxes into point clouds and compares point
// clouds.
package geometry

import (
	"math/rand"

	"github.com/pkg/errors"
)

// Point3 is a 3D point (x,y,z).
type Point3 [3]float64

// Box is an axis-aligned box. Size holds the half extents along x, y and z,
// the parameterization used by the layout network.
type Box struct {
	Center Point3
	Size   Point3
}

// DefaultPoints is the number of points sampled per box.
const DefaultPoints = 1024

// BoxToPoints samples n points uniformly over the surface of b. Faces are
// picked in proportion to their area, so flat boxes still get a uniform
// cover. A degenerate box (zero area) collapses to n copies of its center.
func BoxToPoints(rng *rand.Rand, b Box, n int) ([]Point3, error) {
	if rng == nil {
		return nil, errors.New("nil random source")
	}
	if n <= 0 {
		return nil, errors.Errorf("point count must be positive, got %d", n)
	}
	for i, s := range b.Size {
		if s < 0 {
			return nil, errors.Errorf("negative half extent %g on axis %d", s, i)
		}
	}

	hx, hy, hz := b.Size[0], b.Size[1], b.Size[2]
	// area of one face perpendicular to each axis
	areas := [3]float64{4 * hy * hz, 4 * hx * hz, 4 * hx * hy}
	total := areas[0] + areas[1] + areas[2]

	points := make([]Point3, n)
	for i := range points {
		if total == 0 {
			points[i] = b.Center
			continue
		}
		r := rng.Float64() * total
		axis := 2
		switch {
		case r < areas[0]:
			axis = 0
		case r < areas[0]+areas[1]:
			axis = 1
		}

		var p Point3
		for k := 0; k < 3; k++ {
			if k == axis {
				// one of the two opposite faces
				if rng.Intn(2) == 0 {
					p[k] = -b.Size[k]
				} else {
					p[k] = b.Size[k]
				}
				continue
			}
			p[k] = (rng.Float64()*2 - 1) * b.Size[k]
		}
		for k := range p {
			p[k] += b.Center[k]
		}
		points[i] = p
	}
	return points, nil
}

// Bounds returns the per-axis minimum and maximum of points.
func Bounds(points []Point3) (lo, hi Point3) {
	if len(points) == 0 {
		return lo, hi
	}
	lo, hi = points[0], points[0]
	for _, p := range points[1:] {
		for k := 0; k < 3; k++ {
			if p[k] < lo[k] {
				lo[k] = p[k]
			}
			if p[k] > hi[k] {
				hi[k] = p[k]
			}
		}
	}
	return lo, hi
}
