// Package mask provides masking utilities for labeled volumes: thresholded
// binarisation, shape-checked unions, and mask application.
package mask

import (
	"errors"
	"fmt"

	"niftisplit/internal/models"
)

// ErrNoVolumes is returned by Union when called without volumes.
var ErrNoVolumes = errors.New("no volumes given")

// Binarise returns a volume with ones where vol exceeds threshold and
// zeros elsewhere.
func Binarise(vol *models.Volume, threshold float64) *models.Volume {
	out := vol.ZerosLike()
	for i, v := range vol.Data {
		if v > threshold {
			out.Data[i] = 1
		}
	}
	return out
}

// Union returns the binary union of the given volumes: one wherever any
// volume has a non-zero voxel. All volumes must share the same shape.
func Union(vols ...*models.Volume) (*models.Volume, error) {
	if len(vols) == 0 {
		return nil, ErrNoVolumes
	}
	first := vols[0]
	out := first.ZerosLike()
	for n, vol := range vols {
		if !vol.SameShape(first) {
			return nil, fmt.Errorf("volume %d has shape %v, want %v", n, vol.Dim, first.Dim)
		}
		for i, v := range vol.Data {
			if v != 0 {
				out.Data[i] = 1
			}
		}
	}
	return out, nil
}

// Apply returns the voxels of vol under the non-zero entries of mask,
// together with their linear indices. Both volumes must share the same
// shape.
func Apply(vol, mask *models.Volume) ([]float64, []int, error) {
	if !vol.SameShape(mask) {
		return nil, nil, fmt.Errorf("volume shape %v and mask shape %v are not compatible", vol.Dim, mask.Dim)
	}
	var values []float64
	var indices []int
	for i, m := range mask.Data {
		if m != 0 {
			values = append(values, vol.Data[i])
			indices = append(indices, i)
		}
	}
	return values, indices, nil
}
