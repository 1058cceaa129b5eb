// Package roi enumerates and extracts the regions of interest of a
// labeled atlas volume.
package roi

import (
	"errors"
	"iter"
	"sort"

	"niftisplit/internal/models"
)

// ErrEmptyVolume is returned by LargestConnectedComponent when the
// volume contains no foreground voxels.
var ErrEmptyVolume = errors.New("volume contains no foreground voxels")

// Labels returns the distinct voxel values present in vol, excluding the
// background value, sorted ascending. The input is not modified. An
// all-background volume yields an empty slice.
func Labels(vol *models.Volume, background float64) []float64 {
	seen := make(map[float64]struct{})
	for _, v := range vol.Data {
		if v != background {
			seen[v] = struct{}{}
		}
	}
	labels := make([]float64, 0, len(seen))
	for v := range seen {
		labels = append(labels, v)
	}
	sort.Float64s(labels)
	return labels
}

// SplitOne returns a fresh volume of the same shape and datatype as vol
// where voxels equal to label keep their value and all others are zero.
// The source is never mutated and the result shares no storage with it.
func SplitOne(vol *models.Volume, label float64) *models.Volume {
	out := vol.ZerosLike()
	for i, v := range vol.Data {
		if v == label {
			out.Data[i] = v
		}
	}
	return out
}

// Split lazily yields one (label, masked volume) pair per entry of
// labels, in the given order. The sequence is finite and restartable:
// re-ranging over it reproduces the same pairs. Only one masked volume
// is materialized at a time.
func Split(vol *models.Volume, labels []float64) iter.Seq2[float64, *models.Volume] {
	return func(yield func(float64, *models.Volume) bool) {
		for _, r := range labels {
			if !yield(r, SplitOne(vol, r)) {
				return
			}
		}
	}
}

// LargestConnectedComponent returns a volume marking the largest
// 6-connected component of the foreground (non-zero) voxels with ones.
// It returns ErrEmptyVolume when no foreground voxel exists.
func LargestConnectedComponent(vol *models.Volume) (*models.Volume, error) {
	nx, ny, nz := 1, 1, 1
	if len(vol.Dim) > 0 {
		nx = vol.Dim[0]
	}
	if len(vol.Dim) > 1 {
		ny = vol.Dim[1]
	}
	if len(vol.Dim) > 2 {
		nz = vol.Dim[2]
	}

	idx := func(x, y, z int) int { return x + nx*(y+ny*z) }

	visited := make([]bool, len(vol.Data))
	var best []int

	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				i := idx(x, y, z)
				if visited[i] || vol.Data[i] == 0 {
					continue
				}
				// breadth-first flood fill over face neighbors
				comp := []int{i}
				queue := [][3]int{{x, y, z}}
				visited[i] = true
				for len(queue) > 0 {
					p := queue[0]
					queue = queue[1:]
					for _, d := range [][3]int{
						{1, 0, 0}, {-1, 0, 0},
						{0, 1, 0}, {0, -1, 0},
						{0, 0, 1}, {0, 0, -1},
					} {
						qx, qy, qz := p[0]+d[0], p[1]+d[1], p[2]+d[2]
						if qx < 0 || qx >= nx || qy < 0 || qy >= ny || qz < 0 || qz >= nz {
							continue
						}
						j := idx(qx, qy, qz)
						if visited[j] || vol.Data[j] == 0 {
							continue
						}
						visited[j] = true
						comp = append(comp, j)
						queue = append(queue, [3]int{qx, qy, qz})
					}
				}
				if len(comp) > len(best) {
					best = comp
				}
			}
		}
	}

	if len(best) == 0 {
		return nil, ErrEmptyVolume
	}
	out := vol.ZerosLike()
	for _, i := range best {
		out.Data[i] = 1
	}
	return out, nil
}
