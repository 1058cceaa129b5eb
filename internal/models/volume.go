package models

// Volume represents a labeled volumetric image held in memory.
type Volume struct {
	// Data is the voxel buffer as a 1D array in row-major order
	// (first axis fastest). Voxels are carried as float64 regardless of
	// the on-disk encoding: every supported integer label type up to 32
	// bits (and int64 labels below 2^53) is represented exactly, so
	// label comparisons are exact equality with no epsilon.
	Data []float64

	// Dim holds the extent of each axis, e.g. [x, y, z] for a 3D atlas.
	Dim []int

	// Datatype is the on-disk NIfTI datatype code of the source file,
	// kept so derived volumes are written back with the same encoding.
	Datatype int16
}

// NumVoxels returns the number of voxels implied by Dim.
// A volume with no axes or a zero-length axis has zero voxels.
func (v *Volume) NumVoxels() int {
	if len(v.Dim) == 0 {
		return 0
	}
	n := 1
	for _, d := range v.Dim {
		n *= d
	}
	return n
}

// Clone returns a deep copy of the volume. The returned volume shares no
// storage with the receiver.
func (v *Volume) Clone() *Volume {
	out := v.ZerosLike()
	copy(out.Data, v.Data)
	return out
}

// ZerosLike returns a new zero-filled volume with the same shape and
// datatype as the receiver.
func (v *Volume) ZerosLike() *Volume {
	return &Volume{
		Data:     make([]float64, len(v.Data)),
		Dim:      append([]int(nil), v.Dim...),
		Datatype: v.Datatype,
	}
}

// SameShape reports whether the two volumes have identical dimensions.
func (v *Volume) SameShape(other *Volume) bool {
	if len(v.Dim) != len(other.Dim) {
		return false
	}
	for i, d := range v.Dim {
		if other.Dim[i] != d {
			return false
		}
	}
	return true
}

// Equal reports whether the two volumes have identical shape and
// bitwise-identical voxel buffers.
func (v *Volume) Equal(other *Volume) bool {
	if !v.SameShape(other) || len(v.Data) != len(other.Data) {
		return false
	}
	for i, x := range v.Data {
		if other.Data[i] != x {
			return false
		}
	}
	return true
}
