// Package nifti reads and writes NIfTI-1 volumes.
//
// Field layout follows the official definition of the nifti1 header,
// https://nifti.nimh.nih.gov/pub/dist/src/niftilib/nifti1.h
package nifti

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// HeaderSize is the fixed on-disk size of a NIfTI-1 header.
const HeaderSize = 348

// NIfTI-1 datatype codes for the voxel encodings this package supports.
const (
	DTUint8   int16 = 2
	DTInt16   int16 = 4
	DTInt32   int16 = 8
	DTFloat32 int16 = 16
	DTFloat64 int16 = 64
	DTInt8    int16 = 256
	DTUint16  int16 = 512
	DTUint32  int16 = 768
	DTInt64   int16 = 1024
	DTUint64  int16 = 1280
)

// Header defines the structure of the NIfTI-1 header.
type Header struct {
	SizeofHdr          int32      // Must be 348
	UnusedDataType     [10]byte   // Unused
	UnusedDbName       [18]byte   // Unused
	UnusedExtents      int32      // Unused
	UnusedSessionError int16      // Unused
	UnusedRegular      byte       // Unused
	DimInfo            byte       // MRI slice ordering
	Dim                [8]int16   // Data array dimensions
	IntentP1           float32    // 1st intent parameter
	IntentP2           float32    // 2nd intent parameter
	IntentP3           float32    // 3rd intent parameter
	IntentCode         int16      // NIFTI_INTENT_* code
	Datatype           int16      // Defines data type
	Bitpix             int16      // Number of bits per voxel
	SliceStart         int16      // First slice index
	Pixdim             [8]float32 // Grid spacing
	VoxOffset          float32    // Offset into .nii file
	SclSlope           float32    // Data scaling: slope
	SclInter           float32    // Data scaling: offset
	SliceEnd           int16      // Last slice index
	SliceCode          byte       // Slice timing order
	XyztUnits          byte       // Units of pixdim[1..4]
	CalMax             float32    // Max display intensity
	CalMin             float32    // Min display intensity
	SliceDuration      float32    // Time for one slice
	Toffset            float32    // Time axis shift
	UnusedGlmax        int32      // Unused
	UnusedGlmin        int32      // Unused
	Descrip            [80]byte   // Free-form description
	AuxFile            [24]byte   // Auxiliary filename
	QformCode          int16      // NIFTI_XFORM_* code
	SformCode          int16      // NIFTI_XFORM_* code
	QuaternB           float32    // Quaternion b param
	QuaternC           float32    // Quaternion c param
	QuaternD           float32    // Quaternion d param
	QoffsetX           float32    // Quaternion x shift
	QoffsetY           float32    // Quaternion y shift
	QoffsetZ           float32    // Quaternion z shift
	SrowX              [4]float32 // 1st row affine transform
	SrowY              [4]float32 // 2nd row affine transform
	SrowZ              [4]float32 // 3rd row affine transform
	IntentName         [16]byte   // Meaning of the data
	Magic              [4]byte    // Must be "ni1\0" or "n+1\0"
}

// Dims returns the image dimensions declared by the header, e.g. [x y z]
// for a 3D volume.
func (h *Header) Dims() []int {
	n := int(h.Dim[0])
	if n < 0 {
		n = 0
	}
	if n > 7 {
		n = 7
	}
	dims := make([]int, n)
	for i := 0; i < n; i++ {
		dims[i] = int(h.Dim[i+1])
	}
	return dims
}

// NumVoxels returns the voxel count implied by the header dimensions.
func (h *Header) NumVoxels() int {
	dims := h.Dims()
	if len(dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

func (h *Header) validate() error {
	if h.SizeofHdr != HeaderSize {
		return fmt.Errorf("%w: sizeof_hdr is %d, want %d", ErrBadFormat, h.SizeofHdr, HeaderSize)
	}
	switch string(h.Magic[:3]) {
	case "n+1":
		// single-file .nii
	case "ni1":
		return fmt.Errorf("%w: detached .hdr/.img pairs are not supported", ErrBadFormat)
	default:
		return fmt.Errorf("%w: bad magic %q", ErrBadFormat, h.Magic[:])
	}
	if h.Dim[0] < 1 || h.Dim[0] > 7 {
		return fmt.Errorf("%w: dim[0] is %d, want 1..7", ErrBadFormat, h.Dim[0])
	}
	for i := int16(1); i <= h.Dim[0]; i++ {
		if h.Dim[i] < 0 {
			return fmt.Errorf("%w: dim[%d] is negative", ErrBadFormat, i)
		}
	}
	bp, err := bitpix(h.Datatype)
	if err != nil {
		return err
	}
	if h.Bitpix != bp {
		return fmt.Errorf("%w: bitpix %d does not match datatype %d", ErrBadFormat, h.Bitpix, h.Datatype)
	}
	return nil
}

// bitpix returns the bits-per-voxel for a supported datatype code.
func bitpix(datatype int16) (int16, error) {
	switch datatype {
	case DTUint8, DTInt8:
		return 8, nil
	case DTInt16, DTUint16:
		return 16, nil
	case DTInt32, DTUint32, DTFloat32:
		return 32, nil
	case DTInt64, DTUint64, DTFloat64:
		return 64, nil
	}
	return 0, fmt.Errorf("%w: datatype code %d", ErrUnsupportedDatatype, datatype)
}

// Affine returns the 4x4 voxel-to-world transform declared by the header.
// The sform rows win when sform_code > 0, then the qform quaternion, then
// plain pixdim scaling, matching the precedence in nifti1.h.
func (h *Header) Affine() *mat.Dense {
	if h.SformCode > 0 {
		return mat.NewDense(4, 4, []float64{
			float64(h.SrowX[0]), float64(h.SrowX[1]), float64(h.SrowX[2]), float64(h.SrowX[3]),
			float64(h.SrowY[0]), float64(h.SrowY[1]), float64(h.SrowY[2]), float64(h.SrowY[3]),
			float64(h.SrowZ[0]), float64(h.SrowZ[1]), float64(h.SrowZ[2]), float64(h.SrowZ[3]),
			0, 0, 0, 1,
		})
	}
	if h.QformCode > 0 {
		return h.qformAffine()
	}
	a := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		a.Set(i, i, float64(h.Pixdim[i+1]))
	}
	a.Set(3, 3, 1)
	return a
}

func (h *Header) qformAffine() *mat.Dense {
	b := float64(h.QuaternB)
	c := float64(h.QuaternC)
	d := float64(h.QuaternD)
	a := 1.0 - b*b - c*c - d*d
	if a < 1e-7 {
		// special case in nifti1.h: a is zero, normalize (b,c,d)
		n := math.Sqrt(b*b + c*c + d*d)
		b, c, d = b/n, c/n, d/n
		a = 0
	} else {
		a = math.Sqrt(a)
	}

	r := [3][3]float64{
		{a*a + b*b - c*c - d*d, 2*b*c - 2*a*d, 2*b*d + 2*a*c},
		{2*b*c + 2*a*d, a*a + c*c - b*b - d*d, 2*c*d - 2*a*b},
		{2*b*d - 2*a*c, 2*c*d + 2*a*b, a*a + d*d - b*b - c*c},
	}

	qfac := 1.0
	if h.Pixdim[0] < 0 {
		qfac = -1
	}
	scale := [3]float64{float64(h.Pixdim[1]), float64(h.Pixdim[2]), float64(h.Pixdim[3]) * qfac}
	offset := [3]float64{float64(h.QoffsetX), float64(h.QoffsetY), float64(h.QoffsetZ)}

	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, r[i][j]*scale[j])
		}
		m.Set(i, 3, offset[i])
	}
	m.Set(3, 3, 1)
	return m
}
