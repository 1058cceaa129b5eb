package nifti

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"niftisplit/internal/models"
)

// Sentinel errors returned by the reader.
var (
	// ErrBadFormat marks files that are not readable NIfTI-1 images.
	ErrBadFormat = errors.New("not a valid NIfTI-1 file")

	// ErrUnsupportedDatatype marks voxel encodings this package cannot decode.
	ErrUnsupportedDatatype = errors.New("unsupported NIfTI datatype")
)

// Image is a loaded NIfTI-1 volume: the voxel data plus the spatial
// metadata needed to write derived volumes back out unchanged.
type Image struct {
	*models.Volume

	// Hdr is the parsed header, for inspection.
	Hdr Header

	// ByteOrder is the byte order the source file was written in.
	// Derived volumes are written back in the same order.
	ByteOrder binary.ByteOrder

	// prefix holds the raw file bytes from the start of the file through
	// vox_offset (header plus any extensions). Writing it back verbatim
	// guarantees outputs carry the exact header of the source.
	prefix []byte

	affine *mat.Dense
}

// Affine returns the 4x4 voxel-to-world transform of the image.
func (img *Image) Affine() *mat.Dense {
	if img.affine == nil {
		img.affine = img.Hdr.Affine()
	}
	return img.affine
}

// HeaderBytes returns a copy of the raw header bytes (everything before
// the voxel payload) as they appeared in the source file.
func (img *Image) HeaderBytes() []byte {
	return append([]byte(nil), img.prefix...)
}

// WithData returns an image that carries vol as its voxel data while
// sharing the receiver's header, affine, and byte order. The volume must
// have the same shape as the receiver's.
func (img *Image) WithData(vol *models.Volume) (*Image, error) {
	if !vol.SameShape(img.Volume) {
		return nil, fmt.Errorf("volume shape %v does not match image shape %v", vol.Dim, img.Dim)
	}
	return &Image{
		Volume:    vol,
		Hdr:       img.Hdr,
		ByteOrder: img.ByteOrder,
		prefix:    img.prefix,
		affine:    img.affine,
	}, nil
}

// NewImage builds a single-file NIfTI-1 image around vol. If affine is
// nil the identity transform is used. A zero vol.Datatype defaults to
// float64 voxels.
func NewImage(vol *models.Volume, affine *mat.Dense) (*Image, error) {
	if vol.NumVoxels() != len(vol.Data) {
		return nil, fmt.Errorf("volume has %d voxels but dims %v imply %d", len(vol.Data), vol.Dim, vol.NumVoxels())
	}
	if len(vol.Dim) < 1 || len(vol.Dim) > 7 {
		return nil, fmt.Errorf("volume must have 1 to 7 dimensions, got %d", len(vol.Dim))
	}
	if vol.Datatype == 0 {
		vol.Datatype = DTFloat64
	}
	bp, err := bitpix(vol.Datatype)
	if err != nil {
		return nil, err
	}

	var hdr Header
	hdr.SizeofHdr = HeaderSize
	hdr.Dim[0] = int16(len(vol.Dim))
	for i := range hdr.Dim[1:] {
		hdr.Dim[i+1] = 1
	}
	for i, d := range vol.Dim {
		hdr.Dim[i+1] = int16(d)
	}
	hdr.Datatype = vol.Datatype
	hdr.Bitpix = bp
	hdr.Pixdim[0] = 1
	hdr.Pixdim[1], hdr.Pixdim[2], hdr.Pixdim[3] = 1, 1, 1
	hdr.VoxOffset = float32(HeaderSize + 4)
	hdr.SclSlope = 1
	copy(hdr.Magic[:], "n+1\x00")

	if affine == nil {
		affine = mat.NewDense(4, 4, nil)
		for i := 0; i < 4; i++ {
			affine.Set(i, i, 1)
		}
	}
	hdr.SformCode = 1
	for j := 0; j < 4; j++ {
		hdr.SrowX[j] = float32(affine.At(0, j))
		hdr.SrowY[j] = float32(affine.At(1, j))
		hdr.SrowZ[j] = float32(affine.At(2, j))
	}

	order := binary.LittleEndian
	var buf bytes.Buffer
	if err := binary.Write(&buf, order, &hdr); err != nil {
		return nil, fmt.Errorf("marshaling header: %w", err)
	}
	// four-byte extension indicator, all zero: no extensions
	buf.Write([]byte{0, 0, 0, 0})

	return &Image{
		Volume:    vol,
		Hdr:       hdr,
		ByteOrder: order,
		prefix:    buf.Bytes(),
		affine:    affine,
	}, nil
}
