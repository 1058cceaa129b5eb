package nifti

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/gzip"

	"niftisplit/internal/models"
)

// Load reads a NIfTI-1 volume from path. Gzip-compressed files (.nii.gz)
// are detected by their magic bytes regardless of extension. The voxel
// payload is decoded to float64; raw values are kept as stored, without
// applying scl_slope/scl_inter, so label codes survive a round trip.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, ErrBadFormat)
	}

	var r io.Reader = br
	if magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	img, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return img, nil
}

// Decode reads a single-file NIfTI-1 image from an uncompressed stream.
func Decode(r io.Reader) (*Image, error) {
	hdrBytes := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, hdrBytes); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", ErrBadFormat, err)
	}

	order, err := detectByteOrder(hdrBytes)
	if err != nil {
		return nil, err
	}

	var hdr Header
	if err := binary.Read(bytes.NewReader(hdrBytes), order, &hdr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if err := hdr.validate(); err != nil {
		return nil, err
	}

	voxOffset := int(hdr.VoxOffset)
	if voxOffset < HeaderSize {
		return nil, fmt.Errorf("%w: vox_offset %d precedes header end", ErrBadFormat, voxOffset)
	}
	prefix := make([]byte, voxOffset)
	copy(prefix, hdrBytes)
	if _, err := io.ReadFull(r, prefix[HeaderSize:]); err != nil {
		return nil, fmt.Errorf("%w: truncated before vox_offset: %v", ErrBadFormat, err)
	}

	bp, err := bitpix(hdr.Datatype)
	if err != nil {
		return nil, err
	}
	n := hdr.NumVoxels()
	raw := make([]byte, n*int(bp)/8)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("%w: truncated voxel data: %v", ErrBadFormat, err)
	}

	data, err := decodeVoxels(raw, hdr.Datatype, order)
	if err != nil {
		return nil, err
	}

	return &Image{
		Volume: &models.Volume{
			Data:     data,
			Dim:      hdr.Dims(),
			Datatype: hdr.Datatype,
		},
		Hdr:       hdr,
		ByteOrder: order,
		prefix:    prefix,
	}, nil
}

// detectByteOrder uses the sizeof_hdr sentinel: it reads 348 only in the
// byte order the file was written with.
func detectByteOrder(hdrBytes []byte) (binary.ByteOrder, error) {
	if binary.LittleEndian.Uint32(hdrBytes[:4]) == HeaderSize {
		return binary.LittleEndian, nil
	}
	if binary.BigEndian.Uint32(hdrBytes[:4]) == HeaderSize {
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("%w: sizeof_hdr is not %d in either byte order", ErrBadFormat, HeaderSize)
}

func decodeVoxels(raw []byte, datatype int16, order binary.ByteOrder) ([]float64, error) {
	bp, err := bitpix(datatype)
	if err != nil {
		return nil, err
	}
	stride := int(bp) / 8
	data := make([]float64, len(raw)/stride)

	switch datatype {
	case DTUint8:
		for i := range data {
			data[i] = float64(raw[i])
		}
	case DTInt8:
		for i := range data {
			data[i] = float64(int8(raw[i]))
		}
	case DTInt16:
		for i := range data {
			data[i] = float64(int16(order.Uint16(raw[i*2:])))
		}
	case DTUint16:
		for i := range data {
			data[i] = float64(order.Uint16(raw[i*2:]))
		}
	case DTInt32:
		for i := range data {
			data[i] = float64(int32(order.Uint32(raw[i*4:])))
		}
	case DTUint32:
		for i := range data {
			data[i] = float64(order.Uint32(raw[i*4:]))
		}
	case DTInt64:
		for i := range data {
			data[i] = float64(int64(order.Uint64(raw[i*8:])))
		}
	case DTUint64:
		for i := range data {
			data[i] = float64(order.Uint64(raw[i*8:]))
		}
	case DTFloat32:
		for i := range data {
			data[i] = float64(math.Float32frombits(order.Uint32(raw[i*4:])))
		}
	case DTFloat64:
		for i := range data {
			data[i] = math.Float64frombits(order.Uint64(raw[i*8:]))
		}
	default:
		return nil, fmt.Errorf("%w: datatype code %d", ErrUnsupportedDatatype, datatype)
	}
	return data, nil
}
