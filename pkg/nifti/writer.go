package nifti

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Save writes img to path, gzip-compressing when the path ends in .gz.
func Save(path string, img *Image) error {
	return SaveLevel(path, img, gzip.DefaultCompression)
}

// SaveLevel is Save with an explicit gzip compression level.
func SaveLevel(path string, img *Image, gzipLevel int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz, err = gzip.NewWriterLevel(f, gzipLevel)
		if err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		w = gz
	}

	bw := bufio.NewWriter(w)
	if err := Encode(bw, img); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return f.Close()
}

// Encode writes the image to w uncompressed: the retained header bytes
// verbatim, then the voxel payload re-encoded to the image's datatype
// and byte order.
func Encode(w io.Writer, img *Image) error {
	if img.NumVoxels() != len(img.Data) {
		return fmt.Errorf("volume has %d voxels but dims %v imply %d", len(img.Data), img.Dim, img.NumVoxels())
	}
	if _, err := w.Write(img.prefix); err != nil {
		return err
	}
	raw, err := encodeVoxels(img.Data, img.Datatype, img.ByteOrder)
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	return err
}

func encodeVoxels(data []float64, datatype int16, order binary.ByteOrder) ([]byte, error) {
	bp, err := bitpix(datatype)
	if err != nil {
		return nil, err
	}
	stride := int(bp) / 8
	raw := make([]byte, len(data)*stride)

	switch datatype {
	case DTUint8:
		for i, v := range data {
			raw[i] = uint8(v)
		}
	case DTInt8:
		for i, v := range data {
			raw[i] = byte(int8(v))
		}
	case DTInt16:
		for i, v := range data {
			order.PutUint16(raw[i*2:], uint16(int16(v)))
		}
	case DTUint16:
		for i, v := range data {
			order.PutUint16(raw[i*2:], uint16(v))
		}
	case DTInt32:
		for i, v := range data {
			order.PutUint32(raw[i*4:], uint32(int32(v)))
		}
	case DTUint32:
		for i, v := range data {
			order.PutUint32(raw[i*4:], uint32(v))
		}
	case DTInt64:
		for i, v := range data {
			order.PutUint64(raw[i*8:], uint64(int64(v)))
		}
	case DTUint64:
		for i, v := range data {
			order.PutUint64(raw[i*8:], uint64(v))
		}
	case DTFloat32:
		for i, v := range data {
			order.PutUint32(raw[i*4:], math.Float32bits(float32(v)))
		}
	case DTFloat64:
		for i, v := range data {
			order.PutUint64(raw[i*8:], math.Float64bits(v))
		}
	default:
		return nil, fmt.Errorf("%w: datatype code %d", ErrUnsupportedDatatype, datatype)
	}
	return raw, nil
}
