// Package splitter runs the atlas-splitting pipeline: load a labeled
// NIfTI volume, enumerate its ROI labels, and write one masked volume
// per label reusing the source's spatial metadata.
package splitter

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/edaniels/golog"

	"niftisplit/pkg/nifti"
	"niftisplit/pkg/roi"
)

// Params holds the splitting parameters.
type Params struct {
	// InputPath is the labeled NIfTI atlas to split.
	InputPath string

	// OutputBase is the path prefix for output files. Each ROI is written
	// to <OutputBase>_roi_<label><ext> where <ext> is the input's
	// extension, compound suffixes included.
	OutputBase string

	// Labels optionally restricts the run to the given label values.
	// When nil, every non-background label present in the atlas is used.
	Labels []float64

	// Background is the label value treated as background and excluded
	// from enumeration. Conventionally zero.
	Background float64

	// PadWidth is the minimum width labels are zero-padded to in output
	// file names. Values below 3 are raised to 3; wider labels are never
	// truncated.
	PadWidth int

	// GzipLevel is the compression level for .gz outputs. The zero value
	// is gzip.NoCompression; pass gzip.DefaultCompression for the
	// library default.
	GzipLevel int
}

// Results describes a completed run.
type Results struct {
	// Labels are the label values that were split, ascending.
	Labels []float64

	// Files are the output paths written, one per label, in label order.
	Files []string
}

// Splitter splits one labeled atlas into per-ROI volumes.
type Splitter struct {
	params  *Params
	logger  golog.Logger
	results Results
}

// New creates a splitter for the given parameters. The parameters are
// copied; the caller's struct is never modified.
func New(params *Params, logger golog.Logger) *Splitter {
	p := *params
	if p.PadWidth < 3 {
		p.PadWidth = 3
	}
	return &Splitter{params: &p, logger: logger}
}

// Process runs the pipeline. The source file is never modified; every
// output file carries the source's header and affine unchanged. A write
// failure aborts the run and reports the label whose output failed.
func (s *Splitter) Process() error {
	img, err := nifti.Load(s.params.InputPath)
	if err != nil {
		return fmt.Errorf("loading atlas: %w", err)
	}
	s.logger.Infof("loaded %s: dims %v, datatype %d", s.params.InputPath, img.Dim, img.Datatype)

	labels := s.params.Labels
	if labels == nil {
		labels = roi.Labels(img.Volume, s.params.Background)
	} else {
		labels = append([]float64(nil), labels...)
		sort.Float64s(labels)
	}
	s.results.Labels = labels
	if len(labels) == 0 {
		s.logger.Infof("no foreground labels found, nothing to write")
		return nil
	}
	s.logger.Infof("splitting %d rois", len(labels))

	if dir := filepath.Dir(s.params.OutputBase); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	ext := nifti.Ext(s.params.InputPath)
	for label, vol := range roi.Split(img.Volume, labels) {
		out, err := img.WithData(vol)
		if err != nil {
			return fmt.Errorf("roi %s: %w", formatLabel(label, s.params.PadWidth), err)
		}
		path := s.outputName(label, ext)
		if err := nifti.SaveLevel(path, out, s.params.GzipLevel); err != nil {
			return fmt.Errorf("writing roi for label %s: %w", formatLabel(label, s.params.PadWidth), err)
		}
		s.logger.Debugf("wrote %s", path)
		s.results.Files = append(s.results.Files, path)
	}

	s.logger.Infof("wrote %d roi volumes", len(s.results.Files))
	return nil
}

// Results returns the labels and files of the last Process run.
func (s *Splitter) Results() Results {
	return s.results
}

func (s *Splitter) outputName(label float64, ext string) string {
	return fmt.Sprintf("%s_roi_%s%s", s.params.OutputBase, formatLabel(label, s.params.PadWidth), ext)
}

// formatLabel renders a label for file naming: integral labels as
// zero-padded decimal, anything else via %g.
func formatLabel(label float64, padWidth int) string {
	if label == math.Trunc(label) && !math.IsInf(label, 0) {
		return fmt.Sprintf("%0*d", padWidth, int64(label))
	}
	return fmt.Sprintf("%g", label)
}
