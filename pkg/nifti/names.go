package nifti

import (
	"path/filepath"
	"strings"
)

// Ext returns the extension of path including compound neuroimaging
// suffixes, so "atlas.nii.gz" yields ".nii.gz" rather than ".gz".
func Ext(path string) string {
	ext := filepath.Ext(path)
	if ext == ".gz" || ext == ".bz2" {
		inner := filepath.Ext(strings.TrimSuffix(path, ext))
		ext = inner + ext
	}
	return ext
}
