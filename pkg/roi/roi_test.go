package roi

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"niftisplit/internal/models"
)

// atlasVolume builds the (4,4,1) worked example: two square regions
// labeled 1 and 2 on a zero background.
func atlasVolume() *models.Volume {
	return &models.Volume{
		Data: []float64{
			1, 1, 0, 0,
			1, 1, 0, 2,
			0, 0, 2, 2,
			0, 0, 2, 2,
		},
		Dim:      []int{4, 4, 1},
		Datatype: 4,
	}
}

func TestLabels(t *testing.T) {
	vol := atlasVolume()
	got := Labels(vol, 0)
	if diff := cmp.Diff([]float64{1, 2}, got); diff != "" {
		t.Errorf("Labels mismatch (-want +got):\n%s", diff)
	}
}

func TestLabelsSortedAscending(t *testing.T) {
	vol := &models.Volume{
		Data: []float64{9, 3, 0, 7, 3, 9},
		Dim:  []int{6},
	}
	got := Labels(vol, 0)
	if diff := cmp.Diff([]float64{3, 7, 9}, got); diff != "" {
		t.Errorf("Labels mismatch (-want +got):\n%s", diff)
	}
}

func TestLabelsBackgroundOnly(t *testing.T) {
	vol := &models.Volume{Data: make([]float64, 8), Dim: []int{2, 2, 2}}
	if got := Labels(vol, 0); len(got) != 0 {
		t.Errorf("expected no labels, got %v", got)
	}
}

func TestLabelsCustomBackground(t *testing.T) {
	vol := &models.Volume{Data: []float64{5, 5, 1, 2}, Dim: []int{4}}
	got := Labels(vol, 5)
	if diff := cmp.Diff([]float64{1, 2}, got); diff != "" {
		t.Errorf("Labels mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitWorkedExample(t *testing.T) {
	vol := atlasVolume()
	want := map[float64][]float64{
		1: {
			1, 1, 0, 0,
			1, 1, 0, 0,
			0, 0, 0, 0,
			0, 0, 0, 0,
		},
		2: {
			0, 0, 0, 0,
			0, 0, 0, 2,
			0, 0, 2, 2,
			0, 0, 2, 2,
		},
	}

	count := 0
	for label, out := range Split(vol, Labels(vol, 0)) {
		count++
		if diff := cmp.Diff(want[label], out.Data); diff != "" {
			t.Errorf("label %v data mismatch (-want +got):\n%s", label, diff)
		}
		if !out.SameShape(vol) {
			t.Errorf("label %v shape %v, want %v", label, out.Dim, vol.Dim)
		}
		if out.Datatype != vol.Datatype {
			t.Errorf("label %v datatype %d, want %d", label, out.Datatype, vol.Datatype)
		}
	}
	if count != 2 {
		t.Errorf("expected 2 rois, got %d", count)
	}
}

func TestSplitDoesNotMutateSource(t *testing.T) {
	vol := atlasVolume()
	orig := vol.Clone()

	for _, out := range Split(vol, Labels(vol, 0)) {
		// scribbling on the output must not reach the source
		for i := range out.Data {
			out.Data[i] = -1
		}
	}
	if !vol.Equal(orig) {
		t.Error("source volume was mutated by Split")
	}
}

func TestSplitCompletenessAndDisjointness(t *testing.T) {
	vol := &models.Volume{
		Data: []float64{
			0, 1, 2, 3,
			3, 2, 1, 0,
			7, 7, 0, 1,
			2, 0, 3, 7,
		},
		Dim: []int{4, 4},
	}
	labels := Labels(vol, 0)

	sum := vol.ZerosLike()
	nonZero := make([]int, len(vol.Data))
	for _, out := range Split(vol, labels) {
		for i, v := range out.Data {
			if v != 0 {
				sum.Data[i] += v
				nonZero[i]++
			}
		}
	}

	// summed outputs reconstruct the foreground exactly
	if diff := cmp.Diff(vol.Data, sum.Data); diff != "" {
		t.Errorf("sum of rois does not reconstruct source (-want +got):\n%s", diff)
	}
	// no voxel position is non-zero in more than one output
	for i, n := range nonZero {
		if n > 1 {
			t.Errorf("voxel %d is non-zero in %d rois", i, n)
		}
		if n == 1 && vol.Data[i] == 0 {
			t.Errorf("background voxel %d appears in an roi", i)
		}
	}
}

func TestSplitIdempotent(t *testing.T) {
	vol := atlasVolume()
	labels := Labels(vol, 0)

	first := make(map[float64]*models.Volume)
	for label, out := range Split(vol, labels) {
		first[label] = out
	}
	// the sequence is restartable: a second pass reproduces it bitwise
	for label, out := range Split(vol, labels) {
		if !out.Equal(first[label]) {
			t.Errorf("label %v differs between runs", label)
		}
	}
}

func TestSplitEarlyStop(t *testing.T) {
	vol := atlasVolume()
	count := 0
	for range Split(vol, Labels(vol, 0)) {
		count++
		break
	}
	if count != 1 {
		t.Errorf("expected a single yield before break, got %d", count)
	}
}

func TestSplitDegenerateVolume(t *testing.T) {
	vol := &models.Volume{Data: nil, Dim: []int{0, 4, 1}}
	labels := Labels(vol, 0)
	if len(labels) != 0 {
		t.Fatalf("expected no labels in empty volume, got %v", labels)
	}
	for range Split(vol, labels) {
		t.Fatal("expected no rois for an empty volume")
	}

	out := SplitOne(vol, 1)
	if !out.SameShape(vol) || len(out.Data) != 0 {
		t.Errorf("degenerate split changed shape: %v", out.Dim)
	}
}

func TestSplitOneNoAliasing(t *testing.T) {
	vol := atlasVolume()
	a := SplitOne(vol, 1)
	b := SplitOne(vol, 1)
	a.Data[0] = 99
	if b.Data[0] == 99 {
		t.Error("outputs alias each other")
	}
	if vol.Data[0] == 99 {
		t.Error("output aliases the source")
	}
}

func TestLargestConnectedComponent(t *testing.T) {
	cube := func() *models.Volume {
		return &models.Volume{Data: make([]float64, 6*6*6), Dim: []int{6, 6, 6}}
	}
	set := func(vol *models.Volume, x, y, z int, v float64) {
		vol.Data[x+6*(y+6*z)] = v
	}

	empty := cube()
	if _, err := LargestConnectedComponent(empty); !errors.Is(err, ErrEmptyVolume) {
		t.Fatalf("expected ErrEmptyVolume, got %v", err)
	}

	a := cube()
	for z := 1; z < 3; z++ {
		for y := 1; y < 3; y++ {
			for x := 1; x < 3; x++ {
				set(a, x, y, z, 1)
			}
		}
	}
	got, err := LargestConnectedComponent(a)
	if err != nil {
		t.Fatalf("LargestConnectedComponent: %v", err)
	}
	if !got.Equal(a) {
		t.Error("single component should be returned unchanged")
	}

	// an isolated voxel must lose to the 2x2x2 block
	b := a.Clone()
	set(b, 5, 5, 5, 1)
	got, err = LargestConnectedComponent(b)
	if err != nil {
		t.Fatalf("LargestConnectedComponent: %v", err)
	}
	if !got.Equal(a) {
		t.Error("largest component should exclude the isolated voxel")
	}
}
