package settings

import (
	"testing"

	"github.com/tiko09/ledctrl/internal/animation"
)

func ptrF(v float64) *float64 { return &v }
func ptrB(v bool) *bool       { return &v }
func ptrS(v string) *string   { return &v }
func ptrI(v int) *int         { return &v }

func TestApplyMergesOnlyNonNilFields(t *testing.T) {
	store := NewStore(DefaultState())
	original := store.Get()

	next := store.Apply(Patch{Brightness: ptrF(0.5)})
	if next.Animation.GlobalBrightness != 0.5 {
		t.Fatalf("GlobalBrightness = %v, want 0.5", next.Animation.GlobalBrightness)
	}
	if next.Animation.GlobalSaturation != original.Animation.GlobalSaturation {
		t.Fatal("untouched field GlobalSaturation should be unchanged")
	}
}

func TestApplyGroupPatchTargetsByIndex(t *testing.T) {
	state := DefaultState()
	state.Animation.Groups = []animation.Group{
		{Start: 0, End: 10, PatternID: 0, Speed: 1, Scale: 1, Brightness: 1, Saturation: 1},
		{Start: 10, End: 20, PatternID: 1, Speed: 1, Scale: 1, Brightness: 1, Saturation: 1},
	}
	store := NewStore(state)

	next := store.Apply(Patch{Groups: []GroupPatch{{Index: 1, Speed: ptrF(2.0)}}})
	if next.Animation.Groups[1].Speed != 2.0 {
		t.Fatalf("group 1 speed = %v, want 2.0", next.Animation.Groups[1].Speed)
	}
	if next.Animation.Groups[0].Speed != 1.0 {
		t.Fatal("group 0 should be untouched by a patch targeting group 1")
	}
}

func TestApplyGroupPatchIgnoresOutOfRangeIndex(t *testing.T) {
	state := DefaultState()
	state.Animation.Groups = []animation.Group{{Start: 0, End: 4, Speed: 1}}
	store := NewStore(state)

	next := store.Apply(Patch{Groups: []GroupPatch{{Index: 5, Speed: ptrF(9)}}})
	if next.Animation.Groups[0].Speed != 1 {
		t.Fatal("out-of-range group index should be dropped silently")
	}
}

func TestApplyArtNetFields(t *testing.T) {
	store := NewStore(DefaultState())
	next := store.Apply(Patch{
		EnableArtNet:             ptrB(true),
		ArtNetGroupSize:          ptrI(3),
		ArtNetFrameInterpolation: ptrS("lerp"),
		ArtNetSpatialSmoothing:   ptrS("gaussian"),
	})
	if !next.EnableArtNet {
		t.Fatal("EnableArtNet should be true")
	}
	if next.ArtNet.GroupSize != 3 {
		t.Fatalf("GroupSize = %d, want 3", next.ArtNet.GroupSize)
	}
}

func TestOnChangeFiresAfterApply(t *testing.T) {
	store := NewStore(DefaultState())
	var seen State
	calls := 0
	store.OnChange(func(s State) {
		seen = s
		calls++
	})
	store.Apply(Patch{Brightness: ptrF(0.25)})
	if calls != 1 {
		t.Fatalf("listener called %d times, want 1", calls)
	}
	if seen.Animation.GlobalBrightness != 0.25 {
		t.Fatalf("listener saw GlobalBrightness = %v, want 0.25", seen.Animation.GlobalBrightness)
	}
}
