package strip

import (
	"testing"

	"github.com/tiko09/ledctrl/internal/color"
)

type fakeTransport struct {
	rendered [][]byte
	closed   bool
}

func (f *fakeTransport) Render(buf []byte) error {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	f.rendered = append(f.rendered, cp)
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func TestClearThenCommitZeroesWire(t *testing.T) {
	tr := &fakeTransport{}
	s := New(4, OrderGRBW, tr)
	s.SetPixel(0, color.Pack(1, 2, 3, 4))
	s.Clear()
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got := tr.rendered[0]
	for i, b := range got {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0 after clear", i, b)
		}
	}
}

func TestSetPixelOutOfRangeIgnored(t *testing.T) {
	s := New(2, OrderRGB, nil)
	s.SetPixel(5, color.Pack(1, 2, 3, 0))
	s.SetPixel(-1, color.Pack(1, 2, 3, 0))
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestSetPixelChannelReorder(t *testing.T) {
	tr := &fakeTransport{}
	s := New(1, OrderBGR, tr)
	s.SetPixel(0, color.Pack(10, 20, 30, 0))
	s.Commit()
	got := tr.rendered[0]
	want := []byte{30, 20, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("BGR reorder = %v, want %v", got, want)
		}
	}
}

func TestSetBulkBytesDiscardsPartialTrailingPixel(t *testing.T) {
	s := New(3, OrderRGB, nil)
	data := []byte{1, 2, 3, 4, 5, 6, 7} // 2 full RGB pixels + 1 stray byte
	s.SetBulkBytes(data, 0)
	if s.buf[0] != 1 || s.buf[1] != 2 || s.buf[2] != 3 {
		t.Fatalf("pixel 0 = %v, want [1 2 3]", s.buf[0:3])
	}
	if s.buf[3] != 4 || s.buf[4] != 5 || s.buf[5] != 6 {
		t.Fatalf("pixel 1 = %v, want [4 5 6]", s.buf[3:6])
	}
	if s.buf[6] != 0 {
		t.Fatalf("pixel 2 byte 0 = %d, want untouched 0 (partial trailing discarded)", s.buf[6])
	}
}

func TestSetRangeAppliesConversion(t *testing.T) {
	tr := &fakeTransport{}
	s := New(2, OrderRGB, tr)
	params := color.Params{Saturation: 1, Brightness: 1, Correction: color.NeutralCorrection}
	s.SetRange(0, []color.RGB{{R: 1, G: 0, B: 0}, {R: 0, G: 1, B: 0}}, params)
	s.Commit()
	got := tr.rendered[0]
	if got[0] < 250 || got[1] != 0 || got[2] != 0 {
		t.Fatalf("pixel 0 = %v, want ~(255,0,0)", got[0:3])
	}
	if got[3] != 0 || got[4] < 250 || got[5] != 0 {
		t.Fatalf("pixel 1 = %v, want ~(0,255,0)", got[3:6])
	}
}

func TestChannelsPerLED(t *testing.T) {
	if OrderGRB.ChannelsPerLED() != 3 {
		t.Errorf("GRB channels = %d, want 3", OrderGRB.ChannelsPerLED())
	}
	if OrderGRBW.ChannelsPerLED() != 4 {
		t.Errorf("GRBW channels = %d, want 4", OrderGRBW.ChannelsPerLED())
	}
	if !OrderBGRW.HasWhite() {
		t.Errorf("BGRW should report HasWhite")
	}
	if OrderBGR.HasWhite() {
		t.Errorf("BGR should not report HasWhite")
	}
}

func TestNilTransportCommitIsNoop(t *testing.T) {
	s := New(3, OrderRGB, nil)
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit with nil transport: %v", err)
	}
}
