package loop

import (
	"errors"
	"testing"
)

func TestNextWrapsWhenFrameIncomplete(t *testing.T) {
	sig, err := New([]int16{0, 1, 2, 3, 4, 5, 6}, 1, 0)
	if err != nil {
		t.Fatal(err)
	}

	want := [][]int16{
		{0, 1, 2},
		{3, 4, 5},
		{0, 1, 2}, // only one frame left, wrap
		{3, 4, 5},
	}
	for i, w := range want {
		got := sig.Next(3)
		if len(got) != len(w) {
			t.Fatalf("call %d: expected %d samples, got %d", i, len(w), len(got))
		}
		for j := range w {
			if got[j] != w[j] {
				t.Fatalf("call %d: sample %d = %d, want %d", i, j, got[j], w[j])
			}
		}
	}
}

func TestNextStartOffset(t *testing.T) {
	sig, err := New([]int16{0, 1, 2, 3, 4, 5}, 1, 4)
	if err != nil {
		t.Fatal(err)
	}
	got := sig.Next(2)
	if got[0] != 4 || got[1] != 5 {
		t.Errorf("expected [4 5], got %v", got)
	}
}

func TestNextStereo(t *testing.T) {
	sig, err := FromStereo([]int16{1, 2, 3}, []int16{-1, -2, -3}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Channels() != 2 || sig.Frames() != 3 {
		t.Fatalf("unexpected shape: %d ch, %d frames", sig.Channels(), sig.Frames())
	}

	got := sig.Next(2)
	want := []int16{1, -1, 2, -2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFillLongerThanSignal(t *testing.T) {
	sig, err := New([]int16{7, 8}, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]int16, 5)
	sig.Fill(out)

	want := []int16{7, 8, 7, 8, 7}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("sample %d = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(nil, 1, 0); !errors.Is(err, ErrEmptySignal) {
		t.Errorf("expected ErrEmptySignal, got %v", err)
	}
	if _, err := New([]int16{1, 2, 3}, 2, 0); err == nil {
		t.Error("expected error for odd stereo length")
	}
	if _, err := New([]int16{1}, 3, 0); err == nil {
		t.Error("expected error for three channels")
	}
	if _, err := FromStereo([]int16{1}, []int16{1, 2}, 0); err == nil {
		t.Error("expected error for mismatched channels")
	}
}

func TestResampleSameRateIsIdentity(t *testing.T) {
	sig, err := New([]int16{1, 2, 3, 4}, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Resample(sig, 44100, 44100)
	if err != nil {
		t.Fatal(err)
	}
	if got != sig {
		t.Error("expected the same signal back")
	}
}

func TestResampleChangesLength(t *testing.T) {
	data := make([]int16, 2*4800)
	for i := range data {
		data[i] = 1000
	}
	sig, err := New(data, 2, 0)
	if err != nil {
		t.Fatal(err)
	}

	up, err := Resample(sig, 48000, 96000)
	if err != nil {
		t.Fatal(err)
	}
	if up.Channels() != 2 {
		t.Errorf("expected 2 channels, got %d", up.Channels())
	}
	if up.Frames() <= sig.Frames() || up.Frames() > 2*sig.Frames()+1 {
		t.Errorf("expected between %d and %d frames, got %d", sig.Frames()+1, 2*sig.Frames()+1, up.Frames())
	}
}

func TestResampleRejectsBadRates(t *testing.T) {
	sig, err := New([]int16{1, 2}, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Resample(sig, 0, 44100); err == nil {
		t.Error("expected an error for a zero source rate")
	}
}

func TestFromFileRejectsUnknownExtension(t *testing.T) {
	if _, _, err := FromFile("loop.ogg", 0); err == nil {
		t.Error("expected an error for an unsupported extension")
	}
}
