package audio

import (
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
)

func newTestStream(cb Callback, channels int) *paStream {
	s := &paStream{cb: cb, channels: channels}
	s.started.Store(true)
	return s
}

func TestProcessPassesFramesAndTimeInfo(t *testing.T) {
	var gotFrames int
	var gotInfo TimeInfo
	var gotFlags StatusFlags
	s := newTestStream(func(in, out []int16, frames int, info TimeInfo, flags StatusFlags) Result {
		gotFrames, gotInfo, gotFlags = frames, info, flags
		copy(out, in)
		return Continue
	}, 2)

	in := []int16{1, 2, 3, 4, 5, 6}
	out := make([]int16, len(in))
	s.process(in, out, portaudio.StreamCallbackTimeInfo{CurrentTime: 5 * time.Millisecond}, portaudio.OutputUnderflow)

	if gotFrames != 3 {
		t.Errorf("expected 3 frames, got %d", gotFrames)
	}
	if gotInfo.CurrentTime != 5*time.Millisecond {
		t.Errorf("expected current time 5ms, got %v", gotInfo.CurrentTime)
	}
	if gotFlags != OutputUnderflow {
		t.Errorf("expected OutputUnderflow, got %v", gotFlags)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d: expected %d, got %d", i, in[i], out[i])
		}
	}
	if !s.Active() {
		t.Error("expected stream to stay active after Continue")
	}
}

func TestProcessLatchesResult(t *testing.T) {
	for _, res := range []Result{Complete, Abort} {
		t.Run(res.String(), func(t *testing.T) {
			calls := 0
			s := newTestStream(func(in, out []int16, frames int, _ TimeInfo, _ StatusFlags) Result {
				calls++
				for i := range out {
					out[i] = 7
				}
				return res
			}, 1)

			out := make([]int16, 4)
			s.process(make([]int16, 4), out, portaudio.StreamCallbackTimeInfo{}, 0)
			if s.Active() {
				t.Fatalf("expected stream inactive after %s", res)
			}
			if Result(s.result.Load()) != res {
				t.Errorf("expected latched %s, got %s", res, Result(s.result.Load()))
			}

			s.process(make([]int16, 4), out, portaudio.StreamCallbackTimeInfo{}, 0)
			if calls != 1 {
				t.Errorf("expected callback not to run after %s, ran %d times", res, calls)
			}
			for i, v := range out {
				if v != 0 {
					t.Fatalf("sample %d: expected silence after %s, got %d", i, res, v)
				}
			}
		})
	}
}

func TestActive(t *testing.T) {
	s := &paStream{channels: 1}
	if s.Active() {
		t.Error("expected a stream that never started to be inactive")
	}
	s.started.Store(true)
	if !s.Active() {
		t.Error("expected a started stream to be active")
	}
	s.stopped.Store(true)
	if s.Active() {
		t.Error("expected a stopped stream to be inactive")
	}
}

func TestConvertFlags(t *testing.T) {
	tests := []struct {
		name string
		in   portaudio.StreamCallbackFlags
		want StatusFlags
	}{
		{"none", 0, 0},
		{"input underflow", portaudio.InputUnderflow, InputUnderflow},
		{"input overflow", portaudio.InputOverflow, InputOverflow},
		{"output underflow", portaudio.OutputUnderflow, OutputUnderflow},
		{"output overflow", portaudio.OutputOverflow, OutputOverflow},
		{"priming", portaudio.PrimingOutput, PrimingOutput},
		{"combined", portaudio.InputOverflow | portaudio.OutputUnderflow, InputOverflow | OutputUnderflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := convertFlags(tt.in); got != tt.want {
				t.Errorf("convertFlags(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
