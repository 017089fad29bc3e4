package audio

// Sample is any PCM sample type a stream or capture buffer may carry.
type Sample interface {
	~int16 | ~int32 | ~float32 | ~float64
}

// Deinterleave splits a packed stereo buffer: even samples go to left, odd
// samples to right. len(packed) must be exactly 2*len(left) and
// len(left) == len(right).
func Deinterleave[S Sample](packed, left, right []S) error {
	if len(left) != len(right) || len(packed) != 2*len(left) {
		return ErrFrameLength
	}
	for i := range left {
		left[i] = packed[2*i]
		right[i] = packed[2*i+1]
	}
	return nil
}

// Interleave is the inverse of Deinterleave.
func Interleave[S Sample](left, right, packed []S) error {
	if len(left) != len(right) || len(packed) != 2*len(left) {
		return ErrFrameLength
	}
	for i := range left {
		packed[2*i] = left[i]
		packed[2*i+1] = right[i]
	}
	return nil
}

// Downmix averages every channel of an interleaved buffer into a new mono
// slice of frames samples. Mono input is copied.
func Downmix[S Sample](input []S, channels, frames int) []S {
	out := make([]S, frames)
	if channels <= 1 {
		copy(out, input)
		return out
	}
	DownmixInto(out, input, channels)
	return out
}

// DownmixInto averages the first len(dst) frames of input into dst without
// allocating. input must hold at least len(dst)*channels samples.
func DownmixInto[S Sample](dst, input []S, channels int) error {
	if channels < 1 || len(input) < len(dst)*channels {
		return ErrFrameLength
	}
	for f := range dst {
		var sum float64
		base := f * channels
		for c := 0; c < channels; c++ {
			sum += float64(input[base+c])
		}
		dst[f] = S(sum / float64(channels))
	}
	return nil
}

// StereoFrame owns the left/right buffers of one callback so a real-time
// callback can split and merge channels without allocating.
type StereoFrame[S Sample] struct {
	Left  []S
	Right []S
}

func NewStereoFrame[S Sample](frameLength int) *StereoFrame[S] {
	return &StereoFrame[S]{
		Left:  make([]S, frameLength),
		Right: make([]S, frameLength),
	}
}

// Split fills Left and Right from packed.
func (f *StereoFrame[S]) Split(packed []S) error {
	return Deinterleave(packed, f.Left, f.Right)
}

// Pack writes Left and Right into packed.
func (f *StereoFrame[S]) Pack(packed []S) error {
	return Interleave(f.Left, f.Right, packed)
}
