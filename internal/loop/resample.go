package loop

import (
	"fmt"
	"math"

	"github.com/oov/audio/resampler"
)

const resampleQuality = 10

// Resample converts s from one sample rate to another. The read position
// restarts at frame zero.
func Resample(s *Signal, from, to int) (*Signal, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("invalid sample rates %d -> %d", from, to)
	}
	if from == to {
		return s, nil
	}

	r := resampler.New(s.channels, from, to, resampleQuality)
	outFrames := int(int64(s.frames)*int64(to)/int64(from)) + 1

	planes := make([][]float32, s.channels)
	written := outFrames
	for ch := range planes {
		in := make([]float32, s.frames)
		for i := range in {
			in[i] = float32(s.data[i*s.channels+ch]) / math.MaxInt16
		}
		planes[ch] = make([]float32, outFrames)
		_, n := r.ProcessFloat32(ch, in, planes[ch])
		written = min(written, n)
	}
	if written == 0 {
		return nil, ErrEmptySignal
	}

	data := make([]int16, written*s.channels)
	for i := 0; i < written; i++ {
		for ch := range planes {
			v := math.Round(float64(planes[ch][i]) * math.MaxInt16)
			data[i*s.channels+ch] = int16(max(math.MinInt16, min(math.MaxInt16, v)))
		}
	}
	return New(data, s.channels, 0)
}
