package capture

import (
	"errors"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/petems/dspio/internal/audio"
)

var ErrEmpty = errors.New("capture buffer is empty")

// WriteWAV encodes the capture as 16-bit PCM. A stereo capture wins over a
// mono one; the channels are trimmed to the shorter of the two.
func (b *Buffer[S]) WriteWAV(w io.WriteSeeker, sampleRate int) error {
	left, right := b.Stereo()
	mono := b.Samples()

	var (
		data     []int
		channels int
	)
	switch {
	case len(left) > 0 && len(right) > 0:
		n := min(len(left), len(right))
		packed := make([]S, 2*n)
		if err := audio.Interleave(left[:n], right[:n], packed); err != nil {
			return err
		}
		data = toPCM16(packed)
		channels = 2
	case len(mono) > 0:
		data = toPCM16(mono)
		channels = 1
	default:
		return ErrEmpty
	}

	enc := wav.NewEncoder(w, sampleRate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to encode capture: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return nil
}

func toPCM16[S audio.Sample](in []S) []int {
	out := make([]int, len(in))
	for i, s := range in {
		v := math.Round(float64(s))
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		out[i] = int(v)
	}
	return out
}
