// Package callbacks holds ready-made stream callbacks.
package callbacks

import (
	"github.com/petems/dspio/internal/audio"
	"github.com/petems/dspio/internal/capture"
)

// Passthrough copies input to output and captures what it sees.
type Passthrough struct {
	channels int
	capture  *capture.Buffer[int16]
	stereo   *audio.StereoFrame[int16]
}

// NewPassthrough returns a passthrough for mono or stereo streams. buf may
// be nil to skip capture.
func NewPassthrough(channels, frameLength int, buf *capture.Buffer[int16]) *Passthrough {
	if buf == nil {
		buf = capture.New[int16](0)
	}
	return &Passthrough{
		channels: channels,
		capture:  buf,
		stereo:   audio.NewStereoFrame[int16](frameLength),
	}
}

func (p *Passthrough) Process(in, out []int16, frames int, _ audio.TimeInfo, _ audio.StatusFlags) audio.Result {
	if p.channels == 2 {
		if err := p.stereo.Split(in); err != nil {
			return audio.Abort
		}
		p.capture.AppendStereo(p.stereo.Left, p.stereo.Right)
		if err := p.stereo.Pack(out); err != nil {
			return audio.Abort
		}
		return audio.Continue
	}

	copy(out, in[:frames])
	p.capture.Append(in[:frames])
	return audio.Continue
}
