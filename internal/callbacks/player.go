package callbacks

import (
	"github.com/petems/dspio/internal/audio"
	"github.com/petems/dspio/internal/capture"
	"github.com/petems/dspio/internal/loop"
)

// Player renders a looping signal to the output while capturing the input.
type Player struct {
	channels int
	signal   *loop.Signal
	capture  *capture.Buffer[int16]
	stereo   *audio.StereoFrame[int16]
	mono     []int16
}

func NewPlayer(channels, frameLength int, sig *loop.Signal, buf *capture.Buffer[int16]) *Player {
	if buf == nil {
		buf = capture.New[int16](0)
	}
	return &Player{
		channels: channels,
		signal:   sig,
		capture:  buf,
		stereo:   audio.NewStereoFrame[int16](frameLength),
		mono:     make([]int16, frameLength),
	}
}

func (p *Player) Process(in, out []int16, frames int, _ audio.TimeInfo, _ audio.StatusFlags) audio.Result {
	if p.channels == 2 {
		if err := p.stereo.Split(in); err != nil {
			return audio.Abort
		}
		p.capture.AppendStereo(p.stereo.Left, p.stereo.Right)
	} else {
		p.capture.Append(in[:frames])
	}

	src := p.signal.Next(frames)
	switch {
	case p.signal.Channels() == p.channels:
		copy(out, src)
	case p.channels == 2:
		// mono signal on both sides
		copy(p.stereo.Left, src)
		copy(p.stereo.Right, src)
		if err := p.stereo.Pack(out); err != nil {
			return audio.Abort
		}
	default:
		if frames > len(p.mono) {
			return audio.Abort
		}
		if err := audio.DownmixInto(p.mono[:frames], src, 2); err != nil {
			return audio.Abort
		}
		copy(out, p.mono[:frames])
	}
	return audio.Continue
}
