package capture

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

var ErrInsufficientTimestamps = errors.New("at least two callback entries are needed for stream statistics")

// Stats describes how regularly the stream callback ran.
type Stats struct {
	// FirstEntry is the delay before the callback ran the first time.
	FirstEntry time.Duration
	// IdealPeriod is frameLength / sampleRate.
	IdealPeriod time.Duration
	// MeanPeriod is the mean time between entries. The first interval is
	// left out when there is more than one.
	MeanPeriod time.Duration
	// MeanProcess is the mean of exit[i] - entry[i].
	MeanProcess time.Duration
	Callbacks   int
}

func ComputeStats(entries, exits []time.Duration, frameLength, sampleRate int) (Stats, error) {
	if len(entries) < 2 {
		return Stats{}, ErrInsufficientTimestamps
	}
	if sampleRate <= 0 {
		return Stats{}, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	st := Stats{
		FirstEntry:  entries[0],
		IdealPeriod: time.Duration(frameLength) * time.Second / time.Duration(sampleRate),
		Callbacks:   len(entries),
	}

	intervals := make([]time.Duration, 0, len(entries)-1)
	for i := 1; i < len(entries); i++ {
		intervals = append(intervals, entries[i]-entries[i-1])
	}
	if len(intervals) > 1 {
		intervals = intervals[1:]
	}
	st.MeanPeriod = mean(intervals)

	n := min(len(entries), len(exits))
	process := make([]time.Duration, n)
	for i := 0; i < n; i++ {
		process[i] = exits[i] - entries[i]
	}
	st.MeanProcess = mean(process)

	return st, nil
}

func mean(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range ds {
		sum += d
	}
	return sum / time.Duration(len(ds))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"first callback latency: %6.2f ms\n"+
			"ideal callback period:  %6.2f ms\n"+
			"mean callback period:   %6.2f ms\n"+
			"mean processing time:   %6.2f ms\n",
		ms(s.FirstEntry), ms(s.IdealPeriod), ms(s.MeanPeriod), ms(s.MeanProcess))
}

func (s Stats) MarshalZerologObject(e *zerolog.Event) {
	e.Float64("first_entry_ms", ms(s.FirstEntry)).
		Float64("ideal_period_ms", ms(s.IdealPeriod)).
		Float64("mean_period_ms", ms(s.MeanPeriod)).
		Float64("mean_process_ms", ms(s.MeanProcess)).
		Int("callbacks", s.Callbacks)
}

// Interval is one callback execution.
type Interval struct {
	Entry time.Duration
	Exit  time.Duration
}

func activity(entries, exits []time.Duration, from, to time.Duration) []Interval {
	n := min(len(entries), len(exits))
	var out []Interval
	for i := 0; i < n; i++ {
		if exits[i] < from || entries[i] > to {
			continue
		}
		out = append(out, Interval{Entry: entries[i], Exit: exits[i]})
	}
	return out
}
