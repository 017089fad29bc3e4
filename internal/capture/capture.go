// Package capture keeps a bounded, most-recent-wins record of the samples a
// stream callback saw, together with callback entry and exit times.
//
// A Buffer with a zero sample limit is disabled: appends and timestamps are
// dropped. The same limit gates both, so timing is only recorded while
// sample capture is on.
package capture

import (
	"sync"
	"time"

	"github.com/petems/dspio/internal/audio"
)

type Buffer[S audio.Sample] struct {
	maxSamples int
	now        func() time.Time

	mu      sync.Mutex
	start   time.Time
	samples []S
	left    []S
	right   []S
	entries []time.Duration
	exits   []time.Duration
}

// New returns a buffer retaining at most maxSamples samples per channel.
func New[S audio.Sample](maxSamples int) *Buffer[S] {
	if maxSamples < 0 {
		maxSamples = 0
	}
	return &Buffer[S]{
		maxSamples: maxSamples,
		now:        time.Now,
		start:      time.Now(),
	}
}

// ForDuration sizes a buffer to hold d worth of samples at sampleRate.
func ForDuration[S audio.Sample](sampleRate int, d time.Duration) *Buffer[S] {
	rate := int64(sampleRate)
	return New[S](int(rate*int64(d/time.Second) + rate*int64(d%time.Second)/int64(time.Second)))
}

func (b *Buffer[S]) MaxSamples() int { return b.maxSamples }

func (b *Buffer[S]) Enabled() bool { return b.maxSamples > 0 }

// Reset drops everything captured so far and restarts the timestamp clock.
func (b *Buffer[S]) Reset(start time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.start = start
	b.samples = b.samples[:0]
	b.left = b.left[:0]
	b.right = b.right[:0]
	b.entries = b.entries[:0]
	b.exits = b.exits[:0]
}

// Append adds mono samples, keeping only the newest maxSamples.
func (b *Buffer[S]) Append(samples []S) {
	if b.maxSamples == 0 {
		return
	}
	b.mu.Lock()
	b.samples = appendBounded(b.samples, samples, b.maxSamples)
	b.mu.Unlock()
}

// AppendStereo applies the Append policy to each channel independently.
func (b *Buffer[S]) AppendStereo(left, right []S) {
	if b.maxSamples == 0 {
		return
	}
	b.mu.Lock()
	b.left = appendBounded(b.left, left, b.maxSamples)
	b.right = appendBounded(b.right, right, b.maxSamples)
	b.mu.Unlock()
}

// RecordEntry marks the moment a callback starts processing.
func (b *Buffer[S]) RecordEntry() {
	if b.maxSamples == 0 {
		return
	}
	b.mu.Lock()
	b.entries = append(b.entries, b.now().Sub(b.start))
	b.mu.Unlock()
}

// RecordExit marks the moment a callback finishes processing.
func (b *Buffer[S]) RecordExit() {
	if b.maxSamples == 0 {
		return
	}
	b.mu.Lock()
	b.exits = append(b.exits, b.now().Sub(b.start))
	b.mu.Unlock()
}

// Samples returns a copy of the mono capture.
func (b *Buffer[S]) Samples() []S {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]S(nil), b.samples...)
}

// Stereo returns copies of the left and right captures.
func (b *Buffer[S]) Stereo() (left, right []S) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]S(nil), b.left...), append([]S(nil), b.right...)
}

// Timestamps returns copies of the entry and exit times, relative to the
// last Reset.
func (b *Buffer[S]) Timestamps() (entries, exits []time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]time.Duration(nil), b.entries...), append([]time.Duration(nil), b.exits...)
}

// Stats summarizes the recorded callback timing.
func (b *Buffer[S]) Stats(frameLength, sampleRate int) (Stats, error) {
	entries, exits := b.Timestamps()
	return ComputeStats(entries, exits, frameLength, sampleRate)
}

// Activity returns the callback intervals overlapping [from, to].
func (b *Buffer[S]) Activity(from, to time.Duration) []Interval {
	entries, exits := b.Timestamps()
	return activity(entries, exits, from, to)
}

// appendBounded appends src to dst and keeps only the last max elements.
// dst never grows past max.
func appendBounded[S any](dst, src []S, max int) []S {
	if len(src) >= max {
		if cap(dst) < max {
			dst = make([]S, max)
		}
		dst = dst[:max]
		copy(dst, src[len(src)-max:])
		return dst
	}

	if overflow := len(dst) + len(src) - max; overflow > 0 {
		kept := copy(dst, dst[overflow:])
		dst = dst[:kept]
	}
	if cap(dst) < max {
		grown := make([]S, len(dst), max)
		copy(grown, dst)
		dst = grown
	}
	return append(dst, src...)
}
