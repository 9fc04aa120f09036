package speech

import (
	"sync"

	"github.com/gopxl/beep/v2"
)

// Bus mixes utterances into the output. It is safe to add and clear from
// any goroutine while the output device streams it.
type Bus struct {
	mu    sync.Mutex
	mixer beep.Mixer
}

var _ beep.Streamer = (*Bus)(nil)

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Add(s beep.Streamer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mixer.Add(s)
}

func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mixer.Clear()
}

func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mixer.Len()
}

// Stream always fills samples, with silence when nothing is being spoken.
func (b *Bus) Stream(samples [][2]float64) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mixer.Len() == 0 {
		clear(samples)
		return len(samples), true
	}
	n, _ := b.mixer.Stream(samples)
	clear(samples[n:])
	return len(samples), true
}

func (b *Bus) Err() error {
	return nil
}
