package haptics

import (
	"sync"
	"time"
)

const (
	Short = 30 * time.Millisecond
	Long  = 60 * time.Millisecond
)

// Pulser drives a vibration motor or anything standing in for one.
type Pulser interface {
	Pulse(d time.Duration)
}

// Feedback sends short and long pulses when enabled and a backend exists.
type Feedback struct {
	mu      sync.RWMutex
	backend Pulser
	enabled bool
}

func New(backend Pulser, enabled bool) *Feedback {
	return &Feedback{backend: backend, enabled: enabled}
}

func (f *Feedback) SetBackend(p Pulser) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backend = p
}

func (f *Feedback) SetEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = enabled
}

func (f *Feedback) Enabled() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.enabled
}

func (f *Feedback) Short() { f.pulse(Short) }
func (f *Feedback) Long() { f.pulse(Long) }

func (f *Feedback) pulse(d time.Duration) {
	f.mu.RLock()
	backend, enabled := f.backend, f.enabled
	f.mu.RUnlock()
	if !enabled || backend == nil {
		return
	}
	backend.Pulse(d)
}
