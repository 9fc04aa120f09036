package speech

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type beepTone struct{ n, pos int }

func (b *beepTone) Stream(samples [][2]float64) (int, bool) {
	if b.pos >= b.n {
		return 0, false
	}
	i := 0
	for ; i < len(samples) && b.pos < b.n; i++ {
		v := 0.5 * math.Sin(float64(b.pos)/4)
		samples[i] = [2]float64{v, v}
		b.pos++
	}
	return i, true
}

func (b *beepTone) Err() error { return nil }

func writeUtterance(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "utterance.wav")
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, wav.Encode(f, &beepTone{n: 8000}, beep.Format{SampleRate: 8000, NumChannels: 1, Precision: 2}))
	return p
}

func TestSpeakAddsToBus(t *testing.T) {
	path := writeUtterance(t)
	var fetched atomic.Int32
	bus := NewBus()
	s := NewSynthWithFetcher(Config{SampleRate: 8000}, bus, func(text, name string) (string, error) {
		fetched.Add(1)
		return path, nil
	})

	s.Speak("Breathe In", PhaseVoice)
	assert.Eventually(t, func() bool { return bus.Len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), fetched.Load())

	buf := make([][2]float64, 512)
	n, ok := bus.Stream(buf)
	assert.Equal(t, 512, n)
	assert.True(t, ok)

	s.Cancel()
	assert.Equal(t, 0, bus.Len())
}

func TestSpeakIgnoresBlankText(t *testing.T) {
	called := false
	s := NewSynthWithFetcher(Config{SampleRate: 8000}, NewBus(), func(text, name string) (string, error) {
		called = true
		return "", nil
	})
	s.Speak("   ", PhaseVoice)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, called)
}

func TestSpeakFailureIsSilent(t *testing.T) {
	bus := NewBus()
	done := make(chan struct{})
	s := NewSynthWithFetcher(Config{SampleRate: 8000}, bus, func(text, name string) (string, error) {
		defer close(done)
		return "", errors.New("offline")
	})

	assert.NotPanics(t, func() { s.Speak("hello", AffirmationVoice) })
	<-done
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, bus.Len())
}

func TestCancelBeforeFetchCompletes(t *testing.T) {
	path := writeUtterance(t)
	release := make(chan struct{})
	finished := make(chan struct{})
	bus := NewBus()
	s := NewSynthWithFetcher(Config{SampleRate: 8000}, bus, func(text, name string) (string, error) {
		defer close(finished)
		<-release
		return path, nil
	})

	s.Speak("Hold", PhaseVoice)
	s.Cancel()
	close(release)
	<-finished
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, bus.Len())
}

func TestBusStreamsSilenceWhenIdle(t *testing.T) {
	bus := NewBus()
	buf := [][2]float64{{1, 1}, {1, 1}}
	n, ok := bus.Stream(buf)
	assert.Equal(t, 2, n)
	assert.True(t, ok)
	assert.Equal(t, [][2]float64{{0, 0}, {0, 0}}, buf)
}

func TestFileName(t *testing.T) {
	a := fileName("Café déjà vu!")
	assert.Regexp(t, `^cafe_deja_vu_[0-9a-f]{8}$`, a)
	assert.Equal(t, a, fileName("Café déjà vu!"))
	assert.NotEqual(t, fileName("Hold"), fileName("Hold."))

	long := fileName("You have overcome difficult moments before. You can do it again.")
	assert.LessOrEqual(t, len(long), maxNameLen+9)
}

func TestNopSpeaker(t *testing.T) {
	var s Speaker = Nop{}
	assert.NotPanics(t, func() {
		s.Speak("x", PhaseVoice)
		s.Cancel()
	})
}
