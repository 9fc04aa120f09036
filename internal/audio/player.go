package audio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/agusx1211/find-the-calm/internal/mixer"
	oto "github.com/ebitengine/oto/v3"
	"github.com/gopxl/beep/v2"
)

// oto allows a single context per process, so it is opened once and shared by
// every Player.
var (
	otoOnce   sync.Once
	otoShared *oto.Context
	otoRate   int
	otoErr    error
)

func sharedContext(sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		otoContext, readyChan, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
			BufferSize:   500 * time.Millisecond,
		})
		if err != nil {
			otoErr = err
			return
		}
		<-readyChan
		otoShared = otoContext
		otoRate = sampleRate
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if sampleRate != otoRate {
		return nil, fmt.Errorf("output already running at %d Hz, cannot reopen at %d Hz", otoRate, sampleRate)
	}
	return otoShared, nil
}

type Player struct {
	context    *oto.Context
	player     *oto.Player
	bufferSize int
	stopChan   chan struct{}
	stopOnce   sync.Once
}

var _ mixer.Output = (*Player)(nil)

func NewPlayer(sampleRate, bufferSize int) (*Player, error) {
	otoContext, err := sharedContext(sampleRate)
	if err != nil {
		return nil, err
	}

	return &Player{
		context:    otoContext,
		bufferSize: bufferSize,
		stopChan:   make(chan struct{}),
	}, nil
}

// Factory opens Players for the mixer graph.
func Factory(bufferSize int) mixer.OutputFactory {
	return func(sr beep.SampleRate) (mixer.Output, error) {
		return NewPlayer(int(sr), bufferSize)
	}
}

func (p *Player) Play(s beep.Streamer) {
	p.player = p.context.NewPlayer(newStreamReader(s, p.bufferSize, p.stopChan))
	p.player.Play()
}

func (p *Player) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	if p.player != nil {
		p.player.Pause()
	}
}

// Close stops this player. The shared context stays open for the next one.
func (p *Player) Close() error {
	p.Stop()
	if p.player != nil {
		return p.player.Close()
	}
	return nil
}

type streamReader struct {
	streamer beep.Streamer
	frames   [][2]float64
	stopChan <-chan struct{}
	buffer   []byte
	bufPos   int
}

func newStreamReader(s beep.Streamer, bufferSize int, stop <-chan struct{}) *streamReader {
	if bufferSize <= 0 {
		bufferSize = 2048
	}
	return &streamReader{
		streamer: s,
		frames:   make([][2]float64, bufferSize),
		stopChan: stop,
	}
}

func (r *streamReader) Read(buf []byte) (int, error) {
	totalRead := 0

	for totalRead < len(buf) {
		if r.bufPos >= len(r.buffer) {
			select {
			case <-r.stopChan:
				return totalRead, nil
			default:
			}

			n, ok := r.streamer.Stream(r.frames)
			if !ok {
				n = 0
			}
			clear(r.frames[n:])
			r.buffer = framesToBytes(r.frames, r.buffer)
			r.bufPos = 0
		}

		n := copy(buf[totalRead:], r.buffer[r.bufPos:])
		r.bufPos += n
		totalRead += n
	}

	return totalRead, nil
}

// framesToBytes interleaves stereo frames as float32LE, reusing dst.
func framesToBytes(frames [][2]float64, dst []byte) []byte {
	size := len(frames) * 8
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	result := dst[:size]

	for i, frame := range frames {
		for c, sample := range frame {
			clamped := math.Max(-1, math.Min(1, sample))
			bits := math.Float32bits(float32(clamped))
			off := i*8 + c*4
			result[off] = byte(bits)
			result[off+1] = byte(bits >> 8)
			result[off+2] = byte(bits >> 16)
			result[off+3] = byte(bits >> 24)
		}
	}

	return result
}
