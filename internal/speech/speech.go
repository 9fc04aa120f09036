// Package speech speaks short phrases through the audio output.
//
// Text is synthesised with Google TTS, cached as one mp3 per phrase, decoded
// with beep and played on a Bus that the mixer graph sends to the output.
package speech

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/Duckduckgot/gtts"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Voice carries the delivery parameters for one utterance.
type Voice struct {
	Rate   float64
	Pitch  float64
	Volume float64
}

var (
	PhaseVoice       = Voice{Rate: 1.0, Pitch: 1.0, Volume: 0.9}
	AffirmationVoice = Voice{Rate: 0.9, Pitch: 0.95, Volume: 0.85}
)

// Speaker speaks asynchronously. A new utterance replaces the one in flight.
type Speaker interface {
	Speak(text string, v Voice)
	Cancel()
}

// Nop is used when speech is disabled.
type Nop struct{}

func (Nop) Speak(string, Voice) {}
func (Nop) Cancel() {}

type Config struct {
	Language   string
	CacheDir   string
	SampleRate beep.SampleRate
}

// Fetcher turns text into an audio file path.
type Fetcher func(text, name string) (string, error)

type Synth struct {
	bus        *Bus
	sampleRate beep.SampleRate
	fetch      Fetcher

	mu     sync.Mutex
	cancel context.CancelFunc

	log *logrus.Entry
}

func NewSynth(cfg Config, bus *Bus) *Synth {
	tts := gtts.Speech{Folder: cfg.CacheDir, Language: cfg.Language}
	return NewSynthWithFetcher(cfg, bus, tts.CreateSpeechFile)
}

func NewSynthWithFetcher(cfg Config, bus *Bus, fetch Fetcher) *Synth {
	return &Synth{
		bus:        bus,
		sampleRate: cfg.SampleRate,
		fetch:      fetch,
		log:        logrus.WithField("component", "speech"),
	}
}

func (s *Synth) Speak(text string, v Voice) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.bus.Clear()
	s.mu.Unlock()

	go s.say(ctx, text, v)
}

func (s *Synth) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.bus.Clear()
}

func (s *Synth) say(ctx context.Context, text string, v Voice) {
	log := s.log.WithField("text", text)

	file, err := s.fetch(text, fileName(text))
	if err != nil {
		log.WithField("error", err.Error()).Warn("Speech synthesis unavailable")
		return
	}
	if ctx.Err() != nil {
		return
	}

	buffer, err := decodeFile(file)
	if err != nil {
		log.WithField("error", err.Error()).Warn("Failed to decode speech")
		return
	}

	st := s.shape(buffer, v)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	s.bus.Add(st)
	log.Debug("Speaking")
}

// shape applies rate and volume. gTTS offers no pitch control, so Pitch is
// not rendered.
func (s *Synth) shape(buffer *beep.Buffer, v Voice) beep.Streamer {
	rate := v.Rate
	if rate <= 0 {
		rate = 1
	}
	ratio := float64(buffer.Format().SampleRate) / float64(s.sampleRate) * rate
	var st beep.Streamer = buffer.Streamer(0, buffer.Len())
	if ratio != 1 {
		st = beep.ResampleRatio(4, ratio, st)
	}
	return &effects.Volume{
		Streamer: st,
		Base:     2,
		Volume:   math.Log2(math.Max(v.Volume, 1e-6)),
		Silent:   v.Volume <= 0,
	}
}

func decodeFile(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	default:
		streamer, format, err = mp3.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	defer streamer.Close()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	if buffer.Len() == 0 {
		return nil, fmt.Errorf("%s: no audio", path)
	}
	return buffer, nil
}

const maxNameLen = 48

// fileName derives a stable ASCII cache name from the spoken text.
func fileName(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	normalized, _, err := transform.String(t, text)
	if err != nil {
		normalized = text
	}

	filtered := strings.Map(func(r rune) rune {
		if r > 127 {
			return -1
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		if unicode.IsSpace(r) {
			return '_'
		}
		return -1
	}, normalized)
	filtered = strings.Trim(filtered, "_")
	if len(filtered) > maxNameLen {
		filtered = filtered[:maxNameLen]
	}

	h := fnv.New32a()
	h.Write([]byte(text))
	return fmt.Sprintf("%s_%08x", filtered, h.Sum32())
}
