// Package affirmation cycles through a fixed list of short affirmations.
package affirmation

import (
	"sync"

	"github.com/agusx1211/find-the-calm/internal/speech"
)

type Cycler struct {
	mu      sync.Mutex
	items   []string
	index   int
	speaker speech.Speaker
}

// New copies items. A nil speaker makes SpeakCurrent a no-op.
func New(items []string, speaker speech.Speaker) *Cycler {
	if speaker == nil {
		speaker = speech.Nop{}
	}
	return &Cycler{items: append([]string(nil), items...), speaker: speaker}
}

// Show wraps i into range, negatives included, and makes it current.
func (c *Cycler) Show(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showLocked(i)
}

func (c *Cycler) showLocked(i int) {
	n := len(c.items)
	if n == 0 {
		c.index = 0
		return
	}
	c.index = ((i % n) + n) % n
}

func (c *Cycler) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showLocked(c.index + 1)
}

func (c *Cycler) Prev() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showLocked(c.index - 1)
}

func (c *Cycler) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Current returns "" when the list is empty.
func (c *Cycler) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return ""
	}
	return c.items[c.index]
}

func (c *Cycler) Len() int {
	return len(c.items)
}

func (c *Cycler) SpeakCurrent() {
	text := c.Current()
	if text == "" {
		return
	}
	c.speaker.Speak(text, speech.AffirmationVoice)
}
