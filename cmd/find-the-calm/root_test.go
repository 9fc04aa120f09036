package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agusx1211/find-the-calm/internal/app"
	"github.com/agusx1211/find-the-calm/internal/mixer"
	"github.com/agusx1211/find-the-calm/internal/preset"
	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
)

type countingPublisher struct{ n atomic.Int32 }

func (p *countingPublisher) PublishState() { p.n.Add(1) }

type silentOutput struct{}

func (silentOutput) Play(beep.Streamer) {}
func (silentOutput) Close() error { return nil }

func TestProcessCommands(t *testing.T) {
	opts := mixer.DefaultOptions()
	opts.SampleRate = 8000
	graph := mixer.NewGraph(opts, func(beep.SampleRate) (mixer.Output, error) { return silentOutput{}, nil })
	session := app.New(app.Options{
		Layers: []mixer.LayerSpec{{Name: "rain", Label: "Rain", Asset: "/nonexistent/rain.mp3"}},
		Graph:  graph,
		Store:  preset.NewStore(preset.NewMemoryKV(), ""),
	})
	defer session.Close()

	cmds := make(chan app.Command, 4)
	changed := make(chan struct{}, 1)
	pub := &countingPublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		processCommands(ctx, session, cmds, changed, pub)
	}()

	cmds <- app.Command{Action: app.ActionStartAudio}
	cmds <- app.Command{Action: app.ActionSetMasterVolume, Value: 0.3}
	cmds <- app.Command{Action: "bogus"}
	changed <- struct{}{}

	assert.Eventually(t, func() bool { return pub.n.Load() >= 4 }, time.Second, 5*time.Millisecond)
	assert.True(t, graph.Initialized())
	assert.Equal(t, 0.3, graph.MasterVolume())

	cancel()
	<-done
}
