package preset

import (
	"testing"

	"github.com/agusx1211/find-the-calm/internal/mixer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	states := []mixer.State{
		{
			MasterVolume: 1,
			Layers: map[string]mixer.LayerState{
				"rain":  {Volume: 0.7},
				"wind":  {Volume: 0.7},
				"piano": {Volume: 0.7},
			},
		},
		{
			MasterVolume: 0.35,
			Solo:         "wind",
			Layers: map[string]mixer.LayerState{
				"rain":  {Volume: 0, Muted: true},
				"wind":  {Volume: 1, Muted: true},
				"piano": {Volume: 0.123456789},
			},
		},
		{
			MasterVolume: 0,
			Layers:       map[string]mixer.LayerState{},
		},
	}

	for _, backend := range []struct {
		name string
		kv   KV
	}{
		{"memory", NewMemoryKV()},
		{"file", NewFileKV(t.TempDir())},
	} {
		t.Run(backend.name, func(t *testing.T) {
			store := NewStore(backend.kv, "")
			for _, s := range states {
				require.NoError(t, store.Save(s))
				got, ok := store.Load()
				require.True(t, ok)
				assert.Equal(t, s, got)
			}
		})
	}
}

func TestLoadAbsent(t *testing.T) {
	store := NewStore(NewMemoryKV(), "")
	_, ok := store.Load()
	assert.False(t, ok)
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"garbage", "\x00\x01not json at all"},
		{"truncated", `{"master": 0.5, "tracks": {`},
		{"wrong type", `{"master": "loud"}`},
		{"missing master", `{"tracks": {}}`},
		{"master out of range", `{"master": 3}`},
		{"track out of range", `{"master": 1, "tracks": {"rain": {"volume": -1}}}`},
		{"array", `[1, 2, 3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := NewMemoryKV()
			require.NoError(t, kv.Set(DefaultKey, []byte(tt.data)))
			store := NewStore(kv, DefaultKey)

			assert.NotPanics(t, func() {
				_, ok := store.Load()
				assert.False(t, ok)
			})
		})
	}
}

func TestDecodeDefaultsMissingVolume(t *testing.T) {
	state, err := Decode([]byte(`{"master": 0.5, "solo": null, "tracks": {"rain": {"muted": true}}}`))
	require.NoError(t, err)
	assert.Equal(t, mixer.LayerState{Volume: DefaultTrackVolume, Muted: true}, state.Layers["rain"])
	assert.Empty(t, state.Solo)
}

func TestSaveOverwrites(t *testing.T) {
	store := NewStore(NewMemoryKV(), "slot")
	require.NoError(t, store.Save(mixer.State{MasterVolume: 0.1}))
	require.NoError(t, store.Save(mixer.State{MasterVolume: 0.9}))

	got, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, 0.9, got.MasterVolume)
}

func TestClear(t *testing.T) {
	store := NewStore(NewFileKV(t.TempDir()), "")
	require.NoError(t, store.Clear())
	require.NoError(t, store.Save(mixer.State{MasterVolume: 0.5}))
	require.NoError(t, store.Clear())
	_, ok := store.Load()
	assert.False(t, ok)
}

func TestFileKVRejectsPathKeys(t *testing.T) {
	kv := NewFileKV(t.TempDir())
	assert.Error(t, kv.Set("../escape", []byte("x")))
	_, err := kv.Get("a/b")
	assert.Error(t, err)
}
