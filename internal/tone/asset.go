package tone

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrEmptyAsset        = errors.New("asset decoded to no audio")
)

// Opener resolves an asset reference to a readable stream or fails explicitly.
type Opener func(ctx context.Context, ref string) (io.ReadCloser, error)

// DefaultOpener reads http(s) references over the network and everything else from disk.
func DefaultOpener(ctx context.Context, ref string) (io.ReadCloser, error) {
	if ref == "" {
		return nil, errors.New("empty asset reference")
	}
	if !isRemote(ref) {
		return os.Open(ref)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: %s", ref, resp.Status)
	}
	return resp.Body, nil
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func extOf(ref string) string {
	p := ref
	if isRemote(ref) {
		if u, err := url.Parse(ref); err == nil {
			p = u.Path
		}
	}
	return strings.ToLower(path.Ext(p))
}

func decode(rc io.ReadCloser, ref string) (beep.StreamSeekCloser, beep.Format, error) {
	switch ext := extOf(ref); ext {
	case ".mp3":
		return mp3.Decode(rc)
	case ".wav":
		return wav.Decode(rc)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// loadAsset decodes the whole asset into memory and returns an endless loop
// over it at the requested sample rate.
func loadAsset(ctx context.Context, ref string, opts Options) (beep.Streamer, error) {
	rc, err := opts.Open(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("open asset: %w", err)
	}

	streamer, format, err := decode(rc, ref)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("decode asset: %w", err)
	}
	defer streamer.Close()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("decode asset: %w", err)
	}
	if buffer.Len() == 0 {
		return nil, ErrEmptyAsset
	}

	var s beep.Streamer = beep.Loop(-1, buffer.Streamer(0, buffer.Len()))
	if format.SampleRate != opts.SampleRate {
		s = beep.Resample(4, format.SampleRate, opts.SampleRate, s)
	}
	return s, nil
}
