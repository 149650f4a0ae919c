// Package audio plays synthesized prompt audio through the system
// audio device using oto.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to 16-bit stereo at the stream's sample rate.
const channelCount = 2

// Player decodes MPEG audio and plays it. Stop is prompt and
// idempotent; the orchestrator calls it unconditionally on every
// question switch.
type Player struct {
	mu sync.Mutex

	// OTO context - initialized on first play and reused. Its sample
	// rate is fixed for the process lifetime.
	context    *oto.Context
	sampleRate int

	player *oto.Player

	// Keep decoded PCM alive while the oto player reads from it.
	active []byte
}

// NewPlayer creates an audio player. The audio device is opened lazily
// on first play so a speech-less session never touches it.
func NewPlayer() *Player {
	return &Player{}
}

// Play decodes the MPEG payload and starts playback, stopping whatever
// was playing before. It returns once playback has started; audio runs
// asynchronously from there.
func (p *Player) Play(mpeg []byte) error {
	if len(mpeg) == 0 {
		return errors.New("audio data is empty")
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(mpeg))
	if err != nil {
		return fmt.Errorf("unable to decode audio: %w", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return fmt.Errorf("unable to decode audio: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureContext(dec.SampleRate()); err != nil {
		return err
	}
	p.stopLocked()

	p.active = pcm
	p.player = p.context.NewPlayer(bytes.NewReader(p.active))
	p.player.Play()
	return nil
}

// Stop halts playback. Safe to call at any time, including when
// nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// IsPlaying reports whether audio is currently playing.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.player != nil && p.player.IsPlaying()
}

// Close stops playback and releases the player. The oto context itself
// has no close in v3; it is dropped for GC.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.context = nil
}

func (p *Player) stopLocked() {
	if p.player != nil {
		p.player.Pause()
		p.player.Close() //nolint:errcheck
		p.player = nil
	}
	p.active = nil
}

func (p *Player) ensureContext(sampleRate int) error {
	if p.context != nil {
		if p.sampleRate != sampleRate {
			return fmt.Errorf("audio device opened at %d Hz, stream is %d Hz", p.sampleRate, sampleRate)
		}
		return nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return fmt.Errorf("unable to open audio device: %w", err)
	}
	<-ready

	p.context = ctx
	p.sampleRate = sampleRate
	return nil
}
