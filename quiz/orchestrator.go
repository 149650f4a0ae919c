package quiz

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/timer"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// DefaultPreviewWindow is how long the photo is shown before the
// interactive question is revealed.
const DefaultPreviewWindow = 6 * time.Second

// AssetCache resolves a remote asset URL to a local file, downloading
// at most once per identity per session.
type AssetCache interface {
	Ensure(ctx context.Context, remoteURL string) (string, error)
}

// Synthesizer turns a spoken prompt into audio bytes via a remote call.
type Synthesizer interface {
	Synthesize(ctx context.Context, voiceID, text string) ([]byte, error)
}

// AudioPlayer plays synthesized prompt audio. Stop must be prompt and
// idempotent; it is the cancellation edge for cross-question bleed.
type AudioPlayer interface {
	Play(data []byte) error
	Stop()
	IsPlaying() bool
}

// Stage is the orchestrator's per-question state. Previewing and
// synthesis run concurrently; Revealed is reached only when the preview
// countdown elapses, regardless of where playback is.
type Stage int

const (
	// StageIdle indicates no question is in flight.
	StageIdle Stage = iota
	// StageCaching indicates the photo is being resolved locally.
	StageCaching
	// StagePreviewing indicates the photo is displayed under countdown.
	StagePreviewing
	// StageRevealed indicates the interactive question is exposed.
	StageRevealed
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageCaching:
		return "caching"
	case StagePreviewing:
		return "previewing"
	case StageRevealed:
		return "revealed"
	default:
		return "unknown"
	}
}

// Orchestrator drives the per-question pipeline:
//
//	Idle → Caching → Previewing ‖ Synthesizing → Revealed
//
// Entering a question bumps a generation counter, cancels the previous
// question's context, and stops any playing audio. Every async
// completion is stamped with the generation it was started for, so
// stale work from a replaced question can never mutate current state.
type Orchestrator struct {
	cache  AssetCache
	synth  Synthesizer
	player AudioPlayer

	previewWindow time.Duration
	limiter       *rate.Limiter

	gen    int
	stage  Stage
	cancel context.CancelFunc

	record MemoryRecord
	kind   QuestionKind

	assetPath string
	assetSize int64
	countdown timer.Model

	transientErr error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPreviewWindow overrides the preview countdown duration.
func WithPreviewWindow(d time.Duration) Option {
	return func(o *Orchestrator) { o.previewWindow = d }
}

// NewOrchestrator creates an orchestrator over the given collaborators.
func NewOrchestrator(cache AssetCache, synth Synthesizer, player AudioPlayer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cache:         cache,
		synth:         synth,
		player:        player,
		previewWindow: DefaultPreviewWindow,
		// One synthesis per question under normal pacing; the burst
		// guards the remote endpoint when next is hammered.
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// BeginQuestion cancels all outstanding work for the previous question
// and starts the pipeline for the given record. Cancellation is
// unconditional: the countdown is dropped, audio is stopped, and the
// prior fetch/synthesis context is canceled before anything new starts.
func (o *Orchestrator) BeginQuestion(rec MemoryRecord, kind QuestionKind) tea.Cmd {
	o.cancelOutstanding()

	o.gen++
	o.stage = StageCaching
	o.record = rec
	o.kind = kind
	o.assetPath = ""
	o.assetSize = 0
	o.transientErr = nil

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel

	log.Debug("question pipeline started", "gen", o.gen, "record", rec.ID, "kind", kind)
	return fetchAssetCmd(ctx, o.cache, rec.AssetURL, o.gen)
}

// Update routes async completions and countdown ticks. Messages from a
// previous generation are discarded.
func (o *Orchestrator) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case AssetReadyMsg:
		if msg.Gen != o.gen || o.stage != StageCaching {
			return nil
		}
		o.assetPath = msg.Path
		o.assetSize = msg.Size
		o.stage = StagePreviewing
		o.countdown = timer.NewWithInterval(o.previewWindow, time.Second)

		cmds := []tea.Cmd{o.countdown.Init()}
		if cmd := o.startSpeech(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return tea.Batch(cmds...)

	case AssetFailedMsg:
		if msg.Gen != o.gen || o.stage != StageCaching {
			return nil
		}
		// Degrade gracefully: the quiz stays usable without media.
		log.Warn("asset fetch failed, revealing without preview", "gen", o.gen, "err", msg.Err)
		o.transientErr = msg.Err
		o.stage = StageRevealed
		return nil

	case SpeechReadyMsg:
		if msg.Gen != o.gen {
			// An in-flight synthesis is allowed to complete and be
			// discarded; playback for it must never start.
			return nil
		}
		if err := o.player.Play(msg.Audio); err != nil {
			log.Warn("prompt playback failed", "gen", o.gen, "err", err)
		}
		return nil

	case SpeechFailedMsg:
		if msg.Gen != o.gen {
			return nil
		}
		log.Warn("speech synthesis failed, continuing silently", "gen", o.gen, "err", msg.Err)
		return nil

	case timer.TickMsg:
		var cmd tea.Cmd
		o.countdown, cmd = o.countdown.Update(msg)
		return cmd

	case timer.TimeoutMsg:
		if msg.ID != o.countdown.ID() || o.stage != StagePreviewing {
			return nil
		}
		o.stage = StageRevealed
		gen := o.gen
		return func() tea.Msg { return RevealedMsg{Gen: gen} }
	}
	return nil
}

// ReplayPreview re-enters the preview for the current question without
// re-triggering speech synthesis. The interactive answer state is
// untouched; when the countdown elapses the question is revealed again.
func (o *Orchestrator) ReplayPreview() tea.Cmd {
	if o.assetPath == "" || (o.stage != StageRevealed && o.stage != StagePreviewing) {
		return nil
	}
	o.stage = StagePreviewing
	o.countdown = timer.NewWithInterval(o.previewWindow, time.Second)
	return o.countdown.Init()
}

// Shutdown cancels outstanding work and stops playback.
func (o *Orchestrator) Shutdown() {
	o.cancelOutstanding()
	o.stage = StageIdle
}

func (o *Orchestrator) cancelOutstanding() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.player.Stop()
	// The replaced countdown model stops the old tick chain: its ticks
	// no longer match and are never re-armed.
	o.countdown = timer.Model{}
}

// startSpeech kicks off synthesis for the current prompt, or skips it
// when the record has no voice configured or the limiter pushes back.
func (o *Orchestrator) startSpeech() tea.Cmd {
	if o.record.VoiceID == "" {
		log.Debug("no voice configured, skipping speech", "gen", o.gen, "record", o.record.ID)
		return nil
	}
	if !o.limiter.Allow() {
		log.Warn("speech request throttled", "gen", o.gen)
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	prev := o.cancel
	o.cancel = func() {
		prev()
		cancel()
	}
	return synthesizeCmd(ctx, o.synth, o.record.VoiceID, o.kind.SpokenPrompt(o.record), o.gen)
}

// Stage returns the current pipeline stage.
func (o *Orchestrator) Stage() Stage { return o.stage }

// AssetPath returns the resolved local photo path, empty until cached.
func (o *Orchestrator) AssetPath() string { return o.assetPath }

// AssetSize returns the resolved photo size in bytes.
func (o *Orchestrator) AssetSize() int64 { return o.assetSize }

// Remaining returns the time left in the preview countdown.
func (o *Orchestrator) Remaining() time.Duration { return o.countdown.Timeout }

// TransientErr returns the last user-visible recoverable error.
func (o *Orchestrator) TransientErr() error { return o.transientErr }

// ClearTransientErr dismisses the transient error.
func (o *Orchestrator) ClearTransientErr() { o.transientErr = nil }
