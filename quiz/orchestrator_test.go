package quiz

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/timer"
)

type stubCache struct {
	path  string
	err   error
	calls int
	ctx   context.Context
}

func (c *stubCache) Ensure(ctx context.Context, remoteURL string) (string, error) {
	c.calls++
	c.ctx = ctx
	return c.path, c.err
}

type stubSynth struct {
	audio []byte
	err   error
	calls int
	text  string
	voice string
}

func (s *stubSynth) Synthesize(_ context.Context, voiceID, text string) ([]byte, error) {
	s.calls++
	s.voice = voiceID
	s.text = text
	return s.audio, s.err
}

type stubPlayer struct {
	plays   int
	stops   int
	playErr error
	playing bool
	last    []byte
}

func (p *stubPlayer) Play(data []byte) error {
	p.plays++
	p.last = data
	p.playing = true
	return p.playErr
}

func (p *stubPlayer) Stop()           { p.stops++; p.playing = false }
func (p *stubPlayer) IsPlaying() bool { return p.playing }

func newTestOrchestrator() (*Orchestrator, *stubCache, *stubSynth, *stubPlayer) {
	cache := &stubCache{path: "/tmp/photo.jpg"}
	synth := &stubSynth{audio: []byte("mpeg")}
	player := &stubPlayer{}
	o := NewOrchestrator(cache, synth, player, WithPreviewWindow(2*time.Second))
	return o, cache, synth, player
}

var voicedRecord = MemoryRecord{
	ID:         "1",
	PersonName: "Alice",
	Location:   "Paris",
	Event:      "Wedding",
	AssetURL:   "https://example.com/alice.jpg",
	VoiceID:    "voice-1",
}

func TestBeginQuestionRunsFetch(t *testing.T) {
	o, cache, _, _ := newTestOrchestrator()

	cmd := o.BeginQuestion(voicedRecord, KindPerson)
	if o.Stage() != StageCaching {
		t.Fatalf("expected caching stage, got %s", o.Stage())
	}

	msg := cmd()
	ready, ok := msg.(AssetReadyMsg)
	if !ok {
		t.Fatalf("expected AssetReadyMsg, got %T", msg)
	}
	if cache.calls != 1 || ready.Path != "/tmp/photo.jpg" {
		t.Errorf("fetch not routed through cache: calls=%d path=%q", cache.calls, ready.Path)
	}
}

func TestAssetReadyStartsPreview(t *testing.T) {
	o, _, _, _ := newTestOrchestrator()

	cmd := o.BeginQuestion(voicedRecord, KindPerson)
	if next := o.Update(cmd()); next == nil {
		t.Fatal("expected countdown command after asset ready")
	}
	if o.Stage() != StagePreviewing {
		t.Fatalf("expected previewing stage, got %s", o.Stage())
	}
	if o.AssetPath() != "/tmp/photo.jpg" {
		t.Errorf("asset path not recorded: %q", o.AssetPath())
	}
	if o.Remaining() != 2*time.Second {
		t.Errorf("expected full preview window remaining, got %s", o.Remaining())
	}
}

func TestAssetReadySizeFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(path, []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}

	o, cache, _, _ := newTestOrchestrator()
	cache.path = path

	cmd := o.BeginQuestion(voicedRecord, KindPerson)
	o.Update(cmd())
	if o.AssetSize() != 5 {
		t.Errorf("expected asset size 5, got %d", o.AssetSize())
	}
}

func TestAssetFailureDegradesToRevealed(t *testing.T) {
	o, cache, _, _ := newTestOrchestrator()
	boom := errors.New("network down")
	cache.err = boom

	cmd := o.BeginQuestion(voicedRecord, KindPerson)
	if next := o.Update(cmd()); next != nil {
		t.Error("expected no follow-up command on asset failure")
	}
	if o.Stage() != StageRevealed {
		t.Fatalf("expected revealed stage after asset failure, got %s", o.Stage())
	}
	if !errors.Is(o.TransientErr(), boom) {
		t.Errorf("expected transient error %v, got %v", boom, o.TransientErr())
	}

	o.ClearTransientErr()
	if o.TransientErr() != nil {
		t.Error("transient error not cleared")
	}
}

func TestStaleAssetMessagesDiscarded(t *testing.T) {
	o, _, _, _ := newTestOrchestrator()

	first := o.BeginQuestion(voicedRecord, KindPerson)
	staleMsg := first() // gen 1

	o.BeginQuestion(voicedRecord, KindLocation) // gen 2

	if cmd := o.Update(staleMsg); cmd != nil {
		t.Error("stale asset message produced a command")
	}
	if o.Stage() != StageCaching {
		t.Errorf("stale asset message changed stage to %s", o.Stage())
	}

	stale := staleMsg.(AssetReadyMsg)
	if cmd := o.Update(AssetFailedMsg{Gen: stale.Gen, Err: errors.New("old")}); cmd != nil || o.TransientErr() != nil {
		t.Error("stale asset failure mutated state")
	}
}

func TestBeginQuestionCancelsPreviousWork(t *testing.T) {
	o, cache, _, player := newTestOrchestrator()

	cmd := o.BeginQuestion(voicedRecord, KindPerson)
	cmd() // capture the fetch context in the stub
	firstCtx := cache.ctx

	o.BeginQuestion(voicedRecord, KindEvent)
	if firstCtx.Err() == nil {
		t.Error("previous question's context was not canceled")
	}
	if player.stops == 0 {
		t.Error("previous question's audio was not stopped")
	}
}

func TestSpeechSkippedWithoutVoice(t *testing.T) {
	o, _, synth, _ := newTestOrchestrator()

	silent := voicedRecord
	silent.VoiceID = ""
	o.BeginQuestion(silent, KindPerson)

	if cmd := o.startSpeech(); cmd != nil {
		t.Error("expected no synthesis command for a voiceless record")
	}
	if synth.calls != 0 {
		t.Errorf("synthesizer called %d times for a voiceless record", synth.calls)
	}
}

func TestSpeechSynthesizedAndPlayed(t *testing.T) {
	o, _, synth, player := newTestOrchestrator()

	o.BeginQuestion(voicedRecord, KindLocation)
	cmd := o.startSpeech()
	if cmd == nil {
		t.Fatal("expected a synthesis command")
	}

	msg := cmd()
	ready, ok := msg.(SpeechReadyMsg)
	if !ok {
		t.Fatalf("expected SpeechReadyMsg, got %T", msg)
	}
	if synth.voice != "voice-1" {
		t.Errorf("wrong voice requested: %q", synth.voice)
	}
	if synth.text != KindLocation.SpokenPrompt(voicedRecord) {
		t.Errorf("wrong spoken prompt: %q", synth.text)
	}

	o.Update(ready)
	if player.plays != 1 || string(player.last) != "mpeg" {
		t.Errorf("audio not handed to the player: plays=%d", player.plays)
	}
}

func TestStaleSpeechNeverPlays(t *testing.T) {
	o, _, _, player := newTestOrchestrator()

	o.BeginQuestion(voicedRecord, KindPerson)
	cmd := o.startSpeech()
	staleMsg := cmd() // gen 1

	o.BeginQuestion(voicedRecord, KindPerson) // gen 2
	o.Update(staleMsg)
	if player.plays != 0 {
		t.Errorf("stale speech reached the player: plays=%d", player.plays)
	}
}

func TestSpeechFailureIsNotFatal(t *testing.T) {
	o, _, synth, player := newTestOrchestrator()
	synth.err = errors.New("synthesis unavailable")

	cmd := o.BeginQuestion(voicedRecord, KindPerson)
	o.Update(cmd())

	speech := o.startSpeech()
	msg := speech()
	if _, ok := msg.(SpeechFailedMsg); !ok {
		t.Fatalf("expected SpeechFailedMsg, got %T", msg)
	}

	o.Update(msg)
	if o.Stage() != StagePreviewing {
		t.Errorf("speech failure changed stage to %s", o.Stage())
	}
	if o.TransientErr() != nil {
		t.Errorf("speech failure surfaced as transient error: %v", o.TransientErr())
	}
	if player.plays != 0 {
		t.Error("failed synthesis still reached the player")
	}
}

func TestPlaybackFailureIsNotFatal(t *testing.T) {
	o, _, _, player := newTestOrchestrator()
	player.playErr = errors.New("no audio device")

	cmd := o.BeginQuestion(voicedRecord, KindPerson)
	o.Update(cmd())
	o.Update(SpeechReadyMsg{Gen: 1, Audio: []byte("mpeg")})

	if o.Stage() != StagePreviewing {
		t.Errorf("playback failure changed stage to %s", o.Stage())
	}
}

func TestCountdownTimeoutReveals(t *testing.T) {
	o, _, _, _ := newTestOrchestrator()

	cmd := o.BeginQuestion(voicedRecord, KindPerson)
	o.Update(cmd())

	// A timeout for some other timer must be ignored.
	if cmd := o.Update(timer.TimeoutMsg{ID: o.countdown.ID() + 1}); cmd != nil {
		t.Error("foreign timer timeout produced a command")
	}
	if o.Stage() != StagePreviewing {
		t.Fatalf("foreign timeout changed stage to %s", o.Stage())
	}

	reveal := o.Update(timer.TimeoutMsg{ID: o.countdown.ID()})
	if o.Stage() != StageRevealed {
		t.Fatalf("expected revealed stage after timeout, got %s", o.Stage())
	}
	if reveal == nil {
		t.Fatal("expected a reveal notification command")
	}
	msg, ok := reveal().(RevealedMsg)
	if !ok || msg.Gen != 1 {
		t.Errorf("expected RevealedMsg for gen 1, got %#v", reveal())
	}
}

func TestReplayPreviewSkipsSynthesis(t *testing.T) {
	o, _, synth, _ := newTestOrchestrator()

	cmd := o.BeginQuestion(voicedRecord, KindPerson)
	o.Update(cmd())
	o.Update(timer.TimeoutMsg{ID: o.countdown.ID()})

	before := synth.calls
	replay := o.ReplayPreview()
	if replay == nil {
		t.Fatal("expected a countdown command from replay")
	}
	if o.Stage() != StagePreviewing {
		t.Fatalf("expected previewing stage after replay, got %s", o.Stage())
	}
	if synth.calls != before {
		t.Error("replay re-triggered speech synthesis")
	}

	// The replayed countdown still reveals on timeout.
	o.Update(timer.TimeoutMsg{ID: o.countdown.ID()})
	if o.Stage() != StageRevealed {
		t.Errorf("replayed preview did not reveal, stage=%s", o.Stage())
	}
}

func TestReplayPreviewRequiresAsset(t *testing.T) {
	o, cache, _, _ := newTestOrchestrator()
	cache.err = errors.New("gone")

	cmd := o.BeginQuestion(voicedRecord, KindPerson)
	o.Update(cmd()) // degrades to revealed, no asset

	if replay := o.ReplayPreview(); replay != nil {
		t.Error("replay offered without a cached asset")
	}
	if o.Stage() != StageRevealed {
		t.Errorf("failed replay changed stage to %s", o.Stage())
	}
}

func TestShutdownStopsEverything(t *testing.T) {
	o, _, _, player := newTestOrchestrator()

	o.BeginQuestion(voicedRecord, KindPerson)
	o.Shutdown()

	if o.Stage() != StageIdle {
		t.Errorf("expected idle stage after shutdown, got %s", o.Stage())
	}
	if player.stops == 0 {
		t.Error("shutdown did not stop playback")
	}
}
