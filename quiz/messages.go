package quiz

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// Messages for Bubble Tea communication between the orchestrator and
// the UI. Every async message carries the generation it was started
// for; the orchestrator drops anything stamped with an old generation.

// AssetReadyMsg indicates the current question's photo is resolved to a
// local file.
type AssetReadyMsg struct {
	Gen  int
	Path string
	Size int64
}

// AssetFailedMsg indicates the photo could not be fetched. The quiz
// degrades to revealing the question without a preview.
type AssetFailedMsg struct {
	Gen int
	Err error
}

// SpeechReadyMsg carries synthesized prompt audio ready for playback.
type SpeechReadyMsg struct {
	Gen   int
	Audio []byte
}

// SpeechFailedMsg indicates synthesis failed. Never fatal.
type SpeechFailedMsg struct {
	Gen int
	Err error
}

// RevealedMsg indicates the preview window elapsed and the interactive
// question is now exposed. The orchestrator emits it for embedders
// that want to react to the reveal (focus the answer list, announce it
// to a screen reader); embedders that render from Stage alone can
// ignore it.
type RevealedMsg struct {
	Gen int
}

// fetchAssetCmd resolves the asset through the cache off the update loop.
func fetchAssetCmd(ctx context.Context, cache AssetCache, url string, gen int) tea.Cmd {
	return func() tea.Msg {
		path, err := cache.Ensure(ctx, url)
		if err != nil {
			return AssetFailedMsg{Gen: gen, Err: err}
		}
		var size int64
		if fi, err := os.Stat(path); err == nil {
			size = fi.Size()
		}
		return AssetReadyMsg{Gen: gen, Path: path, Size: size}
	}
}

// synthesizeCmd requests prompt audio off the update loop.
func synthesizeCmd(ctx context.Context, synth Synthesizer, voiceID, text string, gen int) tea.Cmd {
	return func() tea.Msg {
		audio, err := synth.Synthesize(ctx, voiceID, text)
		if err != nil {
			return SpeechFailedMsg{Gen: gen, Err: err}
		}
		return SpeechReadyMsg{Gen: gen, Audio: audio}
	}
}
