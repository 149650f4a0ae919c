package ui

// Config contains TUI-specific configuration.
type Config struct {
	// Record source
	SourceURL    string `env:"RECALL_SOURCE_URL"`
	SourceAPIKey string `env:"RECALL_SOURCE_API_KEY"`

	// Speech synthesis. An empty API key disables speech entirely.
	SpeechAPIKey  string `env:"RECALL_SPEECH_API_KEY"`
	SpeechBaseURL string `env:"RECALL_SPEECH_URL"`
	SpeechModelID string `env:"RECALL_SPEECH_MODEL"`

	// Quiz pacing
	PreviewSeconds int `env:"RECALL_PREVIEW_SECONDS" envDefault:"6"`
	Questions      int `env:"RECALL_QUESTIONS"       envDefault:"7"`

	// Local photo cache directory; empty means the platform default.
	CacheDir string `env:"RECALL_CACHE_DIR"`
}
