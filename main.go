// Package main provides the entry point for the recall application.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/memorylane/recall/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile     string
	sourceURL      string
	previewSeconds int
	questions      int
	cacheDir       string
	debug          bool

	keyword = lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Render

	rootCmd = &cobra.Command{
		Use:   "recall",
		Short: "A photo recall quiz for reminiscence therapy, in your terminal",
		Long: paragraph(fmt.Sprintf(
			"\nShow %s, ask about them, and keep score. Records come from a configured remote source; photos and spoken prompts are fetched per question.",
			keyword("memory photographs"))),
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return validateOptions()
		},
		RunE: func(*cobra.Command, []string) error {
			return runTUI()
		},
	}
)

func paragraph(s string) string {
	return lipgloss.NewStyle().Width(78).Padding(0, 0, 0, 2).Render(s)
}

func validateOptions() error {
	sourceURL = viper.GetString("source.url")
	previewSeconds = viper.GetInt("preview.seconds")
	questions = viper.GetInt("quiz.questions")
	cacheDir = viper.GetString("cache.dir")
	debug = viper.GetBool("debug")

	// setupLog ran before flag parsing; re-apply the level so --debug
	// and the config key take effect, not just RECALL_DEBUG.
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	if previewSeconds < 1 || previewSeconds > 60 {
		return fmt.Errorf("preview seconds must be between 1 and 60, got %d", previewSeconds)
	}
	if questions < 1 || questions > 7 {
		return fmt.Errorf("questions must be between 1 and 7, got %d", questions)
	}
	return nil
}

func runTUI() error {
	// Read environment first; flags and config file override below.
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	if sourceURL != "" {
		cfg.SourceURL = sourceURL
	}
	if v := viper.GetString("source.api_key"); v != "" {
		cfg.SourceAPIKey = v
	}
	if v := viper.GetString("speech.api_key"); v != "" {
		cfg.SpeechAPIKey = v
	}
	if v := viper.GetString("speech.url"); v != "" {
		cfg.SpeechBaseURL = v
	}
	if v := viper.GetString("speech.model_id"); v != "" {
		cfg.SpeechModelID = v
	}
	if cacheDir != "" {
		cfg.CacheDir = cacheDir
	}
	cfg.PreviewSeconds = previewSeconds
	cfg.Questions = questions

	if cfg.SourceURL == "" {
		return fmt.Errorf("no record source configured: set source.url in %s or RECALL_SOURCE_URL", configFile)
	}

	p, err := ui.NewProgram(cfg)
	if err != nil {
		return err
	}
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

// setupLog keeps logging out of the TUI's way: it goes to the file
// named by RECALL_LOG when set, to stderr when stderr is not a
// terminal, and is discarded otherwise.
func setupLog() (func() error, error) {
	log.SetLevel(log.InfoLevel)
	if debug || os.Getenv("RECALL_DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
	}

	if path := os.Getenv("RECALL_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("unable to open log file: %w", err)
		}
		log.SetOutput(f)
		log.SetReportTimestamp(true)
		return f.Close, nil
	}

	if !term.IsTerminal(int(os.Stderr.Fd())) {
		log.SetOutput(os.Stderr)
		return func() error { return nil }, nil
	}

	log.SetOutput(io.Discard)
	return func() error { return nil }, nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&sourceURL, "source-url", "s", "", "record source URL")
	rootCmd.Flags().IntVarP(&previewSeconds, "preview", "p", 6, "photo preview duration in seconds")
	rootCmd.Flags().IntVarP(&questions, "questions", "n", 7, "number of questions per session (max 7)")
	rootCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "photo cache directory")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	_ = viper.BindPFlag("source.url", rootCmd.Flags().Lookup("source-url"))
	_ = viper.BindPFlag("preview.seconds", rootCmd.Flags().Lookup("preview"))
	_ = viper.BindPFlag("quiz.questions", rootCmd.Flags().Lookup("questions"))
	_ = viper.BindPFlag("cache.dir", rootCmd.Flags().Lookup("cache-dir"))
	_ = viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))

	viper.SetDefault("preview.seconds", 6)
	viper.SetDefault("quiz.questions", 7)

	rootCmd.AddCommand(configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "recall")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "recall")}, dirs...)
	}

	if c := os.Getenv("RECALL_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("recall")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("recall")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "recall.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
