package main

import (
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

func setOptions(t *testing.T, preview, questions int, debug bool) {
	t.Helper()
	viper.Set("preview.seconds", preview)
	viper.Set("quiz.questions", questions)
	viper.Set("debug", debug)
	t.Cleanup(func() {
		viper.Set("preview.seconds", 6)
		viper.Set("quiz.questions", 7)
		viper.Set("debug", false)
		log.SetLevel(log.InfoLevel)
	})
}

func TestValidateOptionsRanges(t *testing.T) {
	setOptions(t, 6, 7, false)
	if err := validateOptions(); err != nil {
		t.Errorf("defaults rejected: %v", err)
	}

	setOptions(t, 0, 7, false)
	if err := validateOptions(); err == nil {
		t.Error("expected an error for preview below range")
	}

	setOptions(t, 6, 8, false)
	if err := validateOptions(); err == nil {
		t.Error("expected an error for questions above range")
	}
}

func TestValidateOptionsAppliesDebugLevel(t *testing.T) {
	setOptions(t, 6, 7, false)
	log.SetLevel(log.InfoLevel)
	if err := validateOptions(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.GetLevel() == log.DebugLevel {
		t.Fatal("debug level applied without the option set")
	}

	setOptions(t, 6, 7, true)
	if err := validateOptions(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.GetLevel() != log.DebugLevel {
		t.Error("debug option did not raise the log level")
	}
}
