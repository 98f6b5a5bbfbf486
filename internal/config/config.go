package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Config holds all configurable ttycap settings.
type Config struct {
	Shell        string `json:"shell"`         // override $SHELL for recorded sessions
	TimingFormat string `json:"timing_format"` // "classic" | "advanced"
	OutputDir    string `json:"output_dir"`    // default directory for transcript files
	HistoryPath  string `json:"history_path"`  // override recording-history location
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		TimingFormat: "classic",
		OutputDir:    ".",
	}
}

// LoadGlobal reads ~/.config/ttycap/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(home, ".config", "ttycap", "config.json")
	return loadFile(path, true)
}

// LoadProject reads .ttycaprc in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".ttycaprc", false)
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()

	// Apply global values over defaults.
	if global != nil {
		if global.Shell != "" {
			result.Shell = global.Shell
		}
		if global.TimingFormat != "" {
			result.TimingFormat = global.TimingFormat
		}
		if global.OutputDir != "" {
			result.OutputDir = global.OutputDir
		}
		if global.HistoryPath != "" {
			result.HistoryPath = global.HistoryPath
		}
	}

	// Apply project values over global.
	if project != nil {
		if project.Shell != "" {
			result.Shell = project.Shell
		}
		if project.TimingFormat != "" {
			result.TimingFormat = project.TimingFormat
		}
		if project.OutputDir != "" {
			result.OutputDir = project.OutputDir
		}
		if project.HistoryPath != "" {
			result.HistoryPath = project.HistoryPath
		}
	}

	return result
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
