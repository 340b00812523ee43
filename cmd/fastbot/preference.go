package main

import (
	"os"

	"fastbot/internal/config"
	"fastbot/internal/preference"
)

// loadPreference reads every §6.4 config file named in cfg, skipping any
// that is unset or unreadable — the same best-effort posture
// config.Load itself takes for a missing fastbot.yaml.
func loadPreference(cfg config.RewriteConfig) (*preference.Preference, error) {
	read := func(path string) []byte {
		if path == "" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		return data
	}

	sources := preference.Sources{
		Mapping:        read(cfg.MappingPath),
		Config:         read(cfg.ConfigPath),
		Strings:        read(cfg.StringsPath),
		FuzzingStrings: read(cfg.FuzzingPath),
		XPathActions:   read(cfg.XPathActionsPath),
		BlackWidgets:   read(cfg.BlackWidgetsPath),
		TreePruning:    read(cfg.TreePruningPath),
		ValidStrings:   read(cfg.ValidStringsPath),
	}
	return preference.Load(sources, cfg)
}
