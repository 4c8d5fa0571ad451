package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "ASKDESK_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "gemini.api_key", typ: kString, env: "ASKDESK_GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.APIKey },
	},
	{
		key: "gemini.rich_model", typ: kString, env: "ASKDESK_GEMINI_RICH_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.RichModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.RichModel },
	},
	{
		key: "gemini.fast_model", typ: kString, env: "ASKDESK_GEMINI_FAST_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.FastModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.FastModel },
	},
	{
		key: "gemini.failure_marker", typ: kString, env: "ASKDESK_GEMINI_FAILURE_MARKER",
		apply:   func(cfg *Config, v any) { cfg.Gemini.FailureMarker = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.FailureMarker },
	},
	{
		key: "storage.data_dir", typ: kString, env: "ASKDESK_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "knowledge.max_results", typ: kInt, env: "ASKDESK_KNOWLEDGE_MAX_RESULTS",
		apply:   func(cfg *Config, v any) { cfg.Knowledge.MaxResults = v.(int) },
		extract: func(cfg Config) any { return cfg.Knowledge.MaxResults },
	},
	{
		key: "log.level", typ: kString, env: "ASKDESK_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
