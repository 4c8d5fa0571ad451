package config

import "os"

type Config struct {
	Server    ServerConfig
	Gemini    GeminiConfig
	Storage   StorageConfig
	Knowledge KnowledgeConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type GeminiConfig struct {
	// APIKey may be empty; the bootstrap records the AI client slot as
	// failed in that case and the service runs degraded.
	APIKey    string
	RichModel string
	FastModel string
	// FailureMarker is the phrase the assistant emits when it cannot
	// produce a grounded answer. The resolver matches on it verbatim, so
	// it is configuration rather than a hardcoded literal.
	FailureMarker string
}

type StorageConfig struct {
	DataDir string
}

type KnowledgeConfig struct {
	MaxResults int
}

type LogConfig struct {
	Level string
}

// DefaultFailureMarker is what the assistant is instructed to say when
// the provided documents do not contain the answer.
const DefaultFailureMarker = "I could not find this information in the available documents."

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Gemini: GeminiConfig{
			RichModel:     "gemini-2.5-flash",
			FastModel:     "gemini-2.5-flash-lite",
			FailureMarker: DefaultFailureMarker,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Knowledge: KnowledgeConfig{
			MaxResults: 5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend and environment
// variables. ASKDESK_* variables override file values; the Gemini
// credential additionally falls back to the plain GEMINI_API_KEY variable.
//
// A missing Gemini credential is NOT an error here: the bootstrap
// sequencer treats it as an ordinary failed subsystem.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	return cfg, nil
}
