package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"yatravoice/internal/domain/speech"

	"github.com/spf13/viper"
)

const (
	ConfigName = "yatravoice"
	EnvPrefix  = "YATRAVOICE"
)

type Config struct {
	Speech Speech
	Local  Local
	Remote Remote
	Log    Log
	Server Server
}

type Speech struct {
	Language       string
	AutoSpeak      bool
	AutoSpeakDelay time.Duration
	Rate           float64
	FallbackRate   float64
	Pitch          float64
	Volume         float64
}

type Local struct {
	Engine       string
	VoiceRefresh time.Duration
}

type Remote struct {
	Type                  string
	URL                   string
	Timeout               time.Duration
	ChunkLimit            int
	CacheDir              string
	CacheEntries          int
	GoogleVoice           string
	GoogleCredentialsFile string
}

type Log struct {
	Level  string
	Format string
}

type Server struct {
	Addr string
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("speech.language", speech.LanguageEnglish)
	v.SetDefault("speech.auto_speak", true)
	v.SetDefault("speech.auto_speak_delay", 300*time.Millisecond)
	v.SetDefault("speech.rate", 0.8) // Slower for clarity
	v.SetDefault("speech.fallback_rate", 0.75)
	v.SetDefault("speech.pitch", 1.0)
	v.SetDefault("speech.volume", 1.0)

	v.SetDefault("local.engine", "auto") // Auto-select best engine
	v.SetDefault("local.voice_refresh", 30*time.Second)

	v.SetDefault("remote.type", "backend")
	v.SetDefault("remote.url", "http://localhost:5000/api")
	v.SetDefault("remote.timeout", 15*time.Second)
	v.SetDefault("remote.chunk_limit", speech.DefaultChunkLimit)
	v.SetDefault("remote.cache_dir", "")
	v.SetDefault("remote.cache_entries", 256)
	v.SetDefault("remote.google.voice", "")
	v.SetDefault("remote.google.credentials_file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.addr", "127.0.0.1:8787")
}

// Setup prepares v to read yatravoice.yaml and YATRAVOICE_* variables.
// An explicit file overrides the search path.
func Setup(v *viper.Viper, file string) {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.yatravoice")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Read loads the config file if there is one. A missing file from the search
// path is not an error.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load builds a validated Config from v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Speech: Speech{
			Language:       speech.NormalizeLanguage(v.GetString("speech.language")),
			AutoSpeak:      v.GetBool("speech.auto_speak"),
			AutoSpeakDelay: v.GetDuration("speech.auto_speak_delay"),
			Rate:           v.GetFloat64("speech.rate"),
			FallbackRate:   v.GetFloat64("speech.fallback_rate"),
			Pitch:          v.GetFloat64("speech.pitch"),
			Volume:         v.GetFloat64("speech.volume"),
		},
		Local: Local{
			Engine:       strings.ToLower(v.GetString("local.engine")),
			VoiceRefresh: v.GetDuration("local.voice_refresh"),
		},
		Remote: Remote{
			Type:                  strings.ToLower(v.GetString("remote.type")),
			URL:                   v.GetString("remote.url"),
			Timeout:               v.GetDuration("remote.timeout"),
			ChunkLimit:            v.GetInt("remote.chunk_limit"),
			CacheDir:              v.GetString("remote.cache_dir"),
			CacheEntries:          v.GetInt("remote.cache_entries"),
			GoogleVoice:           v.GetString("remote.google.voice"),
			GoogleCredentialsFile: v.GetString("remote.google.credentials_file"),
		},
		Log: Log{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Server: Server{
			Addr: v.GetString("server.addr"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var (
	localEngines = []string{"auto", "espeak", "say", "sapi", "mock", "none"}
	remoteTypes  = []string{"backend", "google", "none"}
	logLevels    = []string{"trace", "debug", "info", "warn", "warning", "error", "fatal", "panic"}
	logFormats   = []string{"text", "json"}
)

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if !speech.IsSupported(c.Speech.Language) {
		errs = append(errs, fmt.Errorf("speech.language: unsupported language %q", c.Speech.Language))
	}
	if c.Speech.AutoSpeakDelay < 0 {
		errs = append(errs, errors.New("speech.auto_speak_delay must not be negative"))
	}
	if c.Speech.Rate <= 0 || c.Speech.Rate > 3.0 {
		errs = append(errs, errors.New("speech.rate must be between 0.1 and 3.0"))
	}
	if c.Speech.FallbackRate <= 0 || c.Speech.FallbackRate > 3.0 {
		errs = append(errs, errors.New("speech.fallback_rate must be between 0.1 and 3.0"))
	}
	if c.Speech.Pitch <= 0 || c.Speech.Pitch > 2.0 {
		errs = append(errs, errors.New("speech.pitch must be between 0.1 and 2.0"))
	}
	if c.Speech.Volume < 0 || c.Speech.Volume > 1.0 {
		errs = append(errs, errors.New("speech.volume must be between 0 and 1.0"))
	}

	if !oneOf(c.Local.Engine, localEngines) {
		errs = append(errs, fmt.Errorf("local.engine: must be one of %s", strings.Join(localEngines, ", ")))
	}

	if !oneOf(c.Remote.Type, remoteTypes) {
		errs = append(errs, fmt.Errorf("remote.type: must be one of %s", strings.Join(remoteTypes, ", ")))
	}
	if c.Remote.Type == "backend" {
		if u, err := url.Parse(c.Remote.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("remote.url: %q is not an absolute URL", c.Remote.URL))
		}
	}
	if c.Remote.Timeout <= 0 {
		errs = append(errs, errors.New("remote.timeout must be positive"))
	}
	if c.Remote.ChunkLimit <= 0 || c.Remote.ChunkLimit > speech.DefaultChunkLimit {
		errs = append(errs, fmt.Errorf("remote.chunk_limit must be between 1 and %d", speech.DefaultChunkLimit))
	}
	if c.Remote.CacheEntries < 0 {
		errs = append(errs, errors.New("remote.cache_entries must not be negative"))
	}

	if !oneOf(c.Log.Level, logLevels) {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	if !oneOf(c.Log.Format, logFormats) {
		errs = append(errs, fmt.Errorf("log.format: must be text or json"))
	}

	return errors.Join(errs...)
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
