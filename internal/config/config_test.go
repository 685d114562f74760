package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Speech.Language != "en" || !cfg.Speech.AutoSpeak {
		t.Errorf("speech = %+v", cfg.Speech)
	}
	if cfg.Speech.AutoSpeakDelay != 300*time.Millisecond {
		t.Errorf("auto speak delay = %v", cfg.Speech.AutoSpeakDelay)
	}
	if cfg.Speech.Rate != 0.8 || cfg.Speech.FallbackRate != 0.75 {
		t.Errorf("rates = %v/%v", cfg.Speech.Rate, cfg.Speech.FallbackRate)
	}
	if cfg.Remote.ChunkLimit != 200 || cfg.Remote.URL != "http://localhost:5000/api" {
		t.Errorf("remote = %+v", cfg.Remote)
	}
	if cfg.Local.Engine != "auto" || cfg.Log.Level != "info" {
		t.Errorf("local/log = %+v %+v", cfg.Local, cfg.Log)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "yatravoice.yaml")
	content := `
speech:
  language: te
  auto_speak: false
remote:
  type: google
  google:
    voice: te-IN-Standard-A
`
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("YATRAVOICE_LOCAL_ENGINE", "mock")

	v := viper.New()
	Setup(v, file)
	if err := Read(v); err != nil {
		t.Fatalf("Read: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Speech.Language != "te" || cfg.Speech.AutoSpeak {
		t.Errorf("speech = %+v", cfg.Speech)
	}
	if cfg.Remote.Type != "google" || cfg.Remote.GoogleVoice != "te-IN-Standard-A" {
		t.Errorf("remote = %+v", cfg.Remote)
	}
	if cfg.Local.Engine != "mock" {
		t.Errorf("local.engine = %q, want mock from env", cfg.Local.Engine)
	}
}

func TestReadMissingSearchPathIsFine(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())

	v := viper.New()
	Setup(v, "")
	if err := Read(v); err != nil {
		t.Fatalf("Read: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(v *viper.Viper)
		wantErr string
	}{
		{"unsupported language", func(v *viper.Viper) { v.Set("speech.language", "fr") }, "speech.language"},
		{"rate out of range", func(v *viper.Viper) { v.Set("speech.rate", 5) }, "speech.rate"},
		{"unknown engine", func(v *viper.Viper) { v.Set("local.engine", "festival") }, "local.engine"},
		{"unknown remote", func(v *viper.Viper) { v.Set("remote.type", "polly") }, "remote.type"},
		{"relative url", func(v *viper.Viper) { v.Set("remote.url", "/api") }, "remote.url"},
		{"zero chunk limit", func(v *viper.Viper) { v.Set("remote.chunk_limit", 0) }, "remote.chunk_limit"},
		{"chunk limit above service cap", func(v *viper.Viper) { v.Set("remote.chunk_limit", 500) }, "remote.chunk_limit"},
		{"chunk limit at service cap", func(v *viper.Viper) { v.Set("remote.chunk_limit", 200) }, ""},
		{"bad log format", func(v *viper.Viper) { v.Set("log.format", "xml") }, "log.format"},
		{"url ignored without backend", func(v *viper.Viper) {
			v.Set("remote.type", "none")
			v.Set("remote.url", "")
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			tt.mutate(v)

			_, err := Load(v)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Load: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
