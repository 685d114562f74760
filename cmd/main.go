package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"yatravoice/internal/api"
	"yatravoice/internal/chat/console"
	"yatravoice/internal/cli/scheme/colours"
	"yatravoice/internal/config"
	"yatravoice/internal/domain/speech"
	"yatravoice/internal/speech/remote"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	v       = viper.New()
	cfgFile string
	cfg     config.Config
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye! Shubh yatra! 🪔"))
		// A second signal exits without waiting for cleanup.
		<-sigChan
		os.Exit(1)
	}()

	rootCmd := &cobra.Command{
		Use:   "yatravoice",
		Short: "🔊 Read assistant replies aloud",
		Long: `
┌─────────────────────────────────────────┐
│  🔊 yatravoice 🪔                       │
│  Speech playback for the Yatra chat     │
│  English and Indian languages           │
└─────────────────────────────────────────┘

yatravoice reads assistant replies aloud with an on-device voice when one
fits the language, and with the remote speech service otherwise.
		`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.Setup(v, cfgFile)
			if err := config.Read(v); err != nil {
				return err
			}
			loaded, err := config.Load(v)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $HOME/.yatravoice/yatravoice.yaml)")
	rootCmd.PersistentFlags().StringP("lang", "l", "", "Language code to speak in (en, hi, te, ...)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	_ = v.BindPFlag("speech.language", rootCmd.PersistentFlags().Lookup("lang"))
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	// Say command
	sayCmd := &cobra.Command{
		Use:   "say [text]",
		Short: "🗣️ Read a piece of text aloud",
		Long:  "Speak the given text once and wait until playback finishes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, _ := cmd.Flags().GetInt("index")
			if index < 0 {
				return fmt.Errorf("--index must not be negative, got %d", index)
			}
			return runSay(ctx, strings.Join(args, " "), index)
		},
	}

	// Chat command
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "💬 Start an interactive chat session",
		Long:  "Add messages to a conversation and read assistant replies aloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(ctx)
		},
	}

	// Voices command
	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🎙️ List on-device voices",
		Long:  "Show the voices the local speech engine reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVoices(ctx)
		},
	}

	// Languages command
	languagesCmd := &cobra.Command{
		Use:   "languages",
		Short: "🌐 List supported languages",
		Long:  "Show the supported languages, or the ones the speech service reports with --remote",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromRemote, _ := cmd.Flags().GetBool("remote")
			return runLanguages(ctx, fromRemote)
		},
	}

	// Serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "🛰️ Run the control API",
		Long:  "Expose toggle, stop and speaking state over HTTP and WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(ctx)
		},
	}

	// Add flags
	sayCmd.Flags().Int("index", 0, "Message index reported while speaking")
	languagesCmd.Flags().Bool("remote", false, "Ask the remote speech service")
	serveCmd.Flags().String("addr", "", "Listen address")
	_ = v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(sayCmd, chatCmd, voicesCmd, languagesCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}

func runSay(ctx context.Context, text string, index int) error {
	a, err := newApp(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer a.close()

	if !a.coord.Supported() {
		return fmt.Errorf("speech is not supported on this device: %w", speech.ErrSynthesisUnavailable)
	}

	colours.Assistant.Printf("🤖 %s\n", text)
	a.coord.Speak(text, index)

	if err := a.coord.WaitIdle(ctx); err != nil {
		a.coord.Stop()
	}
	return nil
}

func runChat(ctx context.Context) error {
	a, err := newApp(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer a.close()

	session := console.NewSession(a.conv, a.coord, os.Stdin, os.Stdout, a.log)
	if !a.coord.Supported() {
		colours.Warning.Println("⚠️  Speech is not supported on this device. Messages will not be read aloud.")
	}
	session.ShowWelcome()
	return session.Run(ctx)
}

func runVoices(ctx context.Context) error {
	a, err := newApp(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer a.close()

	if a.adapter == nil {
		colours.Warning.Println("⚠️  No local speech engine is available")
		return nil
	}

	voices, err := a.adapter.Voices(ctx)
	if err != nil {
		return fmt.Errorf("list voices: %w", err)
	}

	colours.Title.Printf("🎙️ %d voices from %s\n\n", len(voices), a.adapter.Name())
	for _, voice := range voices {
		fmt.Printf("  • %-40s %s\n", voice.Name, colours.Info.Sprint(voice.LanguageTag))
	}
	return nil
}

func runLanguages(ctx context.Context, fromRemote bool) error {
	languages := speech.Languages()

	if fromRemote {
		backend, err := remote.NewBackendService(cfg.Remote.URL, cfg.Remote.Timeout, nil)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(ctx, cfg.Remote.Timeout)
		defer cancel()
		if languages, err = backend.Languages(ctx); err != nil {
			return fmt.Errorf("list remote languages: %w", err)
		}
	}

	colours.Title.Println("🌐 Supported languages:")
	fmt.Println()
	for _, lang := range languages {
		fmt.Printf("  • %-4s %s\n", colours.Success.Sprint(lang.Code), lang.Name)
	}
	return nil
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer a.close()

	server := api.New(a.coord, a.conv, a.voices, a.hub, a.metrics, a.log)
	colours.Success.Printf("🛰️  Control API on http://%s\n", cfg.Server.Addr)

	start := time.Now()
	err = server.Run(ctx, cfg.Server.Addr)
	a.log.WithField("uptime", time.Since(start).Round(time.Second)).Info("Control API stopped")
	return err
}
