package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/v0xg/uxspec/internal/app"
	"github.com/v0xg/uxspec/internal/config"
	"github.com/v0xg/uxspec/internal/logging"
)

var version = "dev"

var (
	configPath string
	provider   string
	model      string
	exporter   string
	webhookURL string
	markers    bool
	verbose    bool
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "uxspec",
		Short: "Turn design files into structured UX specifications",
		Long: `uxspec walks a Figma file, classifies the content of every screen,
resolves the navigation flows between screens and forwards the result to an
analysis workflow or a vision model.

A source is either a Figma file key (fetched with FIGMA_TOKEN) or the path of
a .json export of the file.

Example:
  uxspec scan AbC123xyz -o project.json
  uxspec screen export.json 12:34 --ai`,
		SilenceUsage: true,
		Version:      version,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&provider, "provider", "", "AI provider: claude, openai (default: from env or claude)")
	pf.StringVar(&model, "model", "", "Specific model override")
	pf.StringVar(&exporter, "exporter", "", "Screenshot exporter: api, browser, none")
	pf.StringVar(&webhookURL, "webhook-url", "", "Analysis webhook URL")
	pf.BoolVar(&markers, "markers", false, "Draw element markers on screenshots sent to the AI")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")

	rootCmd.AddCommand(
		scanCmd(),
		screenCmd(),
		analyzeCmd(),
		flowsCmd(),
		flowgifCmd(),
		serveCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies the flags the user set
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.AI.Provider = provider
	}
	if flags.Changed("model") {
		cfg.AI.Model = model
	}
	if flags.Changed("exporter") {
		cfg.Figma.Exporter = exporter
	}
	if flags.Changed("webhook-url") {
		cfg.Webhook.URL = webhookURL
	}
	if flags.Changed("markers") {
		cfg.AI.Markers = markers
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.Validate()
}

// setup loads the configuration and builds the collaborators
func setup(cmd *cobra.Command, pluginQueue bool) (*app.Deps, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(os.Stderr, "uxspec", cfg.Log.Level)
	return app.Build(cfg, logger, pluginQueue)
}

// writeOutput writes v as indented JSON to path, or to stdout when path is "-"
func writeOutput(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" || path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// step prints a progress line start; the returned func completes it
func step(format string, args ...any) func(err error, done string, doneArgs ...any) {
	fmt.Fprintf(os.Stderr, "→ "+format+"... ", args...)
	return func(err error, done string, doneArgs ...any) {
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed")
			return
		}
		if done == "" {
			fmt.Fprintln(os.Stderr, "done")
			return
		}
		fmt.Fprintf(os.Stderr, "done ("+done+")\n", doneArgs...)
	}
}

func logVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
