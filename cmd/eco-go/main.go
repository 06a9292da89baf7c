package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/chriscow/eco-go/pkg/plugin"
	_ "github.com/chriscow/eco-go/pkg/plugin/camera" // Import to register frame sources
	_ "github.com/chriscow/eco-go/pkg/plugin/fake"   // Import to register fake plugins
	_ "github.com/chriscow/eco-go/pkg/plugin/onnx"   // Import to register classifiers
	_ "github.com/chriscow/eco-go/pkg/plugin/openai" // Import to register OpenAI plugins
	"github.com/chriscow/eco-go/pkg/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "eco-go",
	Short: "Live waste classification assistant",
	Long: `eco-go watches a camera, classifies what it sees as organic or inorganic
waste, and tells you how to dispose of it once the prediction is stable.
It also answers recycling questions, typed or spoken.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("plugin-dir")
		if dir == "" {
			return nil
		}
		added, err := plugin.LoadDynamicPlugins(dir)
		if err != nil {
			return err
		}
		for _, p := range added {
			slog.Info("Loaded dynamic plugin", slog.String("kind", p.Kind), slog.String("name", p.Name))
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersionInfo())
	},
}

func setupLogger() *slog.Logger {
	logFormat := os.Getenv("ECO_LOG_FORMAT")
	logLevel := os.Getenv("ECO_LOG_LEVEL")

	var handler slog.Handler
	opts := &slog.HandlerOptions{}

	switch logLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	// Logs go to stderr; stdout carries command output
	if logFormat == "console" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./eco.yaml or ~/.eco/eco.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file to load before reading config")
	rootCmd.PersistentFlags().String("plugin-dir", "", "Directory of dynamic plugins to load")

	runCmd.Flags().String("classifier", "", "Classifier provider (overrides config)")
	runCmd.Flags().String("source", "", "Frame source provider (overrides config)")
	runCmd.Flags().Float64("threshold", 0, "Confidence threshold in [0, 1] (overrides config)")
	runCmd.Flags().Bool("mute", false, "Start with speech muted")
	runCmd.Flags().String("metrics", "", "Serve /debug/vars on this address, e.g. :8080 (overrides config)")
	runCmd.Flags().String("control-url", "", "Control server websocket URL (overrides config)")
	runCmd.Flags().Bool("interactive", false, "Answer questions typed on stdin while running")

	classifyCmd.Flags().String("image", "", "Image file to classify")
	classifyCmd.Flags().String("classifier", "", "Classifier provider (overrides config)")
	classifyCmd.MarkFlagRequired("image")

	askCmd.Flags().String("wav", "", "Spoken question as a WAV file")
	askCmd.Flags().Bool("speak", false, "Speak the answer")

	modelDownloadCmd.Flags().Bool("status", false, "Only report which models are present")

	configInitCmd.Flags().String("path", "", "Where to write the file (default ~/.eco/eco.yaml)")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")

	historyCmd.Flags().Int("limit", 20, "Number of entries to show")
	historyCmd.Flags().String("session", "", "Only show entries of this session")

	pluginCmd.AddCommand(pluginListCmd, pluginDownloadCmd)
	modelCmd.AddCommand(modelDownloadCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(versionCmd, runCmd, classifyCmd, askCmd, pluginCmd, modelCmd, configCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
