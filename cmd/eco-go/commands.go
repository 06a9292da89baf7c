package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/chriscow/eco-go/internal/config"
	"github.com/chriscow/eco-go/internal/journal"
	"github.com/chriscow/eco-go/pkg/advice"
	"github.com/chriscow/eco-go/pkg/ai/classify"
	"github.com/chriscow/eco-go/pkg/ai/stt"
	"github.com/chriscow/eco-go/pkg/audio/wav"
	"github.com/chriscow/eco-go/pkg/plugin"
	"github.com/chriscow/eco-go/pkg/rtc"
	"github.com/chriscow/eco-go/pkg/source"
	"github.com/chriscow/eco-go/pkg/vision"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a single image and print the ranked predictions",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		provider := cfg.Classifier.Provider
		if v, _ := cmd.Flags().GetString("classifier"); v != "" {
			provider = v
		}
		path, _ := cmd.Flags().GetString("image")

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		img, format, err := source.Decode(f)
		f.Close()
		if err != nil {
			return err
		}
		logger.Debug("Decoded image", slog.String("format", format), slog.String("path", path))

		c, err := newClassifier(cfg, provider)
		if err != nil {
			return err
		}
		defer closeClassifier(c, logger)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if loader, ok := c.(classify.Loader); ok {
			if err := loader.Load(ctx); err != nil {
				return err
			}
		}

		res, err := c.Predict(ctx, rtc.VideoFrame{Image: img, Captured: time.Now(), Source: path})
		if err != nil {
			return err
		}

		fmt.Printf("%-12s %s\n", "LABEL", "CONFIDENCE")
		for _, p := range res.Ranked() {
			fmt.Printf("%-12s %6.2f%%\n", p.Label, p.Confidence*100)
		}
		if top, ok := res.Top(); ok && top.Confidence < cfg.Loop.ConfidenceThreshold {
			fmt.Printf("(top prediction is below the %.2f confidence threshold)\n", cfg.Loop.ConfidenceThreshold)
			if book, err := loadBook(cfg); err != nil {
				logger.Warn("Advice book unavailable", slog.String("error", err.Error()))
			} else if hint := book.Hint(res, cfg.Loop.ConfidenceThreshold); hint != "" {
				fmt.Println(hint)
			}
		}
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a recycling question, typed or as a WAV recording",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		wavPath, _ := cmd.Flags().GetString("wav")
		question := strings.Join(args, " ")
		if question == "" && wavPath == "" {
			return errors.New("give a question or --wav")
		}

		book, err := loadBook(cfg)
		if err != nil {
			return err
		}

		var dispatcher advice.Dispatcher
		speak, _ := cmd.Flags().GetBool("speak")
		var synthD synthDispatcher
		if speak {
			synth, err := newSynth(cfg, logger)
			if err != nil {
				return err
			}
			if synth == nil {
				return errors.New("speech is disabled in the config")
			}
			synthD = synthDispatcher{synth: synth}
			dispatcher = synthD
		}

		assistant, err := newAssistant(cfg, book, newAssistantDeps(cfg, logger), dispatcher, logger)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		var ans advice.Answer
		if wavPath != "" {
			r, err := wav.Open(wavPath)
			if err != nil {
				return err
			}
			frames, err := r.ReadFrames()
			r.Close()
			if err != nil {
				return err
			}
			ans, err = assistant.Listen(ctx, stt.Utterance{Frames: frames})
			if err != nil {
				return err
			}
			fmt.Printf("Q: %s\n", ans.Question)
		} else {
			ans, err = assistant.Ask(ctx, question)
			if err != nil {
				return err
			}
		}
		fmt.Println(ans.Text)

		if j, err := openJournal(cfg, logger); err != nil {
			logger.Warn("Journal unavailable", slog.String("error", err.Error()))
		} else if j != nil {
			if err := j.RecordAnswer(ctx, "cli-"+uuid.NewString(), ans); err != nil {
				logger.Warn("Failed to journal answer", slog.String("error", err.Error()))
			}
			j.Close()
		}

		if synthD.synth != nil && ans.Spoken {
			return synthD.synth.Wait(ctx)
		}
		return nil
	},
}

var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Plugin management commands",
}

var pluginListCmd = &cobra.Command{
	Use:   "list [kind]",
	Short: "List registered plugins",
	Long: `List all registered plugins or plugins of a specific kind.
Available kinds: classifier, source, tts, stt, llm`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := ""
		if len(args) > 0 {
			kind = args[0]
		}

		plugins := plugin.List(kind)
		if len(plugins) == 0 {
			if kind == "" {
				fmt.Println("No plugins registered")
			} else {
				fmt.Printf("No plugins registered for kind: %s\n", kind)
			}
			return nil
		}

		fmt.Printf("%-11s %-10s %-8s %s\n", "KIND", "NAME", "VERSION", "DESCRIPTION")
		for _, p := range plugins {
			ver := p.Version
			if ver == "" {
				ver = "N/A"
			}
			files := ""
			if p.Downloader != nil {
				files = " [model files]"
			}
			fmt.Printf("%-11s %-10s %-8s %s%s\n", p.Kind, p.Name, ver, p.Description, files)

			keys := make([]string, 0, len(p.Config))
			for k := range p.Config {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%32s: %v\n", k, p.Config[k])
			}
		}
		return nil
	},
}

var pluginDownloadCmd = &cobra.Command{
	Use:   "download-files",
	Short: "Download missing model files for all registered plugins",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		// files already present with a matching hash are skipped, so plugins
		// sharing a model only download it once
		var errs []error
		for _, p := range plugin.List("") {
			if p.Downloader == nil {
				continue
			}
			logger.Info("Downloading model files", slog.String("kind", p.Kind), slog.String("name", p.Name))
			if err := p.Downloader.Download(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s/%s: %w", p.Kind, p.Name, err))
			}
		}
		return errors.Join(errs...)
	},
}

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Classifier model commands",
}

var modelDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download classifier models into the model path",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		d := vision.NewDownloader(cfg.Model.Path, cfg.Model.URL)

		if status, _ := cmd.Flags().GetBool("status"); status {
			st := d.GetModelStatus()
			names := make([]string, 0, len(st))
			for name := range st {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				state := "missing"
				if st[name] {
					state = "ok"
				}
				fmt.Printf("%-12s %s\n", name, state)
			}
			return nil
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return d.DownloadAll(ctx)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		if path == "" {
			path = config.DefaultPath()
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.DefaultConfig().SaveToFile(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent verdicts and answers from the journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		j, err := journal.Open(cfg.Journal.Path, logger)
		if err != nil {
			return err
		}
		defer j.Close()

		ctx := context.Background()
		var entries []journal.Entry
		if session, _ := cmd.Flags().GetString("session"); session != "" {
			entries, err = j.Session(ctx, session)
		} else {
			limit, _ := cmd.Flags().GetInt("limit")
			entries, err = j.Recent(ctx, limit)
		}
		if err != nil {
			return err
		}

		for _, e := range entries {
			switch e.Kind {
			case journal.KindVerdict:
				fmt.Printf("%s  %-8s %-10s %5.1f%%  spoken=%t  %s\n",
					e.At.Local().Format(time.DateTime), e.Kind, e.Label, e.Confidence*100, e.Spoken, e.Text)
			default:
				fmt.Printf("%s  %-8s %-10s Q: %s\n%30s A: %s\n",
					e.At.Local().Format(time.DateTime), e.Kind, e.Source, e.Detail, "", e.Text)
			}
		}
		return nil
	},
}
