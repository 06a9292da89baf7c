package main

import (
	"bufio"
	"context"
	"errors"
	"expvar"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chriscow/eco-go/internal/control"
	"github.com/chriscow/eco-go/pkg/live"
	"github.com/chriscow/eco-go/pkg/plugin"
	"github.com/chriscow/eco-go/pkg/speech"
	"github.com/chriscow/eco-go/pkg/version"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live classification loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if v, _ := cmd.Flags().GetString("classifier"); v != "" {
			cfg.Classifier.Provider = v
		}
		if v, _ := cmd.Flags().GetString("source"); v != "" {
			cfg.Source.Provider = v
		}
		if cmd.Flags().Changed("threshold") {
			cfg.Loop.ConfidenceThreshold, _ = cmd.Flags().GetFloat64("threshold")
		}
		if v, _ := cmd.Flags().GetString("metrics"); v != "" {
			cfg.Metrics.Addr = v
		}
		if v, _ := cmd.Flags().GetString("control-url"); v != "" {
			cfg.Control.URL = v
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger.Info("Starting eco-go",
			slog.String("version", version.Version),
			slog.String("commit", version.GitCommit),
			slog.String("classifier", cfg.Classifier.Provider),
			slog.String("source", cfg.Source.Provider))

		book, err := loadBook(cfg)
		if err != nil {
			return err
		}

		classifier, err := newClassifier(cfg, cfg.Classifier.Provider)
		if err != nil {
			return err
		}
		defer closeClassifier(classifier, logger)

		src, err := plugin.Default().Source(cfg.Source.Provider, options(cfg.Source))
		if err != nil {
			return fmt.Errorf("source %q: %w", cfg.Source.Provider, err)
		}

		synth, err := newSynth(cfg, logger)
		if err != nil {
			logger.Warn("Speech output unavailable", slog.String("error", err.Error()))
			synth = nil
		}
		var speaker speech.Speaker
		if synth != nil {
			speaker = synth
		}

		deps := newAssistantDeps(cfg, logger)

		ctrl, err := newController(cfg, classifier, src, speaker, book, deps, logger)
		if err != nil {
			return err
		}
		if mute, _ := cmd.Flags().GetBool("mute"); mute {
			ctrl.SetSpeechEnabled(false)
		}

		assistant, err := newAssistant(cfg, book, deps, ctrl, logger)
		if err != nil {
			return err
		}

		j, err := openJournal(cfg, logger)
		if err != nil {
			return err
		}
		if j != nil {
			defer j.Close()
			ctrl.OnVerdict(j.Observe)
		}

		asker := recordingAsker{
			assistant: assistant,
			journal:   j,
			session:   func() string { return ctrl.Snapshot().SessionID },
			logger:    logger,
		}

		ctrl.OnVerdict(func(v live.Verdict) {
			if v.ShouldAnnounce {
				logger.Info("Verdict",
					slog.String("label", v.Label),
					slog.Float64("confidence", v.Confidence),
					slog.Bool("dispatched", v.Dispatched))
			} else if hint := book.Hint(v.Ranked, ctrl.ConfidenceThreshold()); hint != "" {
				logger.Debug("Low confidence", slog.String("hint", hint))
			}
		})

		var client *control.Client
		if cfg.Control.URL != "" {
			client, err = control.New(control.Config{
				URL:    cfg.Control.URL,
				Token:  cfg.Control.Token,
				Target: ctrl,
				Asker:  asker,
				Logger: logger,
			})
			if err != nil {
				return err
			}
			ctrl.OnVerdict(client.Publish)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := ctrl.Start(ctx); err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			<-gctx.Done()
			ctrl.Stop()
			if synth != nil {
				synth.Cancel()
			}
			return nil
		})

		if j != nil {
			g.Go(func() error { return j.Run(gctx) })
		}

		if client != nil {
			g.Go(func() error { return client.Run(gctx) })
		}

		if cfg.Metrics.Addr != "" {
			if err := ctrl.Metrics().Publish("eco"); err != nil {
				logger.Warn("Metrics not published", slog.String("error", err.Error()))
			}
			srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
			g.Go(func() error {
				logger.Info("Metrics server listening", slog.String("addr", cfg.Metrics.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("metrics server: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
		}

		if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
			// stdin reads cannot be cancelled, so this goroutine is not part of the group
			go answerStdin(gctx, asker, logger)
		}

		return g.Wait()
	},
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	return mux
}

func answerStdin(ctx context.Context, asker control.Asker, logger *slog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		ans, err := asker.Ask(ctx, question)
		if err != nil {
			logger.Warn("Question failed", slog.String("error", err.Error()))
			continue
		}
		fmt.Println(ans.Text)
	}
}
