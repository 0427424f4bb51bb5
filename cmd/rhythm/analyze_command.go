package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"rhythm/internal/pipeline"
	"rhythm/internal/queue"
	"rhythm/internal/scheduler"
	"rhythm/internal/trackkey"
)

func newAnalyzeCommand(cmdCtx *commandContext) *cobra.Command {
	var showEvents bool

	cmd := &cobra.Command{
		Use:   "analyze [paths...]",
		Short: "Analyze audio files or directories and update the library stores",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}

			files, err := collectAudioFiles(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return errors.New("no supported audio files found (.mp3, .wav, .aif, .aiff)")
			}

			ledger, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer ledger.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sched := pipeline.New(cfg, ledger, logger)
			defer sched.Stop()

			if showEvents {
				go func() {
					for event := range sched.Events() {
						fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-10s %3d%%  %s\n",
							event.Stage, event.Status, event.Pct, event.File)
					}
				}()
			}

			handles := make([]*scheduler.Handle, 0, len(files))
			for _, file := range files {
				handles = append(handles, sched.Submit(ctx, file))
			}
			sched.SignalReady()

			completed, failed := 0, 0
			for i, handle := range handles {
				select {
				case final := <-handle.Final:
					if final.Err != nil {
						failed++
						fmt.Fprintf(cmd.OutOrStdout(), "FAILED   %s: %v\n", files[i], final.Err)
					} else {
						completed++
						fmt.Fprintf(cmd.OutOrStdout(), "COMPLETE %s (bpm=%d instruments=%d)\n",
							files[i], final.Record.Technical.BPM, len(final.Record.Analysis.FinalInstruments))
					}
				case <-ctx.Done():
					for _, remaining := range handles[i:] {
						remaining.Cancel()
					}
					return ctx.Err()
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n%d analyzed, %d failed\n", completed, failed)
			if failed > 0 {
				return fmt.Errorf("%d of %d tracks failed", failed, len(files))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showEvents, "events", false, "Stream per-phase progress events")
	return cmd
}

// collectAudioFiles expands the argument list: directories are scanned
// recursively, files are filtered by supported extension.
func collectAudioFiles(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	add := func(path string) {
		key := trackkey.Normalize(path)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		files = append(files, path)
	}

	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if trackkey.SupportedAudio(abs) {
				add(abs)
			}
			continue
		}
		err = filepath.WalkDir(abs, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !entry.IsDir() && trackkey.SupportedAudio(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
