package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"rhythm/internal/pipeline"
	"rhythm/internal/queue"
	"rhythm/internal/trackkey"
)

const watchDebounce = 2 * time.Second

func newWatchCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a folder and analyze new audio files as they appear",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}

			dir := cfg.Paths.LibraryDir
			if len(args) == 1 {
				if dir, err = filepath.Abs(args[0]); err != nil {
					return err
				}
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()
			if err := watcher.Add(dir); err != nil {
				return err
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
			sched.SignalReady()

			fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", dir)

			// Writers often emit several events per file; debounce so the
			// pipeline sees each file once its content settles.
			var mu sync.Mutex
			timers := map[string]*time.Timer{}
			submit := func(path string) {
				handle := sched.Submit(ctx, path)
				go func() {
					final := <-handle.Final
					if final.Err != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "FAILED   %s: %v\n", path, final.Err)
						return
					}
					fmt.Fprintf(cmd.OutOrStdout(), "COMPLETE %s\n", path)
				}()
			}

			for {
				select {
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
						continue
					}
					if !trackkey.SupportedAudio(event.Name) {
						continue
					}
					path := event.Name
					mu.Lock()
					if timer, exists := timers[path]; exists {
						timer.Stop()
					}
					timers[path] = time.AfterFunc(watchDebounce, func() {
						mu.Lock()
						delete(timers, path)
						mu.Unlock()
						submit(path)
					})
					mu.Unlock()
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
				case <-ctx.Done():
					return nil
				}
			}
		},
	}
	return cmd
}
