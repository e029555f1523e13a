package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prokaryote/cmd/prokaryote/ui"
	"prokaryote/internal/config"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the skill trees and re-render stats on change",
	Long: `Watches the tree files for writes and re-renders the stats view after
each change. Edits from another process (or the evolve loop in a second
terminal) show up as soon as the file settles. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	treesDir := filepath.Join(config.StateDir(workspace), "trees")
	if _, err := os.Stat(treesDir); err != nil {
		return fmt.Errorf("no skill trees to watch (run init first): %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(treesDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", treesDir, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderOnce(cfg)
	fmt.Printf("watching %s (Ctrl-C to stop)\n", treesDir)

	debounce := cfg.WatchDebounce()
	changed := make(chan string, 16)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if filepath.Ext(event.Name) != ".json" {
					continue
				}
				select {
				case changed <- event.Name:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logger.Warn("watch error", zap.Error(err))
			}
		}
	})

	g.Go(func() error {
		return debounceLoop(ctx, changed, debounce, func() { renderOnce(cfg) })
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	fmt.Println("\nstopped watching")
	return nil
}

// debounceLoop coalesces change bursts: fn runs once per burst, after the
// channel has been quiet for d. Writers save with MarshalIndent in one
// call, but editors often truncate then write; the timer lets the file
// settle.
func debounceLoop(ctx context.Context, changed <-chan string, d time.Duration, fn func()) error {
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case name := <-changed:
			logger.Debug("tree file changed", zap.String("file", name))
			if timer == nil {
				timer = time.NewTimer(d)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(d)
			}
		case <-fire:
			timer = nil
			fire = nil
			fn()
		}
	}
}

func renderOnce(cfg *config.Config) {
	coord := newCoordinator(cfg)
	stats := coord.GetStats()
	fmt.Println(renderStats(coord, stats, ui.DefaultStyles()))
}
