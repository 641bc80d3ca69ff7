package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/df07/go-csg-pathtracer/pkg/renderer"
)

// settleDelay absorbs the burst of events editors produce for a single save
const settleDelay = 100 * time.Millisecond

// watchAndRender renders job, then renders again every time its scene file changes.
// A change while rendering restarts the render.
func watchAndRender(ctx context.Context, r *renderer.Renderer, opts options, job *renderJob, logger *slog.Logger) error {
	changes := make(chan struct{}, 1)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watchFile(ctx, job.path, changes, logger)
	})
	g.Go(func() error {
		return renderLoop(ctx, r, opts, job, changes, logger)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watchFile signals changes whenever path is written or replaced.
// It watches the directory because editors often save by renaming a new file over the old one.
func watchFile(ctx context.Context, path string, changes chan<- struct{}, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	target := filepath.Clean(path)

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logger.Debug("scene file event", "op", event.Op.String())
			settle = time.After(settleDelay)
		case <-settle:
			settle = nil
			select {
			case changes <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}

// renderLoop owns the renderer while watching
func renderLoop(ctx context.Context, r *renderer.Renderer, opts options, job *renderJob, changes <-chan struct{}, logger *slog.Logger) error {
	for {
		buffer := make([]byte, job.width*job.height*4)
		if err := r.Start(job.camera, job.scene, buffer, job.width, job.height); err != nil {
			return err
		}

		done := make(chan error, 1)
		go func() { done <- r.Wait(ctx) }()

		restart := false
		select {
		case err := <-done:
			if err != nil {
				r.Stop()
				return err
			}
			if _, err := save(job, buffer, opts.out, logger); err != nil {
				return err
			}
			logger.Info("waiting for changes", "file", job.path)
		case <-changes:
			restart = true
		case <-ctx.Done():
			r.Stop()
			return ctx.Err()
		}

		if !restart {
			select {
			case <-changes:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		// Keep the last good scene until an edit loads
		for {
			next, err := loadJob(opts)
			if err == nil && next.config != job.config {
				err = r.Reconfigure(next.config)
			}
			if err == nil {
				logger.Info("scene reloaded", "file", next.path, "samples", next.config.Samples, "bounces", next.config.Bounces)
				job = next
				break
			}
			logger.Error("failed to reload scene", "error", err)
			select {
			case <-changes:
			case <-ctx.Done():
				r.Stop()
				return ctx.Err()
			}
		}
	}
}
