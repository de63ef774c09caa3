package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/pgext/internal/engine"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}
	cmd := &cobra.Command{
		Use:   "watch [PATH]",
		Short: "Rebuild whenever the manifest or SQL file changes",
		Long: `Build once, then rebuild and redeploy each time the manifest or a file in
the SQL directory changes. Changes arriving during a build are coalesced
into one follow-up build. Builds never overlap. Failed builds are reported
and watching continues. Stop with Ctrl-C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, opts)
		},
	}
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "Quiet period before a rebuild starts")
	return cmd
}

// watchFilter selects the events that trigger a rebuild.
type watchFilter struct {
	manifest string
	sqlDir   string
}

func (f watchFilter) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(ev.Name)
	if name == f.manifest {
		return true
	}
	return filepath.Dir(name) == f.sqlDir && strings.EqualFold(filepath.Ext(name), ".sql")
}

func runWatch(cmd *cobra.Command, args []string, opts *WatchOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	logger := cmdCtx.Logger
	r := cmdCtx.Renderer

	dir, err := filepath.Abs(projectDir(cfg, args))
	if err != nil {
		return err
	}
	filter := watchFilter{manifest: filepath.Join(dir, cfg.Manifest), sqlDir: filepath.Join(dir, cfg.SQLDir)}
	if filepath.IsAbs(cfg.Manifest) {
		filter.manifest = filepath.Clean(cfg.Manifest)
	}

	eng, cleanup, err := newEngine(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	for _, d := range []string{filepath.Dir(filter.manifest), filter.sqlDir} {
		if err := watcher.Add(d); err != nil {
			return fmt.Errorf("failed to watch %s: %w", d, err)
		}
	}

	build := func(ctx context.Context) {
		res, err := eng.Run(ctx, dir, engine.RunOptions{ExtraLinkFlags: cfg.ExtraLinkFlags})
		if err != nil {
			r.Warning(fmt.Sprintf("build failed: %v", err))
			return
		}
		renderBuildText(r, res)
	}

	r.Println(r.Muted(fmt.Sprintf("Watching %s and %s", filter.manifest, filter.sqlDir)))
	return watchLoop(cmd.Context(), watcher.Events, watcher.Errors, filter, opts.Debounce, logger, build)
}

// watchLoop runs build once, then again after every burst of relevant
// events. It returns when ctx is done or the event stream closes.
func watchLoop(
	ctx context.Context,
	events <-chan fsnotify.Event,
	errs <-chan error,
	filter watchFilter,
	debounce time.Duration,
	logger *slog.Logger,
	build func(context.Context),
) error {
	triggers := make(chan struct{}, 1)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(triggers)
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				if !filter.relevant(ev) {
					continue
				}
				logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
				select {
				case triggers <- struct{}{}:
				default:
					// a rebuild is already pending
				}
			case err, ok := <-errs:
				if !ok {
					return nil
				}
				logger.Warn("watch error", "error", err)
			}
		}
	})

	g.Go(func() error {
		build(ctx)
		for {
			select {
			case <-ctx.Done():
				return nil
			case _, ok := <-triggers:
				if !ok {
					return nil
				}
				if !settle(ctx, triggers, debounce) {
					return nil
				}
				build(ctx)
			}
		}
	})

	return g.Wait()
}

// settle waits until no trigger arrived for d. It reports false when ctx
// ended first.
func settle(ctx context.Context, triggers <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case _, ok := <-triggers:
			if !ok {
				return ctx.Err() == nil
			}
			timer.Reset(d)
		}
	}
}
