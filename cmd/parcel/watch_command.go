package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"parcel/internal/logging"
	"parcel/internal/watcher"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch collected source files and flag stale items",
		Long: "Watches every file recorded in the saved tree. When a source " +
			"changes after collection, the matching items are flagged stale and " +
			"the tree is re-saved so the next validate can surface them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer sess.Close()

			if !sess.cfg.Watcher.Enabled {
				return fmt.Errorf("watcher is disabled; set watcher.enabled = true in the config")
			}
			paths := sess.manager.CollectedFiles()
			if len(paths) == 0 {
				return fmt.Errorf("nothing to watch: the saved tree has no collected files")
			}

			debounce := time.Duration(sess.cfg.Watcher.DebounceSeconds) * time.Second
			w, err := watcher.New(debounce, func(path string) {
				stale := sess.manager.MarkStale(path)
				if len(stale) == 0 {
					return
				}
				if err := sess.manager.Save(sess.cfg.TreePath()); err != nil {
					sess.logger.Error("save tree after staleness flag",
						logging.Error(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stale: %s (%d item(s))\n", path, len(stale))
			}, sess.logger)
			if err != nil {
				return err
			}
			defer w.Close()

			for _, path := range paths {
				if err := w.Add(path); err != nil {
					sess.logger.Warn("cannot watch collected file",
						logging.String("path", path), logging.Error(err))
				}
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %d file(s); press Ctrl-C to stop\n", len(paths))
			w.Run(runCtx)
			return nil
		},
	}
}
