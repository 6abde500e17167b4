package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"parcel/internal/config"
	"parcel/internal/manager"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate every active task in the saved tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer sess.Close()

			failures, err := runValidate(cmd.Context(), sess)
			if err != nil {
				return err
			}
			reportValidate(cmd, sess, failures)
			if len(failures) > 0 {
				return fmt.Errorf("%d task(s) failed validation", len(failures))
			}
			return nil
		},
	}
}

func newPublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Validate, publish and finalize the saved tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer sess.Close()
			return publishTree(cmd, sess)
		},
	}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [path...]",
		Short: "Collect, validate, publish and finalize in one pass",
		Long: "Collects the given paths (or the configured session directories when " +
			"none are given) into a fresh tree, then runs the full publish pipeline.",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.openSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer sess.Close()

			var created int
			if len(args) > 0 {
				paths := make([]string, 0, len(args))
				for _, arg := range args {
					expanded, err := config.ExpandPath(arg)
					if err != nil {
						return err
					}
					paths = append(paths, expanded)
				}
				items, err := sess.manager.CollectFiles(cmd.Context(), paths)
				if err != nil {
					return err
				}
				created = len(items)
			} else {
				items, err := sess.manager.CollectSession(cmd.Context())
				if err != nil {
					return err
				}
				created = len(items)
			}
			if created == 0 {
				return fmt.Errorf("nothing to publish: no files were collected")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Collected %d item(s)\n", created)

			if err := publishTree(cmd, sess); err != nil {
				return err
			}
			return sess.manager.Save(sess.cfg.TreePath())
		},
	}
	return cmd
}

func runValidate(ctx context.Context, sess *session) ([]manager.Failure, error) {
	gen := manager.NewTreeGenerator(sess.manager.Tree())
	return sess.manager.Validate(ctx, gen)
}

func reportValidate(cmd *cobra.Command, sess *session, failures []manager.Failure) {
	out := cmd.OutOrStdout()
	color := shouldColorize(out)
	total := len(sess.manager.Tree().Tasks())
	if len(failures) == 0 {
		fmt.Fprintf(out, "%s %d task(s) validated\n", colorize("OK", ansiGreen, color), total)
		return
	}
	renderFailures(out, failures, color)
}

// publishTree drives validate, publish and finalize, stopping at the first
// phase that does not come back clean. The tree is saved afterwards either
// way so statuses survive for inspection.
func publishTree(cmd *cobra.Command, sess *session) error {
	failures, err := runValidate(cmd.Context(), sess)
	if err != nil {
		return err
	}
	reportValidate(cmd, sess, failures)
	if len(failures) > 0 {
		_ = sess.manager.Save(sess.cfg.TreePath())
		return fmt.Errorf("%d task(s) failed validation; nothing was published", len(failures))
	}

	tree := sess.manager.Tree()
	if err := sess.manager.Publish(cmd.Context(), manager.NewTreeGenerator(tree)); err != nil {
		_ = sess.manager.Save(sess.cfg.TreePath())
		return fmt.Errorf("publish aborted: %w", err)
	}
	if err := sess.manager.Finalize(cmd.Context(), manager.NewTreeGenerator(tree)); err != nil {
		_ = sess.manager.Save(sess.cfg.TreePath())
		return fmt.Errorf("finalize aborted: %w", err)
	}
	if err := sess.manager.Save(sess.cfg.TreePath()); err != nil {
		return fmt.Errorf("save tree: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s published %d task(s)\n",
		colorize("OK", ansiGreen, shouldColorize(out)), len(tree.Tasks()))
	return nil
}
