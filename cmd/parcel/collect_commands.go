package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"parcel/internal/config"
	"parcel/internal/publish"
)

func newCollectCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect <path> [path...]",
		Short: "Collect files or folders into the publish tree",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer sess.Close()

			paths := make([]string, 0, len(args))
			for _, arg := range args {
				expanded, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				paths = append(paths, expanded)
			}

			created, err := sess.manager.CollectFiles(cmd.Context(), paths)
			if err != nil {
				return err
			}
			if err := sess.manager.Save(sess.cfg.TreePath()); err != nil {
				return fmt.Errorf("save tree: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(created) == 0 {
				fmt.Fprintln(out, "Nothing new collected; tree unchanged")
				return nil
			}
			fmt.Fprintf(out, "Collected %d new item(s)\n", len(created))
			printItems(cmd, created)
			return nil
		},
	}
	return cmd
}

func newSessionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Rebuild the tree from the configured session directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer sess.Close()

			created, err := sess.manager.CollectSession(cmd.Context())
			if err != nil {
				return err
			}
			if err := sess.manager.Save(sess.cfg.TreePath()); err != nil {
				return fmt.Errorf("save tree: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Session collected %d item(s)\n", len(created))
			printItems(cmd, created)
			return nil
		},
	}
}

func printItems(cmd *cobra.Command, items []*publish.Item) {
	if len(items) == 0 {
		return
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.Name(),
			item.Type(),
			item.Context().String(),
			fmt.Sprintf("%d", len(item.Tasks())),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Item", "Type", "Context", "Tasks"}, rows, 3))
}
