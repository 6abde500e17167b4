package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"parcel/internal/registry"
)

func newPublishesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publishes",
		Short: "Query and manage the publish registry",
	}
	cmd.AddCommand(newPublishesListCommand(ctx))
	cmd.AddCommand(newPublishesDeleteCommand(ctx))
	cmd.AddCommand(newPublishesStatsCommand(ctx))
	return cmd
}

func newPublishesListCommand(ctx *commandContext) *cobra.Command {
	var (
		filter  registry.Filter
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered publishes",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, recordViews(records))
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No publishes match")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					strconv.FormatInt(rec.ID, 10),
					rec.Context.String(),
					rec.Name,
					strconv.Itoa(rec.Version),
					rec.PublishType,
					rec.Path,
					rec.CreatedAt.Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Context", "Name", "Version", "Type", "Path", "Created"},
				rows, 0, 3))
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Project, "project", "", "Filter by project")
	cmd.Flags().StringVar(&filter.Entity, "entity", "", "Filter by entity")
	cmd.Flags().StringVar(&filter.Step, "step", "", "Filter by pipeline step")
	cmd.Flags().StringVar(&filter.Task, "task", "", "Filter by task")
	cmd.Flags().StringVar(&filter.Name, "name", "", "Filter by publish name")
	cmd.Flags().StringVar(&filter.Type, "type", "", "Filter by publish type")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit records as JSON")
	return cmd
}

func newPublishesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a publish record from the registry",
		Long: "Removes the registry record only. Files already copied to the " +
			"publish location are left in place.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid publish id %q", args[0])
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			deleted, err := store.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("no publish with id %d", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted publish %d\n", id)
			return nil
		},
	}
}

func newPublishesStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show publish counts per type",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, stats)
			}
			rows := make([][]string, 0, len(stats))
			for publishType, count := range stats {
				rows = append(rows, []string{publishType, strconv.Itoa(count)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Type", "Publishes"}, rows, 1))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit stats as JSON")
	return cmd
}

type recordView struct {
	ID              int64          `json:"id"`
	Context         string         `json:"context"`
	Name            string         `json:"name"`
	Version         int            `json:"version"`
	Type            string         `json:"type"`
	Path            string         `json:"path"`
	ThumbnailPath   string         `json:"thumbnail_path,omitempty"`
	DependencyPaths []string       `json:"dependency_paths,omitempty"`
	Fields          map[string]any `json:"fields,omitempty"`
	CreatedAt       string         `json:"created_at"`
}

func recordViews(records []*registry.Record) []recordView {
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, recordView{
			ID:              rec.ID,
			Context:         rec.Context.String(),
			Name:            rec.Name,
			Version:         rec.Version,
			Type:            rec.PublishType,
			Path:            rec.Path,
			ThumbnailPath:   rec.ThumbnailPath,
			DependencyPaths: rec.DependencyPaths,
			Fields:          rec.Fields,
			CreatedAt:       rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return views
}
