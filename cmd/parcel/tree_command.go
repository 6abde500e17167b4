package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"parcel/internal/publish"
)

func newTreeCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the saved publish tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer sess.Close()

			tree := sess.manager.Tree()
			items := tree.Items()
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Tree is empty; run `parcel collect` or `parcel session` first")
				return nil
			}

			if jsonOut {
				return writeJSON(cmd, treePayload(tree))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Type", "Context / Status", "Flags", "Source"},
				itemRows(tree)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the tree as JSON")
	return cmd
}

type taskView struct {
	Plugin  string `json:"plugin"`
	Status  string `json:"status"`
	Active  bool   `json:"active"`
	Checked bool   `json:"checked"`
}

type itemView struct {
	Name       string             `json:"name"`
	Type       string             `json:"type"`
	Context    string             `json:"context"`
	Persistent bool               `json:"persistent"`
	Active     bool               `json:"active"`
	Source     string             `json:"source,omitempty"`
	Properties publish.Properties `json:"properties,omitempty"`
	Tasks      []taskView         `json:"tasks,omitempty"`
}

func treePayload(tree *publish.Tree) []itemView {
	items := tree.Items()
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		view := itemView{
			Name:       item.Name(),
			Type:       item.Type(),
			Context:    item.Context().String(),
			Persistent: item.Persistent(),
			Active:     item.Active(),
			Source:     item.Properties().String(publish.PropCollectedFilePath),
			Properties: item.Properties(),
		}
		for _, task := range item.Tasks() {
			view.Tasks = append(view.Tasks, taskView{
				Plugin:  task.Plugin().Name(),
				Status:  string(task.Status()),
				Active:  task.Active(),
				Checked: task.Checked(),
			})
		}
		views = append(views, view)
	}
	return views
}
