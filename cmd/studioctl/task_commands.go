// cmd/studioctl/task_commands.go
package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Corphon/AnimStudio/internal/services"
)

func newTasksCommand(ctx *commandContext) *cobra.Command {
	var running bool

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List generation tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/tasks"
			if running {
				path += "?running=true"
			}
			var tasks []services.TaskUpdate
			if err := ctx.api().call(cmd.Context(), http.MethodGet, path, nil, &tasks); err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no tasks")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTasks(tasks))
			return nil
		},
	}
	cmd.Flags().BoolVar(&running, "running", false, "Only show running tasks")
	return cmd
}

func renderTasks(tasks []services.TaskUpdate) string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		duration := "-"
		if t.EndTime != nil {
			duration = t.EndTime.Sub(t.StartTime).Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			shortID(t.TaskID),
			t.Kind,
			string(t.View),
			t.Status,
			duration,
			t.Message,
		})
	}
	return renderTable(
		[]string{"ID", "Kind", "View", "Status", "Duration", "Message"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func newLLMCommand(ctx *commandContext) *cobra.Command {
	llmCmd := &cobra.Command{
		Use:   "llm",
		Short: "Inspect the generation backend",
	}

	llmCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show backend readiness and models",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status struct {
				Ready         bool     `json:"ready"`
				Status        string   `json:"status"`
				Provider      string   `json:"provider"`
				SupportsImage bool     `json:"supports_image"`
				Models        []string `json:"models"`
			}
			if err := ctx.api().call(cmd.Context(), http.MethodGet, "/api/llm/status", nil, &status); err != nil {
				return err
			}
			provider := status.Provider
			if provider == "" {
				provider = "-"
			}
			rows := [][]string{
				{"Ready", fmt.Sprint(status.Ready)},
				{"Status", status.Status},
				{"Provider", provider},
				{"Images", fmt.Sprint(status.SupportsImage)},
				{"Models", strings.Join(status.Models, ", ")},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	})
	return llmCmd
}
