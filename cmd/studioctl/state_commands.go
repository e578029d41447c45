// cmd/studioctl/state_commands.go
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Corphon/AnimStudio/internal/api"
	"github.com/Corphon/AnimStudio/internal/models"
	"github.com/Corphon/AnimStudio/internal/project"
)

func newStateCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the current project state",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.StateResponse
			if err := ctx.api().call(cmd.Context(), http.MethodGet, "/api/state", nil, &resp); err != nil {
				return err
			}
			if asJSON {
				data, err := json.MarshalIndent(resp, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			st := resp.State
			title := "-"
			if st.Outline != nil {
				title = st.Outline.Title
			}
			owner := string(resp.MainActionOwner)
			if owner == "" {
				owner = "-"
			}
			rows := [][]string{
				{"View", string(st.ActiveView)},
				{"Theme", string(st.Theme)},
				{"Unsaved changes", strconv.FormatBool(st.IsDirty)},
				{"Title", title},
				{"Main action", owner},
				{"Revision", strconv.FormatUint(resp.Revision, 10)},
				{"Epoch", strconv.FormatUint(resp.Epoch, 10)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw state as JSON")
	return cmd
}

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assets",
		Short: "Show asset counts per category",
		RunE: func(cmd *cobra.Command, args []string) error {
			var counts project.AssetCounts
			if err := ctx.api().call(cmd.Context(), http.MethodGet, "/api/assets", nil, &counts); err != nil {
				return err
			}
			rows := [][]string{
				{"All", strconv.Itoa(counts.All)},
				{"Characters", strconv.Itoa(counts.Characters)},
				{"Locations", strconv.Itoa(counts.Locations)},
				{"Rigs", strconv.Itoa(counts.Rigs)},
				{"Story", strconv.Itoa(counts.Story)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Category", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newNavigateCommand(ctx *commandContext) *cobra.Command {
	var confirm bool
	var rigging string

	cmd := &cobra.Command{
		Use:   "navigate [view]",
		Short: "Switch the active module",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{"confirm": confirm}
			switch {
			case rigging != "":
				body["riggingCharacterId"] = rigging
			case len(args) == 1:
				body["view"] = models.View(args[0])
			default:
				return errors.New("a view or --rigging is required")
			}

			var resp api.NavigationResponse
			err := ctx.api().call(cmd.Context(), http.MethodPost, "/api/navigation", body, &resp)
			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.Code == api.ErrorConfirmationRequired {
				fmt.Fprintln(cmd.OutOrStdout(), apiErr.Message)
				return errors.New("navigation cancelled, re-run with --confirm to discard changes")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (epoch %d)\n", resp.Outcome, resp.ActiveView, resp.Epoch)
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Discard unsaved changes without asking")
	cmd.Flags().StringVar(&rigging, "rigging", "", "Open the rigging page for this character ID")
	return cmd
}

func newThemeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "theme",
		Short: "Toggle between dark and light theme",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Theme models.Theme `json:"theme"`
			}
			if err := ctx.api().call(cmd.Context(), http.MethodPost, "/api/theme/toggle", nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "theme: %s\n", resp.Theme)
			return nil
		},
	}
}
