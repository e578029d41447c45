// cmd/studioctl/production_commands.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Corphon/AnimStudio/internal/models"
	"github.com/Corphon/AnimStudio/internal/services"
	"github.com/Corphon/AnimStudio/internal/speech"
)

func newOutlineCommand(ctx *commandContext) *cobra.Command {
	var req services.OutlineRequest

	cmd := &cobra.Command{
		Use:   "outline <idea>",
		Short: "Generate a story outline from a core idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Prompt = args[0]
			var outline models.Outline
			if err := ctx.api().call(cmd.Context(), http.MethodPost, "/api/outline/generate", req, &outline); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n%s\n", outline.Title, outline.Logline)
			rows := make([][]string, 0)
			for _, act := range outline.Acts {
				for _, scene := range act.Scenes {
					rows = append(rows, []string{strconv.Itoa(act.Act), act.Title, strconv.Itoa(scene.Scene), scene.Description})
				}
			}
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"Act", "Title", "Scene", "Description"}, rows, []columnAlignment{alignRight, alignLeft, alignRight}))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Genre, "genre", "", "Genre (default "+services.DefaultGenre+")")
	cmd.Flags().StringVar(&req.Tone, "tone", "", "Tone (default "+services.DefaultTone+")")
	cmd.Flags().StringVar(&req.Audience, "audience", "", "Target audience (default "+services.DefaultAudience+")")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the project archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			return downloadTo(cmd, ctx, "/api/project/export", outDir)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write the archive into")
	return cmd
}

func newMarketingKitCommand(ctx *commandContext) *cobra.Command {
	var outDir string
	var platform string

	cmd := &cobra.Command{
		Use:   "marketing-kit",
		Short: "Download the distribution kit",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/marketing/kit"
			if platform != "" {
				path += "?platform=" + url.QueryEscape(platform)
			}
			return downloadTo(cmd, ctx, path, outDir)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write the kit into")
	cmd.Flags().StringVar(&platform, "platform", "", "Platform name used in the file name")
	return cmd
}

func newExportsCommand(ctx *commandContext) *cobra.Command {
	exportsCmd := &cobra.Command{
		Use:   "exports",
		Short: "Manage archive copies saved on the server",
	}

	exportsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved archives",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Exports []string `json:"exports"`
			}
			if err := ctx.api().call(cmd.Context(), http.MethodGet, "/api/exports", nil, &resp); err != nil {
				return err
			}
			if len(resp.Exports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no saved archives")
				return nil
			}
			for _, name := range resp.Exports {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	})

	var outDir string
	getCmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Download a saved archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return downloadTo(cmd, ctx, "/api/exports/"+url.PathEscape(args[0]), outDir)
		},
	}
	getCmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write the archive into")
	exportsCmd.AddCommand(getCmd)

	exportsCmd.AddCommand(&cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a saved archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.api().call(cmd.Context(), http.MethodDelete, "/api/exports/"+url.PathEscape(args[0]), nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	})
	return exportsCmd
}

func downloadTo(cmd *cobra.Command, ctx *commandContext, path, outDir string) error {
	filename, data, err := ctx.api().download(cmd.Context(), path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	target := filepath.Join(outDir, filepath.Base(filename))
	if err := os.WriteFile(target, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d bytes)\n", target, len(data))
	return nil
}

type playlistResponse struct {
	CanPlay bool               `json:"canPlay"`
	Items   []speech.Utterance `json:"items"`
}

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var pause time.Duration
	var start int

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Read the storyboard aloud as a text animatic",
		RunE: func(cmd *cobra.Command, args []string) error {
			var playlist playlistResponse
			if err := ctx.api().call(cmd.Context(), http.MethodGet, "/api/animation/playlist", nil, &playlist); err != nil {
				return err
			}
			if !playlist.CanPlay {
				return fmt.Errorf("nothing to play: the animatic needs at least one storyboard panel and one voice script")
			}

			out := cmd.OutOrStdout()
			speaker := speech.SpeakerFunc(func(ctx context.Context, text string) error {
				_, err := fmt.Fprintf(out, "    %s\n", text)
				return err
			})
			player := speech.NewPlayer(speaker, pause)
			player.OnPanel = func(u speech.Utterance) {
				fmt.Fprintf(out, "[panel %d / scene %d]\n", u.Panel+1, u.Scene)
			}

			_, err := player.Play(cmd.Context(), playlist.Items, start)
			return err
		},
	}
	cmd.Flags().DurationVar(&pause, "pause", speech.PanelPause, "Pause between panels")
	cmd.Flags().IntVar(&start, "start", 0, "Panel index to start from")
	return cmd
}
