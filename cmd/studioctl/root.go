// cmd/studioctl/root.go
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

const defaultServerURL = "http://localhost:8080"

type commandContext struct {
	server  *string
	timeout *time.Duration
	client  *apiClient
}

func (ctx *commandContext) api() *apiClient {
	if ctx.client == nil {
		ctx.client = newAPIClient(*ctx.server, *ctx.timeout)
	}
	return ctx.client
}

func newRootCommand() *cobra.Command {
	var serverFlag string
	var timeoutFlag time.Duration

	ctx := &commandContext{server: &serverFlag, timeout: &timeoutFlag}

	rootCmd := &cobra.Command{
		Use:           "studioctl",
		Short:         "AnimStudio console client",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	server := os.Getenv("ANIMSTUDIO_URL")
	if server == "" {
		server = defaultServerURL
	}
	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", server, "AnimStudio server base URL")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 3*time.Minute, "HTTP request timeout")

	rootCmd.AddCommand(newStateCommand(ctx))
	rootCmd.AddCommand(newAssetsCommand(ctx))
	rootCmd.AddCommand(newNavigateCommand(ctx))
	rootCmd.AddCommand(newThemeCommand(ctx))
	rootCmd.AddCommand(newOutlineCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newMarketingKitCommand(ctx))
	rootCmd.AddCommand(newExportsCommand(ctx))
	rootCmd.AddCommand(newPlayCommand(ctx))
	rootCmd.AddCommand(newTasksCommand(ctx))
	rootCmd.AddCommand(newLLMCommand(ctx))

	return rootCmd
}
