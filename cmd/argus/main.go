// Package main provides the argus CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/richinex/argus/cli"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	// Global flags
	configFile string
	provider   string
	modelName  string
	maxIter    int
	device     string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "argus",
		Short: "Autonomous computer-use agent",
		Long: `An autonomous agent that accomplishes goals on a desktop or Android device.

A reasoning model drives a tool-calling loop; visual UI work is delegated
to a vision sub-agent that perceives screenshots and acts through adb or
xdotool.`,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, gemini, compat)")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "Reasoning model override")
	rootCmd.PersistentFlags().IntVarP(&maxIter, "max-iter", "m", 0, "Maximum engine iterations")
	rootCmd.PersistentFlags().StringVarP(&device, "device", "d", "", "Android device serial")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signalContext cancels on SIGINT/SIGTERM so a run fails with a
// cancellation instead of dying mid-action.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func options() cli.Options {
	return cli.Options{
		ConfigFile: configFile,
		Provider:   provider,
		Model:      modelName,
		MaxIter:    maxIter,
		Device:     device,
		Verbose:    verbose,
	}
}

func runCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run [goal]",
		Short: "Execute a single goal",
		Long: `Execute a single goal to completion.

The engine consults the reasoning model, dispatches tool calls, and
delegates visual UI work to the vision sub-agent until the model
produces a final answer or a budget runs out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				return cli.DryRun(options())
			}
			ctx, cancel := signalContext()
			defer cancel()
			return cli.Run(ctx, args[0], options())
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate configuration and list tools without running")

	return cmd
}

func chatCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		Long: `Start an interactive session. Conversation state carries across
inputs; with --session it also persists across processes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			opts := options()
			opts.Session = sessionID
			return cli.Chat(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID for conversation persistence")

	return cmd
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.ListTools(verboseTools)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose", "V", false, "Show tool parameters")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("argus", version)
		},
	}
}
