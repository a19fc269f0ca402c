package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL     string
	clientTimeout time.Duration
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dreamctl",
		Short:         "Talk to a running lucidify API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Base URL of the lucidify API")
	root.PersistentFlags().DurationVar(&clientTimeout, "timeout", 3*time.Minute, "Overall request timeout")

	root.AddCommand(newVideoCmd(), newAnalyzeCmd(), newChatCmd())
	return root
}

func newVideoCmd() *cobra.Command {
	var action string
	cmd := &cobra.Command{
		Use:   "video [prompt]",
		Short: "Generate a dream video and follow its progress",
		Long: `Starts a dream video job and prints each progress event as it arrives.

Pass --action to steer the dream in lucid mode; the action replaces the prompt.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := ""
			if len(args) == 1 {
				prompt = args[0]
			}
			if prompt == "" && action == "" {
				return fmt.Errorf("a prompt or --action is required")
			}
			c := newClient(serverURL, clientTimeout)
			out := cmd.OutOrStdout()
			final, err := c.StreamVideo(cmd.Context(), prompt, action, func(ev streamEvent) {
				fmt.Fprintln(out, renderEvent(ev))
			})
			if err != nil {
				return err
			}
			if final.Kind == "ERROR" {
				return fmt.Errorf("generation failed: %s", final.Message())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "Lucid action to perform inside the dream")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <dream>",
		Short: "Interpret a dream and draft a video prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(serverURL, clientTimeout)
			analysis, err := c.Analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderAnalysis(analysis))
			return nil
		},
	}
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one message to the dream guide",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(serverURL, clientTimeout)
			text, err := c.Chat(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
