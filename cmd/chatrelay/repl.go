package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sobrus/chatrelay/internal/agent"
	"github.com/sobrus/chatrelay/internal/config"
	"github.com/sobrus/chatrelay/internal/logger"
	"github.com/sobrus/chatrelay/internal/message"
)

const replUserID = "cli_user"

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Talk to the agent from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd)
		},
	}
}

// runRepl drives an interactive loop against the agent, one turn per
// line. Useful for poking at the agent without a channel in front.
func runRepl(cmd *cobra.Command) error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	client := agent.NewClient(cfg.Agent)
	sessionID := message.SessionID(replUserID)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "chatrelay repl, 'exit' or 'quit' to leave")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		reply, err := client.Invoke(cmd.Context(), agent.InvokeInput{
			Text:      line,
			UserID:    replUserID,
			SessionID: sessionID,
		})
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, reply.Text())
	}
	return scanner.Err()
}
