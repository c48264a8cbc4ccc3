package main

import (
	"bufio"
	"fmt"
	"strings"

	"ai-salesops-be/pkg/store"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the pipeline assistant",
	Long:  "Starts an interactive session with the assistant. Type \"reset\" to clear the history and \"exit\" to quit.",
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, _ []string) error {
	core, err := loadCore(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	conv := store.NewConversation(uuid.NewString())
	scanner := bufio.NewScanner(cmd.InOrStdin())
	prompt := color.New(color.FgCyan, color.Bold)

	color.Cyan("Sales assistant ready. Try \"Show me top 5 leads\".")
	for {
		prompt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(text) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "reset":
			conv.Lock()
			conv.Reset()
			conv.Unlock()
			color.Yellow("History cleared.")
			continue
		}

		reply := core.Agent.Respond(cmd.Context(), conv, text)
		if reply.IsError {
			color.Red(reply.Text)
			continue
		}
		fmt.Fprintln(out, reply.Text)
		if len(reply.Tools) > 0 {
			color.New(color.Faint).Fprintf(out, "[%s]\n", strings.Join(reply.Tools, ", "))
		}
	}
}
