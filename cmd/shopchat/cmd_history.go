package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"shopchat/internal/conversation"
	"shopchat/internal/session"
	"shopchat/internal/types"

	"github.com/spf13/cobra"
)

// =============================================================================
// HISTORY
// =============================================================================

func newHistoryCmd(opts *cliOptions) *cobra.Command {
	var asJSON, transcript bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the stored conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			state := a.store.State()
			out := cmd.OutOrStdout()

			if asJSON {
				raw, err := conversation.Encode(state)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, raw)
				return nil
			}
			if transcript {
				fmt.Fprint(out, state.Transcript())
				return nil
			}
			printHistory(out, state)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the stored snapshot as JSON")
	cmd.Flags().BoolVar(&transcript, "transcript", false, "Print one role-tagged line per message")
	return cmd
}

func printHistory(w io.Writer, state types.ConversationState) {
	if state.Len() == 0 {
		fmt.Fprintln(w, "No messages yet.")
		return
	}
	if state.ConversationID != "" {
		fmt.Fprintf(w, "Conversation %s\n", state.ConversationID)
	}
	fmt.Fprintln(w, strings.Repeat("─", 50))
	for _, m := range state.Messages {
		label := "Assistant"
		if m.Role == types.RoleUser {
			label = "You"
		}
		fmt.Fprintf(w, "%s: %s\n", label, m.Message)
	}
	fmt.Fprintln(w, strings.Repeat("─", 50))
	fmt.Fprintf(w, "Total: %d messages\n", state.Len())
}

// =============================================================================
// CLEAR
// =============================================================================

func newClearCmd(opts *cliOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the stored conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			confirm := promptConfirm(cmd.InOrStdin(), cmd.OutOrStdout())
			if yes {
				confirm = func(string) bool { return true }
			}

			sender := session.NewSender(a.client, a.store, nil)
			controller := session.NewController(a.store, sender, "")
			if controller.ClearConversation(cmd.Context(), confirm) {
				fmt.Fprintln(cmd.OutOrStdout(), "Conversation cleared.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing changed.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// promptConfirm asks on out and reads a y/yes answer from in.
func promptConfirm(in io.Reader, out io.Writer) session.Confirmer {
	return func(prompt string) bool {
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	}
}
