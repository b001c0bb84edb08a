package main

import (
	"errors"
	"fmt"
	"strings"

	"shopchat/internal/session"

	"github.com/spf13/cobra"
)

// newSendCmd sends one message and prints the reply.
func newSendCmd(opts *cliOptions) *cobra.Command {
	var customerID string

	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send a message and print the assistant's reply",
		Long: `Appends the message to the stored conversation, sends the whole
conversation to the chat backend and prints the reply.

Example:
  shopchat send "Where is my order?" --customer-id CUST-1001`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			errOut := cmd.ErrOrStderr()
			notifier := session.NotifierFunc(func(n session.Notice) {
				fmt.Fprintf(errOut, "! %s\n", n)
			})
			sender := session.NewSender(a.client, a.store, notifier)

			id := customerID
			if id == "" {
				id = a.cfg.Chat.CustomerID
			}
			controller := session.NewController(a.store, sender, id)
			controller.SetText(strings.Join(args, " "))

			res, ok := controller.Submit(ctx)
			if !ok {
				return errors.New("nothing to send: message is empty")
			}
			if res.Appended() {
				fmt.Fprintln(cmd.OutOrStdout(), res.Reply)
			}
			if res.Err != nil {
				return fmt.Errorf("send failed: %w", res.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&customerID, "customer-id", "", "Customer identifier sent with the message")
	return cmd
}
