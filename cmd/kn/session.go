package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kiloprojects/go-client/pkg/session"
)

func newSessionCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the stored session credential",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the session credential in use",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := fmt.Fprintln(a.stdout, a.api.Session())
				return err
			},
		},
		&cobra.Command{
			Use:   "set <session-id>",
			Short: "Store the session credential",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := session.Save(a.store, args[0]); err != nil {
					return err
				}
				a.api.SetSession(args[0])
				a.legacy.SetSession(args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the stored session credential",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := session.Clear(a.store); err != nil {
					return err
				}
				a.api.SetSession(session.Guest)
				a.legacy.SetSession(session.Guest)
				return nil
			},
		},
	)
	return cmd
}
