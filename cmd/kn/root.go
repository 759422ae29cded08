package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "kn",
		Short:         "Kilonova API client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "path to the env file (default \".env\")")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "dump decoded responses to stderr")

	root.AddCommand(
		newSubmissionsCommand(a),
		newSubmissionCommand(a),
		newUserCommand(a),
		newCallCommand(a),
		newUploadCommand(a),
		newSessionCommand(a),
	)
	return root
}
