package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kiloprojects/go-client/pkg/kilonova"
)

func newSubmissionsCommand(a *app) *cobra.Command {
	var q kilonova.SubmissionQuery
	var status string
	var score int
	var compileError bool

	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "Search submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Status = kilonova.SubmissionStatus(status)
			if cmd.Flags().Changed("score") {
				q.Score = &score
			}
			if cmd.Flags().Changed("compile-error") {
				q.CompileError = &compileError
			}
			result, err := a.api.SubmissionsRequest(q).Send(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(result)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&q.UserID, "user", 0, "filter by user ID")
	flags.IntVar(&q.ProblemID, "problem", 0, "filter by problem ID")
	flags.IntVar(&q.ProblemListID, "problem-list", 0, "filter by problem list ID")
	flags.IntVar(&q.ContestID, "contest", 0, "filter by contest ID")
	flags.IntVar(&score, "score", -1, "filter by score")
	flags.StringVar(&status, "status", "", "filter by status")
	flags.StringVar(&q.Lang, "lang", "", "filter by language")
	flags.BoolVar(&compileError, "compile-error", false, "filter by compile error")
	flags.StringVar(&q.Ordering, "ordering", "", "sort key (default \"id\")")
	flags.BoolVar(&q.Ascending, "ascending", false, "ascending order, used with --ordering")
	flags.IntVar(&q.Page, "page", 1, "page number")
	flags.IntVar(&q.Limit, "limit", kilonova.PageSize, "page size")
	return cmd
}

func newSubmissionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "submission <id>",
		Short: "Get the submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			result, err := a.api.SubmissionRequest(id).Send(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(result)
		},
	}
}

func newUserCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "user <id> [id...]",
		Short: "Get users",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			if len(ids) == 1 {
				user, err := a.api.UserRequest(ids[0]).Send(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(user)
			}

			users, err := a.api.UsersRequest(ids...).Send(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(users)
		},
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf(`invalid ID "%s"`, s)
	}
	return id, nil
}
