package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kiloprojects/go-client/pkg/kilonova"
	"github.com/kiloprojects/go-client/pkg/request"
	"github.com/kiloprojects/go-client/pkg/source"
)

func newCallCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call",
		Short: "Call any API endpoint, the response envelope is printed",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <path> [key=value...]",
			Short: "GET request with query parameters",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				params, err := parseParams(args[1:])
				if err != nil {
					return err
				}
				res := kilonova.GetCall[any](cmd.Context(), a.api, args[0], params)
				return a.printEnvelope(res, res.IsError(), res.Message)
			},
		},
		&cobra.Command{
			Use:   "post <path> [key=value...]",
			Short: "POST request with the URL-encoded form body",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				params, err := parseParams(args[1:])
				if err != nil {
					return err
				}
				res := kilonova.PostCall[any](cmd.Context(), a.api, args[0], params)
				return a.printEnvelope(res, res.IsError(), res.Message)
			},
		},
		&cobra.Command{
			Use:   "body <path> <json>",
			Short: "POST request with the JSON body",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				var body any
				if err := json.Unmarshal([]byte(args[1]), &body); err != nil {
					return fmt.Errorf("invalid JSON body: %w", err)
				}
				res := kilonova.BodyCall[any](cmd.Context(), a.api, args[0], body)
				return a.printEnvelope(res, res.IsError(), res.Message)
			},
		},
		newMultipartCallCommand(a),
	)
	return cmd
}

func newMultipartCallCommand(a *app) *cobra.Command {
	var files []string
	cmd := &cobra.Command{
		Use:   "multipart <path> [key=value...]",
		Short: "POST request with the multipart/form-data body",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := request.NewForm()
			for _, arg := range args[1:] {
				key, value, ok := strings.Cut(arg, "=")
				if !ok {
					return fmt.Errorf(`invalid parameter "%s", expected key=value`, arg)
				}
				form = form.AddField(key, value)
			}
			for _, f := range files {
				field, location, ok := strings.Cut(f, "=")
				if !ok {
					return fmt.Errorf(`invalid file "%s", expected field=location`, f)
				}
				file, err := source.Read(cmd.Context(), location)
				if err != nil {
					return err
				}
				form = form.AddFile(field, file.Name, file.Content)
			}
			res := kilonova.MultipartCall[any](cmd.Context(), a.api, args[0], form)
			return a.printEnvelope(res, res.IsError(), res.Message)
		},
	}
	cmd.Flags().StringArrayVar(&files, "file", nil, "file field, field=location, the location can be a path or a bucket URL")
	return cmd
}

// parseParams parses key=value arguments, a repeated key produces multiple values.
func parseParams(args []string) (map[string]any, error) {
	out := make(map[string]any)
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf(`invalid parameter "%s", expected key=value`, arg)
		}
		switch v := out[key].(type) {
		case nil:
			out[key] = value
		case string:
			out[key] = []string{v, value}
		case []string:
			out[key] = append(v, value)
		}
	}
	return out, nil
}
