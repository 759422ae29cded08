package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kiloprojects/go-client/pkg/request"
	"github.com/kiloprojects/go-client/pkg/source"
)

func newUploadCommand(a *app) *cobra.Command {
	var problemID, contestID int
	var lang string

	cmd := &cobra.Command{
		Use:   "upload <source>",
		Short: "Submit a source file, the source can be a path or a bucket URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if problemID <= 0 {
				return fmt.Errorf("flag --problem is required")
			}
			if lang == "" {
				return fmt.Errorf("flag --lang is required")
			}

			file, err := source.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			form := request.NewForm().
				AddField("problemID", strconv.Itoa(problemID)).
				AddField("lang", lang)
			if contestID > 0 {
				form = form.AddField("contestID", strconv.Itoa(contestID))
			}
			form = form.AddFile("code", file.Name, file.Content)

			res := a.legacy.MultipartRequest(cmd.Context(), "/submissions/submit", form, func(sent, total int64) {
				if total > 0 {
					fmt.Fprintf(a.stderr, "\ruploaded %d/%d bytes", sent, total)
					if sent == total {
						fmt.Fprintln(a.stderr)
					}
				}
			})
			return a.printEnvelope(res, !res.IsSuccess(), res.Message())
		},
	}

	cmd.Flags().IntVar(&problemID, "problem", 0, "problem ID")
	cmd.Flags().IntVar(&contestID, "contest", 0, "contest ID")
	cmd.Flags().StringVar(&lang, "lang", "", "language, for example cpp17")
	return cmd
}
