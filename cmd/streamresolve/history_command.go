package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hszk-dev/streamresolve/internal/domain/repository"
)

var errHistoryDisabled = errors.New("history is disabled; set HISTORY_ENABLED=true")

func newHistoryCommand(open openServices) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent resolution outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := open(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			if svc.History == nil {
				return errHistoryDisabled
			}

			records, err := svc.History.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, records)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No resolutions recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"When", "Type", "TMDB", "S/E", "Title", "Subject", "Outcome"},
				historyRows(records),
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of records (default 20, max 100)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	return cmd
}

func historyRows(records []*repository.ResolutionRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		episode := "-"
		if rec.Season > 0 || rec.Episode > 0 {
			episode = strconv.Itoa(rec.Season) + "/" + strconv.Itoa(rec.Episode)
		}
		rows = append(rows, []string{
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			rec.MediaType.String(),
			rec.ExternalID,
			episode,
			rec.Title,
			orDash(rec.SubjectID),
			outcome(rec),
		})
	}
	return rows
}

func outcome(rec *repository.ResolutionRecord) string {
	switch {
	case !rec.Succeeded():
		return string(rec.ErrorKind)
	case rec.Cached:
		return "ok (cached)"
	default:
		return "ok"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
