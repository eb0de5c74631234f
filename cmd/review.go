package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rotisserie/eris"
)

var (
	reviewDays int
	reviewJSON bool
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List archived low-confidence documents pending review",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		pending, err := env.Reviewer.ListPending(cmd.Context(), cfg.Archive.Scope, reviewDays)
		if err != nil {
			return err
		}

		if reviewJSON {
			out, err := json.MarshalIndent(pending, "", "  ")
			if err != nil {
				return eris.Wrap(err, "marshal pending reviews")
			}
			fmt.Println(string(out))
			return nil
		}

		if len(pending) == 0 {
			fmt.Printf("No documents pending review in the last %d days.\n", reviewDays)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ANALYSIS ID\tFIELD\tCONFIDENCE\tTHRESHOLD\tSTORED AT\tDOCUMENT")
		for _, p := range pending {
			fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%s\t%s\n",
				p.AnalysisID, p.FieldName, float64(p.Confidence), float64(p.Threshold),
				p.StoredAt.Format("2006-01-02 15:04"), p.DocumentPath)
		}
		return w.Flush()
	},
}

func init() {
	reviewCmd.Flags().IntVar(&reviewDays, "days", 7, "how many days back to list")
	reviewCmd.Flags().BoolVar(&reviewJSON, "json", false, "emit JSON instead of a table")
	rootCmd.AddCommand(reviewCmd)
}
