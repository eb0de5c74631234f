package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/veerayerva/warehouse-returns/internal/model"
)

var analyzeFile string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [document-url]",
	Short: "Analyze a single returns document",
	Long:  "Submits a document by URL or local file, evaluates the configured field's confidence, and archives it for review when confidence falls below the threshold. Prints the analysis result as JSON.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && analyzeFile == "" {
			return eris.New("either a document URL argument or --file is required")
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		var resp *model.AnalyzeResponse
		if analyzeFile != "" {
			data, err := os.ReadFile(analyzeFile)
			if err != nil {
				return eris.Wrap(err, "read document file")
			}
			doc := model.Document{
				Name:        filepath.Base(analyzeFile),
				ContentType: contentTypeFromName(analyzeFile),
				Data:        data,
			}
			resp, err = env.Processor.ProcessBytes(cmd.Context(), doc, "")
			if err != nil {
				printAnalyzeFailure(resp)
				return err
			}
		} else {
			resp, err = env.Processor.ProcessURL(cmd.Context(), args[0], "")
			if err != nil {
				printAnalyzeFailure(resp)
				return err
			}
		}

		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal response")
		}
		fmt.Println(string(out))
		return nil
	},
}

func printAnalyzeFailure(resp *model.AnalyzeResponse) {
	if resp == nil {
		return
	}
	if out, err := json.MarshalIndent(resp, "", "  "); err == nil {
		fmt.Fprintln(os.Stderr, string(out))
	}
}

func contentTypeFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "local document file to analyze instead of a URL")
	rootCmd.AddCommand(analyzeCmd)
}
