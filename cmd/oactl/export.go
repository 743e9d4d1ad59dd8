package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/helixir/oa-metasearch/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export [query]",
	Short: "Export one page of search results",
	Long: `Export runs a search and writes the hits as csv, json or bibtex to --out,
or to stdout when --out is empty. Use --page and --page-size to walk larger
result sets.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatName, _ := cmd.Flags().GetString("format")
		format, err := export.ParseFormat(formatName)
		if err != nil {
			return err
		}
		p, err := searchParamsFromFlags(cmd.Flags(), args)
		if err != nil {
			return err
		}

		index, closeIndex, err := openIndex(cmd.Context())
		if err != nil {
			return err
		}
		defer closeIndex()

		resp, err := index.Search(cmd.Context(), p)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if out, _ := cmd.Flags().GetString("out"); out != "" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			w = f
		}
		if err := export.Render(w, format, resp.Hits); err != nil {
			return fmt.Errorf("render %s: %w", format, err)
		}
		if w != cmd.OutOrStdout() {
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d records\n", len(resp.Hits))
		}
		return nil
	},
}

func init() {
	addSearchFlags(exportCmd.Flags())
	exportCmd.Flags().String("format", string(export.FormatCSV), "csv, json or bibtex")
	exportCmd.Flags().StringP("out", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(exportCmd)
}
