package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/helixir/oa-metasearch/internal/domain"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the index",
	Long: `Search runs a query against the configured backend and prints one row per
hit. With --json the full SearchResponse, facets included, is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		return printHits(cmd.OutOrStdout(), resp)
	},
}

func init() {
	addSearchFlags(searchCmd.Flags())
	searchCmd.Flags().Bool("json", false, "print the raw JSON response")

	rootCmd.AddCommand(searchCmd)
}

// addSearchFlags registers the SearchParams flags shared by search and export.
func addSearchFlags(fs *pflag.FlagSet) {
	fs.String("doi", "", "exact DOI")
	fs.StringSlice("source", nil, "restrict to sources (repeat or comma-separate)")
	fs.StringSlice("oa-status", nil, "restrict to OA statuses")
	fs.StringSlice("venue", nil, "restrict to venues")
	fs.StringSlice("publisher", nil, "restrict to publishers")
	fs.StringSlice("topic", nil, "restrict to topics")
	fs.Int("year-from", 0, "earliest publication year")
	fs.Int("year-to", 0, "latest publication year")
	fs.Bool("open-access-only", false, "only records with a PDF link")
	fs.String("sort", string(domain.SortRelevance), "sort key")
	fs.Int("page", domain.DefaultPage, "result page")
	fs.Int("page-size", domain.DefaultPageSize, "hits per page (max 100)")
}

// searchParamsFromFlags builds validated SearchParams. The optional
// positional argument is the free-text query.
func searchParamsFromFlags(fs *pflag.FlagSet, args []string) (domain.SearchParams, error) {
	var p domain.SearchParams
	if len(args) > 0 {
		p.Q = args[0]
	}
	p.DOI, _ = fs.GetString("doi")

	sources, _ := fs.GetStringSlice("source")
	for _, s := range sources {
		p.Filters.Source = append(p.Filters.Source, domain.Source(s))
	}
	statuses, _ := fs.GetStringSlice("oa-status")
	for _, s := range statuses {
		p.Filters.OAStatus = append(p.Filters.OAStatus, domain.OAStatus(s))
	}
	p.Filters.Venue, _ = fs.GetStringSlice("venue")
	p.Filters.Publisher, _ = fs.GetStringSlice("publisher")
	p.Filters.Topics, _ = fs.GetStringSlice("topic")
	if y, _ := fs.GetInt("year-from"); y != 0 {
		p.Filters.YearFrom = domain.IntPtr(y)
	}
	if y, _ := fs.GetInt("year-to"); y != 0 {
		p.Filters.YearTo = domain.IntPtr(y)
	}
	p.Filters.OpenAccessOnly, _ = fs.GetBool("open-access-only")

	sort, _ := fs.GetString("sort")
	p.Sort = domain.SortKey(sort)
	p.Page, _ = fs.GetInt("page")
	p.PageSize, _ = fs.GetInt("page-size")

	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return domain.SearchParams{}, err
	}
	return p, nil
}

func printHits(w io.Writer, resp *domain.SearchResponse) error {
	rows := make([][]string, 0, len(resp.Hits))
	for _, r := range resp.Hits {
		year := "-"
		if r.Year != nil {
			year = strconv.Itoa(*r.Year)
		}
		pdf := ""
		if r.HasPDF() {
			pdf = "pdf"
		}
		rows = append(rows, []string{r.ID, year, string(r.OAStatus), pdf, r.Title})
	}
	if err := writeTable(w, []string{"ID", "YEAR", "STATUS", "", "TITLE"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\npage %d, %d of %d hits\n", resp.Page, len(resp.Hits), resp.Total)
	return err
}
