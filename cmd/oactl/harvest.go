package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/temporal"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Start, inspect and cancel harvest workflows",
	Long: `Harvest drives the Temporal harvest workflow that queries the connectors
and writes their records into the index. Only one harvest runs per index.`,
}

var harvestStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a harvest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := harvestInputFromFlags(cmd.Flags())
		if err != nil {
			return err
		}

		c, err := dialHarvest()
		if err != nil {
			return err
		}
		defer c.Close()

		workflowID, runID, err := c.StartHarvest(cmd.Context(), input)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "started %s (run %s)\n", workflowID, runID)

		if wait, _ := cmd.Flags().GetBool("wait"); !wait {
			return nil
		}
		result, err := c.Result(cmd.Context(), input.Index)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

var harvestStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the progress of the running or last harvest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dialHarvest()
		if err != nil {
			return err
		}
		defer c.Close()

		progress, err := c.Progress(cmd.Context(), indexFlag(cmd.Flags()))
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), progress)
		}
		return printProgress(cmd.OutOrStdout(), progress)
	},
}

var harvestCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Stop a running harvest after its current batch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dialHarvest()
		if err != nil {
			return err
		}
		defer c.Close()

		index := indexFlag(cmd.Flags())
		reason, _ := cmd.Flags().GetString("reason")
		if err := c.Cancel(cmd.Context(), index, reason); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cancel requested for %s\n", temporal.HarvestWorkflowID(index))
		return nil
	},
}

func init() {
	addHarvestStartFlags(harvestStartCmd.Flags())
	harvestStatusCmd.Flags().String("index", "", "target index (default: search.index)")
	harvestStatusCmd.Flags().Bool("json", false, "print the raw progress JSON")
	harvestCancelCmd.Flags().String("index", "", "target index (default: search.index)")
	harvestCancelCmd.Flags().String("reason", "cancelled via oactl", "reason recorded with the signal")

	harvestCmd.AddCommand(harvestStartCmd, harvestStatusCmd, harvestCancelCmd)
	rootCmd.AddCommand(harvestCmd)
}

func addHarvestStartFlags(fs *pflag.FlagSet) {
	fs.String("index", "", "target index (default: search.index)")
	fs.StringArrayP("query", "q", nil, "title or keywords query (repeatable)")
	fs.StringArray("doi", nil, "DOI query (repeatable)")
	fs.StringSlice("source", nil, "restrict to sources (default: every enabled connector)")
	fs.Int("year-from", 0, "earliest publication year for every query")
	fs.Int("year-to", 0, "latest publication year for every query")
	fs.Int("batch-size", 0, "records per index write (default: harvest.batch_size)")
	fs.Int("max-per-source", 0, "records per query and source (default: harvest.max_per_source)")
	fs.Bool("wait", false, "wait for the workflow and print its result")
}

func indexFlag(fs *pflag.FlagSet) string {
	if index, _ := fs.GetString("index"); index != "" {
		return index
	}
	return cfg.Search.Index
}

// harvestInputFromFlags builds a validated HarvestInput, falling back to the
// harvest config for batch and per-source limits.
func harvestInputFromFlags(fs *pflag.FlagSet) (temporal.HarvestInput, error) {
	input := temporal.HarvestInput{
		Index:       indexFlag(fs),
		RequestedBy: "oactl",
	}
	input.BatchSize, _ = fs.GetInt("batch-size")
	if input.BatchSize == 0 {
		input.BatchSize = cfg.Harvest.BatchSize
	}
	input.MaxPerSource, _ = fs.GetInt("max-per-source")
	if input.MaxPerSource == 0 {
		input.MaxPerSource = cfg.Harvest.MaxPerSource
	}

	sources, _ := fs.GetStringSlice("source")
	for _, s := range sources {
		input.Sources = append(input.Sources, domain.Source(s))
	}

	var yearFrom, yearTo *int
	if y, _ := fs.GetInt("year-from"); y != 0 {
		yearFrom = domain.IntPtr(y)
	}
	if y, _ := fs.GetInt("year-to"); y != 0 {
		yearTo = domain.IntPtr(y)
	}
	queries, _ := fs.GetStringArray("query")
	for _, q := range queries {
		input.Queries = append(input.Queries, temporal.HarvestQuery{TitleOrKeywords: q, YearFrom: yearFrom, YearTo: yearTo})
	}
	dois, _ := fs.GetStringArray("doi")
	for _, d := range dois {
		input.Queries = append(input.Queries, temporal.HarvestQuery{DOI: d, YearFrom: yearFrom, YearTo: yearTo})
	}

	input = input.WithDefaults()
	if err := input.Validate(); err != nil {
		return temporal.HarvestInput{}, err
	}
	return input, nil
}

func printProgress(w io.Writer, p *temporal.HarvestProgress) error {
	fmt.Fprintf(w, "status:   %s (%s)\n", p.Status, p.Phase)
	fmt.Fprintf(w, "fetches:  %d/%d\n", p.FetchesDone, p.FetchesTotal)
	fmt.Fprintf(w, "records:  %d fetched, %d indexed in %d batches\n", p.RecordsFetched, p.RecordsIndexed, p.BatchesIndexed)
	if len(p.Errors) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(p.Errors))
	for _, e := range p.Errors {
		rows = append(rows, []string{string(e.Source), fmt.Sprint(e.Query), e.Reason})
	}
	fmt.Fprintln(w, "errors:")
	return writeTable(w, []string{"SOURCE", "QUERY", "REASON"}, rows)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

