package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load records into the index without running connectors",
	Long: `Seed upserts the built-in sample records, or the records of a YAML seed
file given with --file. Records are keyed by id, so seeding twice is a no-op.
Run one seed at a time per index.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now().UTC()
		path, _ := cmd.Flags().GetString("file")

		var records []domain.OARecord
		if path == "" {
			records = seed.SampleRecords(now)
		} else {
			loaded, err := seed.LoadFile(path, now)
			if err != nil {
				return err
			}
			records = loaded
		}

		index, closeIndex, err := openIndex(cmd.Context())
		if err != nil {
			return err
		}
		defer closeIndex()

		if err := index.EnsureIndex(cmd.Context()); err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
		if err := index.UpsertMany(cmd.Context(), records); err != nil {
			return fmt.Errorf("upsert records: %w", err)
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d records into %s (%s)\n",
			len(records), cfg.Search.Index, index.Name())
		return err
	},
}

func init() {
	seedCmd.Flags().StringP("file", "f", "", "YAML seed file (default: built-in sample records)")

	rootCmd.AddCommand(seedCmd)
}
