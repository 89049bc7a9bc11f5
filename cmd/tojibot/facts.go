package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ent0n29/tojibot/internal/app"
	"github.com/ent0n29/tojibot/internal/facts"
)

func newFactsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facts",
		Short: "Manage the character fact store",
	}
	cmd.AddCommand(newFactsLoadCmd(c), newFactsCountCmd(c))
	return cmd
}

func newFactsLoadCmd(c *cli) *cobra.Command {
	var (
		file      string
		force     bool
		batchSize int
		delay     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Split a text file into paragraphs and insert them as facts",
		Long: `Reads a plain-text character sheet, splits it into paragraphs (blank lines
and markdown headers separate them), skips facts that are already stored and
inserts the rest in batches.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read facts file: %w", err)
			}
			paragraphs := facts.SplitParagraphs(string(raw))
			if len(paragraphs) == 0 {
				return fmt.Errorf("%s contains no usable paragraphs", file)
			}

			store, err := app.OpenFactStore(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			c.logger.Info("loading facts",
				zap.String("file", file),
				zap.String("backend", store.Backend()),
				zap.Int("paragraphs", len(paragraphs)))

			loader := &facts.Loader{
				Store:     store,
				Force:     force,
				BatchSize: batchSize,
				Delay:     delay,
				Logger:    c.logger,
			}
			report, err := loader.Load(cmd.Context(), paragraphs)
			if err != nil {
				return err
			}
			total, err := store.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("count facts: %w", err)
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(struct {
				facts.LoadReport
				Total int `json:"total"`
			}{report, total})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "toji_facts.txt", "character sheet to load")
	cmd.Flags().BoolVar(&force, "force", false, "insert every paragraph without checking for duplicates")
	cmd.Flags().IntVar(&batchSize, "batch", facts.DefaultBatchSize, "facts per insert batch")
	cmd.Flags().DurationVar(&delay, "delay", facts.DefaultBatchDelay, "pause between batches")
	return cmd
}

func newFactsCountCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored facts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.OpenFactStore(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("count facts: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d facts in %s store\n", n, store.Backend())
			return nil
		},
	}
}
