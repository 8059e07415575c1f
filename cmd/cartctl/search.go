package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cartwise/backend/internal/app"
	"github.com/cartwise/backend/internal/usecase"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog and rank offers by relevance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")

			components := app.NewComponents(cfg, log)
			defer components.Close()

			offers, err := components.Searcher.SearchOffers(cmd.Context(), query)
			if err != nil {
				return err
			}

			matcher := usecase.NewOfferMatcher(usecase.MatchConfig{}, log)
			ranked := matcher.RankOffers(query, offers)
			if limit > 0 && len(ranked) > limit {
				ranked = ranked[:limit]
			}

			if opts.output != outputText {
				return writeStructured(cmd.OutOrStdout(), opts.output, ranked)
			}

			if len(ranked) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No offers for %q\n", query)
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SCORE\tPRICE\tMERCHANT\tNAME")
			for _, offer := range ranked {
				fmt.Fprintf(tw, "%.1f\t%.2f\t%s\t%s\n", offer.Score, offer.Price, components.Merchants.DisplayName(offer.MerchantID), offer.Name)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of offers to print (0 = all)")

	return cmd
}
