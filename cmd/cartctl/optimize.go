package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cartwise/backend/internal/app"
	"github.com/cartwise/backend/internal/domain"
	"github.com/cartwise/backend/internal/usecase"
)

func newOptimizeCmd(opts *rootOptions) *cobra.Command {
	var listPath string

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Distribute a shopping list across merchants",
		Long: `Reads a shopping list from a YAML file, searches the catalog for every item
and prints the cheapest plan using the fewest stores.

Example list file:

  name: Weekly
  items:
    - name: Süt 1 lt
      quantity: 2
      price: 70
    - name: Yumurta 10 adet
      price: 95`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			name, items, err := readListFile(listPath)
			if err != nil {
				return err
			}

			components := app.NewComponents(cfg, log)
			defer components.Close()

			service := usecase.NewOptimizationService(
				staticItems(items),
				components.Searcher,
				components.Merchants,
				app.OptimizationConfig(cfg),
				log,
			)

			report := service.Optimize(cmd.Context(), fileListID)
			if err := cmd.Context().Err(); err != nil {
				return err
			}

			if opts.output != outputText {
				return writeStructured(cmd.OutOrStdout(), opts.output, report)
			}
			return printReport(cmd.OutOrStdout(), name, report)
		},
	}

	cmd.Flags().StringVarP(&listPath, "file", "f", "", "shopping list YAML file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// printReport renders a report as a human readable plan
func printReport(w io.Writer, listName string, report *domain.OptimizationReport) error {
	if listName != "" {
		fmt.Fprintf(w, "%s\n\n", listName)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, store := range report.Assignments {
		fmt.Fprintf(tw, "%s\t%d items\t%.2f\n", store.MerchantName, store.ItemCount, store.TotalCost)
		for _, match := range store.Items {
			fmt.Fprintf(tw, "  %s\t%s\t%.2f\n", match.Item.Name, match.BestOffer.Name, match.BestOffer.Price)
		}
	}
	if len(report.NotFoundItems) > 0 {
		fmt.Fprintln(tw, "Not found\t\t")
		for _, match := range report.NotFoundItems {
			fmt.Fprintf(tw, "  %s\t\t%.2f\n", match.Item.Name, match.Item.TotalPrice)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nCurrent total:   %.2f\n", report.CurrentTotalCost)
	fmt.Fprintf(w, "Optimized total: %.2f\n", report.TotalOptimizedCost)
	fmt.Fprintf(w, "Savings:         %.2f\n", report.TotalSavings)
	fmt.Fprintf(w, "Completion:      %.0f%%\n", report.CompletionPercentage)
	if report.Algorithm == domain.AlgorithmGreedyFallback {
		fmt.Fprintln(w, "Note: exact search timed out, plan is a greedy approximation")
	}
	return nil
}
