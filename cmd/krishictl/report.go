package main

import (
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/krishi-kendra/krishi-kendra/internal/reporting"
)

func newReportCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print reports to the terminal",
	}
	stockCmd := &cobra.Command{
		Use:   "stock",
		Short: "Print the stock report, lowest quantity first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := e.pool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			loc, err := e.cfg.Location()
			if err != nil {
				return err
			}
			svc := reporting.NewService(reporting.NewRepository(pool), nil, reporting.ServiceConfig{Location: loc}, e.logger, nil)
			report, err := svc.StockReport(cmd.Context())
			if err != nil {
				return err
			}
			return printStock(cmd.OutOrStdout(), report)
		},
	}
	cmd.AddCommand(stockCmd)
	return cmd
}

func printStock(w io.Writer, report reporting.StockReport) error {
	p := message.NewPrinter(language.MustParse("en-IN"))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	p.Fprintf(tw, "PRODUCT\tCATEGORY\tSTOCK\tALERT\tSTATUS\n")
	for _, row := range report.Report {
		p.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", row.Name, row.Category, row.CurrentStock, row.AlertLevel, row.Status)
	}
	p.Fprintf(tw, "\nproducts: %d\tunits: %d\tlow stock: %d\tvalue: ₹%d\n",
		report.Summary.TotalProducts, report.Summary.TotalStock, report.Summary.LowStockProducts, report.Summary.TotalValue)
	return tw.Flush()
}
