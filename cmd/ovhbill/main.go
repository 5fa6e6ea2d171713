// Command ovhbill converts OVH invoice PDFs into normalized CSV line items.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/ovhbill/internal/domain/invoice/service"
	"github.com/FACorreiaa/ovhbill/pkg/config"
	"github.com/FACorreiaa/ovhbill/pkg/storage"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "ovhbill",
		Short: "OVH invoice PDF to CSV converter",
		Long: `ovhbill extracts billed line items from OVH invoice PDFs and writes
them as normalized ;-delimited CSV records: one file per invoice plus one
aggregate report deduplicated by invoice reference.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(processCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func processCmd() *cobra.Command {
	var (
		inDir     string
		outDir    string
		tolerance string
		writeXLSX bool
		writeJSON bool
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Convert every invoice PDF in the input directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			slog.SetDefault(logger)

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("in") {
				cfg.InputDir = inDir
			}
			if cmd.Flags().Changed("out") {
				cfg.OutputDir = outDir
			}
			if cmd.Flags().Changed("tolerance") {
				tol, err := decimal.NewFromString(tolerance)
				if err != nil || tol.IsNegative() {
					return fmt.Errorf("invalid tolerance %q", tolerance)
				}
				cfg.Tolerance = tol
			}
			if writeXLSX {
				cfg.WriteXLSX = true
			}
			if writeJSON {
				cfg.WriteJSON = true
			}

			store, err := storage.NewLocal(cfg.OutputDir)
			if err != nil {
				return err
			}

			svc := service.New(cfg, store, logger)
			result, err := svc.Run(cmd.Context())
			if err != nil {
				return err
			}

			logger.Info("run complete",
				"processed", result.Processed,
				"failed", result.Failed,
				"duplicates", result.Duplicates,
				"items", result.Items,
				"report", result.ReportPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&inDir, "in", "./input", "directory scanned for invoice PDFs")
	cmd.Flags().StringVar(&outDir, "out", "./output", "directory receiving the CSV reports")
	cmd.Flags().StringVar(&tolerance, "tolerance", config.DefaultTolerance, "accepted gap between printed and computed totals")
	cmd.Flags().BoolVar(&writeXLSX, "xlsx", false, "also write the aggregate report as XLSX")
	cmd.Flags().BoolVar(&writeJSON, "json", false, "also write the aggregate report as JSON")

	return cmd
}
