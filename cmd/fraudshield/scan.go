package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"FraudShield/internal/app"
	"FraudShield/internal/infrastructure/page"
)

var (
	scanInput   string
	scanPageURL string
	scanOut     string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a saved page or URL once and write the annotated HTML",
	Args:  cobra.NoArgs,
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanInput, "input", "", "HTML file or http(s) URL to scan")
	scanCmd.Flags().StringVar(&scanPageURL, "url", "", "Address the page is shown under (selects the platform adapter)")
	scanCmd.Flags().StringVar(&scanOut, "out", "", "Write the annotated page here instead of stdout")
	_ = scanCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	logger := newLogger(cmd, cfg)
	ctx := cmd.Context()

	doc, err := page.NewLoader(nil).Load(ctx, scanInput, scanPageURL)
	if err != nil {
		return err
	}

	application, err := app.New(ctx, cfg, doc, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	out, err := application.Scan(ctx)
	if err != nil {
		return err
	}

	if scanOut == "" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	}
	if err := os.WriteFile(scanOut, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", scanOut, err)
	}
	logger.Info("annotated page written", "path", scanOut)
	return nil
}
