package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"FraudShield/internal/app"
	"FraudShield/internal/dom"
	"FraudShield/internal/infrastructure/page"
)

const blankPage = `<html><head><title>FraudShield session</title></head><body></body></html>`

var (
	serveInput   string
	servePageURL string
	serveAddr    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep a page session open and expose the control API",
	Long: `serve loads a page (or starts from a blank one), keeps protection running
and accepts host mutations and user commands over the HTTP control API until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveInput, "input", "", "HTML file or http(s) URL to start from (default: blank page)")
	serveCmd.Flags().StringVar(&servePageURL, "url", "", "Address the page is shown under")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: api.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	logger := newLogger(cmd, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		doc *dom.Document
		err error
	)
	if serveInput != "" {
		doc, err = page.NewLoader(nil).Load(ctx, serveInput, servePageURL)
	} else {
		pageURL := servePageURL
		if pageURL == "" {
			pageURL = "about:blank"
		}
		doc, err = dom.ParseString(blankPage, pageURL)
	}
	if err != nil {
		return err
	}

	application, err := app.New(ctx, cfg, doc, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Serve(ctx, serveAddr)
}
