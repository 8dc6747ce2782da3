package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/eld/app"
	"github.com/kilianp07/eld/infra/logger"
	"github.com/kilianp07/eld/pkg/export"
)

var (
	batchInput  string
	batchOutput string
	batchFormat string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Dispatch every step of a demand forecast CSV",
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchInput, "input", "i", "", "forecast CSV file")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "report file (stdout when empty)")
	batchCmd.Flags().StringVarP(&batchFormat, "format", "f", "csv", "report format: csv or json")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	switch batchFormat {
	case "csv", "json":
	default:
		return fmt.Errorf("unsupported report format %q", batchFormat)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := os.Open(batchInput)
	if err != nil {
		return err
	}
	points, err := export.ReadForecast(f, cfg.Forecast)
	_ = f.Close()
	if err != nil {
		return err
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	batch, err := svc.RunBatch(ctx, points)
	if err != nil {
		return err
	}

	var write func(io.Writer) error
	if batchFormat == "json" {
		write = func(w io.Writer) error { return export.WriteJSON(w, batch) }
	} else {
		write = func(w io.Writer) error { return export.WriteCSV(w, batch) }
	}
	summaryOut := cmd.OutOrStdout()
	if batchOutput == "" {
		if err := write(cmd.OutOrStdout()); err != nil {
			return err
		}
		summaryOut = cmd.ErrOrStderr()
	} else {
		out, err := os.Create(batchOutput)
		if err != nil {
			return err
		}
		if err := write(out); err != nil {
			_ = out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
		fmt.Fprintf(summaryOut, "Report written to %s\n", batchOutput)
	}
	return export.WriteSummary(summaryOut, batch.Summary())
}
