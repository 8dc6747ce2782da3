package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kilianp07/eld/core/dispatch"
	"github.com/kilianp07/eld/infra/logger"
)

var (
	solveTolerance     float64
	solveMaxIterations int
)

var solveCmd = &cobra.Command{
	Use:   "solve <demand_mw>",
	Short: "Dispatch a single demand value over the configured fleet",
	Args:  cobra.ExactArgs(1),
	RunE:  solve,
}

func init() {
	solveCmd.Flags().Float64Var(&solveTolerance, "tolerance", dispatch.DefaultTolerance, "accepted power mismatch in MW")
	solveCmd.Flags().IntVar(&solveMaxIterations, "max-iterations", dispatch.DefaultMaxIterations, "lambda iteration budget")
	rootCmd.AddCommand(solveCmd)
}

func solve(cmd *cobra.Command, args []string) error {
	demand, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid demand %q: %w", args[0], err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logger.Configure(cfg.Log); err != nil {
		return err
	}
	res, err := dispatch.Solve(dispatch.Request{
		DemandMW:      demand,
		Fleet:         cfg.Fleet,
		Tolerance:     solveTolerance,
		MaxIterations: solveMaxIterations,
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for i, id := range cfg.Fleet.Labels() {
		fmt.Fprintf(out, "%s: %.2f MW\n", id, res.OutputsMW[i])
	}
	fmt.Fprintf(out, "Total cost: %.2f\n", res.TotalCost)
	fmt.Fprintf(out, "Lambda: %.4f (%d iterations)\n", res.Lambda, res.Iterations)
	return nil
}
