// Command kfrun runs Kalman filters over measurement scenarios described in YAML files.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

func main() {
	cobra.CheckErr(NewCmd().Execute())
}

// NewCmd creates kfrun root command
func NewCmd() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "kfrun [command] [flags] [args]",
		Short:         "kfrun runs Kalman filters over measurement scenarios",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}
	rootCmd.PersistentFlags().Bool("debug", false, "log every filter step")

	runCmd := &cobra.Command{
		Use:   "run [flags] <path to scenario.yml>",
		Short: "Filter scenario measurements",
		RunE:  doRun,
	}
	runCmd.Args = cobra.ExactArgs(1)
	runCmd.Flags().StringP("plot", "p", "", "`<Path>` to save the plot of the filtered state")
	runCmd.Flags().StringP("filter", "f", "", "`<Filter>` to run: kf or ukf; overrides the scenario")
	runCmd.Flags().IntP("simulate", "s", 0, "`<Steps>` of measurements to simulate instead of scenario measurements")

	rootCmd.AddCommand(runCmd)

	return rootCmd
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

func doRun(cmd *cobra.Command, args []string) error {
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return err
	}

	plotPath, err := cmd.Flags().GetString("plot")
	if err != nil {
		return err
	}

	kind, err := cmd.Flags().GetString("filter")
	if err != nil {
		return err
	}

	steps, err := cmd.Flags().GetInt("simulate")
	if err != nil {
		return err
	}

	log, err := newLogger(debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	sc, err := LoadScenario(args[0])
	if err != nil {
		return err
	}

	if kind != "" {
		sc.Filter = kind
		if err := sc.Validate(); err != nil {
			return err
		}
	}

	var truth *mat.Dense
	if steps > 0 {
		if truth, err = simulate(sc, steps); err != nil {
			return fmt.Errorf("simulation failed: %w", err)
		}
		log.Info("measurements simulated", zap.Int("steps", steps))
	}

	k, err := newFilter(sc)
	if err != nil {
		return fmt.Errorf("failed to create filter: %w", err)
	}

	res, err := run(log, sc, k)
	if err != nil {
		return err
	}
	res.Truth = truth

	if plotPath != "" {
		if err := savePlot(res, plotPath); err != nil {
			return err
		}
		log.Info("plot saved", zap.String("path", plotPath))
	}

	return nil
}
