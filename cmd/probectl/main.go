// probectl runs a declared check suite from the command line and exits with
// a code matching the verdict: 0 PASS, 1 FAIL, 2 CRITICAL_FAIL.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/probegate/probegate/internal/domain"
	"github.com/probegate/probegate/internal/logging"
	"github.com/probegate/probegate/internal/probe"
	"github.com/probegate/probegate/internal/runner"
	"github.com/probegate/probegate/internal/suite"
)

const envPrefix = "PROBEGATE"

var cliFlags = struct {
	Verbose    bool
	PacingMS   int
	DeadlineMS int
}{}

var exitCode int

var rootCmd = &cobra.Command{
	Use:          "probectl",
	Short:        "Run declared endpoint check suites and gate on the verdict",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run <suite-file>",
	Short: "Execute a suite sequentially and print the run report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.NewCLILogger(cliFlags.Verbose)
		defer logger.Sync()

		s, err := suite.Load(args[0], time.Duration(cliFlags.DeadlineMS)*time.Millisecond)
		if err != nil {
			return err
		}

		rn := runner.New(probe.NewHTTPProber(logger), logger,
			runner.WithPacing(time.Duration(cliFlags.PacingMS)*time.Millisecond))
		rn.OnProgress(printProgress)

		name := s.Name
		if name == "" {
			name = args[0]
		}
		fmt.Printf("Running %s (%d checks)\n\n", name, len(s.Checks))

		report, err := rn.Run(cmd.Context(), s.Checks)
		if err != nil {
			return err
		}
		printSummary(report)
		exitCode = verdictExitCode(report.Verdict)
		return nil
	},
}

func printProgress(ev domain.ProgressEvent) {
	o := ev.Outcome
	mark := "✔"
	if !o.Passed {
		mark = "✖"
	}
	status := "-"
	if o.ObservedStatus != 0 {
		status = fmt.Sprint(o.ObservedStatus)
	}
	fmt.Printf("[%d/%d] %s %-30s %s  %6.0fms  %s\n",
		ev.Index+1, ev.Total, mark, o.Name, status, o.ElapsedMS, o.Message)
	if o.Warning != "" {
		fmt.Printf("        ⚠ %s\n", o.Warning)
	}
}

func printSummary(r *domain.RunReport) {
	fmt.Println()
	if r.Cancelled {
		fmt.Println("Run cancelled before completion.")
	}
	fmt.Printf("Verdict: %s\n", r.Verdict)
	fmt.Printf("Passed:  %d/%d (%.2f%%)\n", r.Passed, r.Total, r.PassRatePct)
	if r.CriticalFailures > 0 {
		fmt.Printf("Critical failures: %d\n", r.CriticalFailures)
	}
	fmt.Printf("Timing:  avg %.0fms, max %.0fms, total %.0fms\n",
		r.AvgElapsedMS, r.MaxElapsedMS, r.TotalElapsedMS)
}

func verdictExitCode(v domain.Verdict) int {
	switch v {
	case domain.VerdictPass:
		return 0
	case domain.VerdictFail:
		return 1
	default:
		return 2
	}
}

// bindFlags lets every flag be set via PROBEGATE_* environment variables,
// with explicit flags taking precedence.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		envVar := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		_ = v.BindEnv(f.Name, envVar)
		if !f.Changed && v.IsSet(f.Name) {
			_ = cmd.PersistentFlags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&cliFlags.Verbose, "verbose", "v", false, "log probe details to stderr")
	rootCmd.PersistentFlags().IntVar(&cliFlags.PacingMS, "pacing-ms", 100, "gap between probes in milliseconds")
	rootCmd.PersistentFlags().IntVar(&cliFlags.DeadlineMS, "deadline-ms", 10000, "default per-check deadline when the suite declares none")
	bindFlags(rootCmd, viper.New())

	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✖", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}
