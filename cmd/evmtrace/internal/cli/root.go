// Package cli wires the evmtrace command tree: trace-tx, trace-block and
// trace-call subcommands driving an executor.Executor, configured through
// cobra flags bound into viper the way the pack's own CLIs do.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chainbound/evmtrace/executor"
)

var v = viper.New()

// RunnerFactory builds the executor.Runner this CLI drives the EVM through.
// The actual EVM/state-reader wiring lives outside this module; an
// embedding application registers its own factory via SetRunnerFactory
// before Root().Execute() runs.
type RunnerFactory func() (executor.Runner, error)

var runnerFactory RunnerFactory = func() (executor.Runner, error) {
	return nil, fmt.Errorf("no runner configured: call cli.SetRunnerFactory before Execute")
}

// SetRunnerFactory registers the Runner an embedding application's EVM and
// state-reader integration provides.
func SetRunnerFactory(f RunnerFactory) { runnerFactory = f }

// Root returns the evmtrace root command.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "evmtrace",
		Short: "Trace EVM transactions, calls and blocks",
	}

	root.PersistentFlags().String("rpc-endpoint", "", "upstream node RPC endpoint used by the runner")
	root.PersistentFlags().Uint64("reexec", 128, "maximum number of ancestor blocks to replay when rebuilding historical state")
	root.PersistentFlags().String("metrics-addr", "", "address to serve Prometheus metrics on, empty disables it")
	root.PersistentFlags().String("log-level", "info", "log verbosity: trace, debug, info, warn, error")
	_ = v.BindPFlags(root.PersistentFlags())

	v.SetEnvPrefix("EVMTRACE")
	v.AutomaticEnv()

	root.AddCommand(traceTxCmd(), traceBlockCmd(), traceCallCmd())
	return root
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
