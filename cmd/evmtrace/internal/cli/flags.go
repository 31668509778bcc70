package cli

import (
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/chainbound/evmtrace/executor"
)

func addTraceTypeFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("vm-trace", false, "include the per-opcode VM trace")
	cmd.Flags().Bool("trace", true, "include the flattened call trace")
	cmd.Flags().Bool("state-diff", false, "include the per-address state diff")
}

func traceConfigFromFlags(cmd *cobra.Command) *executor.Config {
	vmTrace, _ := cmd.Flags().GetBool("vm-trace")
	trace, _ := cmd.Flags().GetBool("trace")
	stateDiff, _ := cmd.Flags().GetBool("state-diff")
	return &executor.Config{VMTrace: vmTrace, Trace: trace, StateDiff: stateDiff}
}

// maybeServeMetrics starts a Prometheus HTTP endpoint on the configured
// address, returning the registry the executor should publish into, or nil
// if no address was given.
func maybeServeMetrics(cmd *cobra.Command) prometheus.Registerer {
	addr, _ := cmd.Flags().GetString("metrics-addr")
	if addr == "" {
		return nil
	}
	reg := prometheus.NewRegistry()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("metrics server exited", "err", err)
		}
	}()
	return reg
}

func newExecutor(cmd *cobra.Command) *executor.Executor {
	runner, err := runnerFactory()
	if err != nil {
		fatalf("building runner: %v", err)
	}
	return executor.New(runner, nil, maybeServeMetrics(cmd))
}
