package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chainbound/evmtrace/executor"
)

func traceBlockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace-block <block-number> <tx-count>",
		Short: "Trace every transaction in a block in order (trace_block_transactions)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			blockNum, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parse block number: %w", err)
			}
			txCount, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("parse tx count: %w", err)
			}

			exec := newExecutor(cmd)
			cfg := traceConfigFromFlags(cmd)
			res, err := exec.TraceBlockTransactions(executor.BlockContext{Number: blockNum}, txCount, cfg)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	addTraceTypeFlags(cmd)
	return cmd
}
