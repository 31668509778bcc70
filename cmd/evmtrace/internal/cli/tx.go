package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chainbound/evmtrace/executor"
)

func traceTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace-tx <block-number> <tx-index>",
		Short: "Trace a single historical transaction (trace_transaction)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			blockNum, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parse block number: %w", err)
			}
			txIndex, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("parse tx index: %w", err)
			}

			exec := newExecutor(cmd)
			cfg := traceConfigFromFlags(cmd)
			res, err := exec.TraceTransaction(executor.BlockContext{Number: blockNum}, txIndex, cfg)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	addTraceTypeFlags(cmd)
	return cmd
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
