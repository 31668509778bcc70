package cli

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/chainbound/evmtrace/executor"
)

func traceCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace-call <block-number>",
		Short: "Trace a standalone call against a block's state (trace_call)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blockNum, err := parseBlockNumber(args[0])
			if err != nil {
				return err
			}

			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			data, _ := cmd.Flags().GetString("data")
			gas, _ := cmd.Flags().GetUint64("gas")
			value, _ := cmd.Flags().GetString("value")
			atTxIndex, _ := cmd.Flags().GetInt("at-tx-index")

			call := executor.Call{
				From:  common.HexToAddress(from),
				Gas:   gas,
				Input: common.FromHex(data),
				Value: new(big.Int),
			}
			if to != "" {
				addr := common.HexToAddress(to)
				call.To = &addr
			}
			if value != "" {
				v, ok := new(big.Int).SetString(value, 10)
				if !ok {
					return fmt.Errorf("invalid value %q", value)
				}
				call.Value = v
			}

			exec := newExecutor(cmd)
			cfg := traceConfigFromFlags(cmd)
			res, err := exec.TraceCall(executor.BlockContext{Number: blockNum}, call, atTxIndex, cfg)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	cmd.Flags().String("from", "", "sender address")
	cmd.Flags().String("to", "", "recipient address, omit for a contract creation call")
	cmd.Flags().String("data", "0x", "call input data, hex encoded")
	cmd.Flags().Uint64("gas", 0, "gas limit for the call")
	cmd.Flags().String("value", "", "value to transfer, in wei")
	cmd.Flags().Int("at-tx-index", 0, "position within the block to insert the call at; transactions before it are replayed to rebuild state")
	addTraceTypeFlags(cmd)
	return cmd
}

func parseBlockNumber(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse block number: %w", err)
	}
	return n, nil
}
