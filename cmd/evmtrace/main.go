package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"

	"github.com/chainbound/evmtrace/cmd/evmtrace/internal/cli"
)

func main() {
	if err := cli.Root().Execute(); err != nil {
		log.Error("evmtrace exited with error", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
