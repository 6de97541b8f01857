package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-btrfs/internal/dedupe"
)

var (
	dedupeBlockSize uint64
	dedupeLimitNr   uint64
	dedupeBackend   string
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe-inband",
	Short: "Manage inband (write time) de-duplication",
}

var dedupeEnableCmd = &cobra.Command{
	Use:   "enable <path>",
	Short: "Enable inband de-duplication on a mounted filesystem",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := dedupe.DefaultOptions()
		opts.BlockSize = dedupeBlockSize
		opts.LimitNr = dedupeLimitNr
		if dedupeBackend != dedupe.BackendInMemory.String() {
			return fmt.Errorf("unknown dedupe backend %q", dedupeBackend)
		}
		return dedupe.Enable(args[0], opts)
	},
}

var dedupeDisableCmd = &cobra.Command{
	Use:   "disable <path>",
	Short: "Disable inband de-duplication on a mounted filesystem",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dedupe.Disable(args[0])
	},
}

var dedupeStatusCmd = &cobra.Command{
	Use:   "status <path>",
	Short: "Show the inband de-duplication state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := dedupe.GetStatus(args[0])
		if err != nil {
			return err
		}
		if !status.Enabled {
			fmt.Println("Inband deduplication: disabled")
			return nil
		}
		fmt.Printf("Inband deduplication: enabled\n")
		fmt.Printf("    Backend:    %s\n", status.Backend)
		fmt.Printf("    Block size: %d\n", status.BlockSize)
		fmt.Printf("    Hash limit: %d\n", status.LimitNr)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dedupeCmd)
	dedupeCmd.AddCommand(dedupeEnableCmd, dedupeDisableCmd, dedupeStatusCmd)

	dedupeEnableCmd.Flags().Uint64Var(&dedupeBlockSize, "blocksize", dedupe.BlockSizeDefault,
		"dedupe block size in bytes")
	dedupeEnableCmd.Flags().Uint64Var(&dedupeLimitNr, "limit-hash", dedupe.LimitNrDefault,
		"maximum number of tracked hashes (inmemory backend)")
	dedupeEnableCmd.Flags().StringVar(&dedupeBackend, "backend", dedupe.BackendInMemory.String(),
		"dedupe storage backend")
}
