package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global output flags only
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "go-btrfs",
	Short: "Offline btrfs metadata inspection and repair",
	Long: `go-btrfs is an offline command-line tool for inspecting and repairing
btrfs metadata images without mounting the filesystem.

Works on metadata images of unmounted filesystems. Ideal for recovering
subvolumes that were deleted but whose trees have not been cleaned up yet.

Commands:
  rescue         Repair operations (undelete-subvol)
  dedupe-inband  Manage inband (write time) de-duplication`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Only global output control flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quiet
}
