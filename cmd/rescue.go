package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-btrfs/internal/managers/recovery"
	"github.com/deploymenttheory/go-btrfs/internal/services"
	"github.com/deploymenttheory/go-btrfs/internal/store/filestore"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

var undeleteSubvolID uint64

var rescueCmd = &cobra.Command{
	Use:   "rescue",
	Short: "Repair a damaged or partially deleted filesystem",
}

var undeleteSubvolCmd = &cobra.Command{
	Use:   "undelete-subvol <image>",
	Short: "Recover deleted subvolumes that are still intact",
	Long: `Recover deleted subvolumes from a btrfs metadata image.

A deleted subvolume leaves an orphan marker behind and is cleaned up
lazily. Until cleanup starts, its tree is fully readable; this command
re-attaches such subvolumes under lost+found as sub<id>.

Examples:
  # Recover every intact deleted subvolume
  go-btrfs rescue undelete-subvol metadata.img

  # Recover one specific subvolume
  go-btrfs rescue undelete-subvol metadata.img --subvol-id 257`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUndeleteSubvol(args[0], undeleteSubvolID)
	},
}

func init() {
	rootCmd.AddCommand(rescueCmd)
	rescueCmd.AddCommand(undeleteSubvolCmd)

	undeleteSubvolCmd.Flags().Uint64Var(&undeleteSubvolID, "subvol-id", 0,
		"recover only this subvolume id (0 recovers all)")
}

func runUndeleteSubvol(imagePath string, subvolID uint64) error {
	config, err := LoadToolConfig()
	if err != nil {
		return err
	}
	if config.BackupImage {
		if err := backupImage(imagePath, config.BackupSuffix); err != nil {
			return err
		}
		if GetVerbose() {
			fmt.Printf("Backed up image to %s%s\n", imagePath, config.BackupSuffix)
		}
	}

	store, err := filestore.Open(imagePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if GetVerbose() {
		fmt.Printf("Opened metadata image %s (generation %d)\n", imagePath, store.Generation())
	}

	service := services.NewUndeleteService(store)
	if !GetQuiet() {
		service.SetNotify(func(subvolID types.ObjectID) {
			fmt.Printf("Recovered subvolume %d\n", subvolID)
		})
	}

	result, err := service.UndeleteSubvolumes(subvolID)
	if err != nil {
		if errors.Is(err, recovery.ErrTargetNotFound) {
			return fmt.Errorf("subvolume %d has no orphan marker, nothing to recover", subvolID)
		}
		return err
	}

	if !GetQuiet() {
		fmt.Printf("Found %d subvolumes lost, recovered %d\n", result.Found, result.Recovered)
	}
	return nil
}
