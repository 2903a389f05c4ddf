package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"behaviorgate/internal/adminauth"
)

var hashAdminKeyCmd = &cobra.Command{
	Use:   "hash-admin-key <key>",
	Short: "Print the ADMIN_KEY_HASH value for an admin key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encoded, err := adminauth.Hash(args[0], adminauth.ParamsFromConfig(cfg))
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Add this to your config.env file:")
		fmt.Fprintf(cmd.OutOrStdout(), "ADMIN_KEY_HASH=%s\n", encoded)
		return nil
	},
}
