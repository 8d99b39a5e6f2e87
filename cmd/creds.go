package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"snowbook/internal/render"
	"snowbook/internal/security"
)

var credsCmd = &cobra.Command{
	Use:   "creds",
	Short: "Manage stored credentials",
	Long: `Creds manages credentials in the OS keyring (or the encrypted file
store when no keyring is available). The connection password lives under
the name "snowflake-password".`,
}

var credsSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Store a credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, err := security.NewCredentialManager("")
		if err != nil {
			return err
		}

		value, err := render.Password(fmt.Sprintf("Value for %s:", args[0]), "")
		if err != nil {
			return err
		}

		if err := cm.Store(args[0], "password", value); err != nil {
			return err
		}
		render.ShowSuccess(fmt.Sprintf("Stored %s", args[0]))
		return nil
	},
}

var credsGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print a stored credential value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, err := security.NewCredentialManager("")
		if err != nil {
			return err
		}

		cred, err := cm.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Println(cred.Value)
		return nil
	},
}

var credsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored credential names",
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, err := security.NewCredentialManager("")
		if err != nil {
			return err
		}

		names, err := cm.List()
		if err != nil {
			return err
		}

		if len(names) == 0 {
			render.ShowInfo("No credentials stored")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var credsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a stored credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, err := security.NewCredentialManager("")
		if err != nil {
			return err
		}

		if err := cm.Delete(args[0]); err != nil {
			return err
		}
		render.ShowSuccess(fmt.Sprintf("Deleted %s", args[0]))
		return nil
	},
}

func init() {
	credsCmd.AddCommand(credsSetCmd, credsGetCmd, credsListCmd, credsDeleteCmd)
	rootCmd.AddCommand(credsCmd)
}
