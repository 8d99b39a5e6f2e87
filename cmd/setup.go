package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"snowbook/internal/config"
	"snowbook/internal/render"
	"snowbook/internal/security"
	"snowbook/internal/snowflake"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure the Snowflake connection interactively",
	Long: `Setup walks through the Snowflake connection settings and writes them
to ~/.snowbook/config.yaml. The password is stored in the OS keyring when
available, otherwise encrypted inside the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		render.ShowHeader("Snowbook setup")

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		prompter := render.SurveyPrompter{}

		if cfg.Snowflake.Account, err = prompter.Input("Account identifier (e.g. xy12345.us-east-1):", cfg.Snowflake.Account); err != nil {
			return err
		}
		if cfg.Snowflake.Username, err = prompter.Input("Username:", cfg.Snowflake.Username); err != nil {
			return err
		}

		password, err := render.Password("Password:", "Stored in the OS keyring when available")
		if err != nil {
			return err
		}

		if cfg.Snowflake.Role, err = prompter.Input("Role:", orDefault(cfg.Snowflake.Role, "PUBLIC")); err != nil {
			return err
		}
		if cfg.Snowflake.Warehouse, err = prompter.Input("Warehouse:", orDefault(cfg.Snowflake.Warehouse, "COMPUTE_WH")); err != nil {
			return err
		}
		if cfg.Snowflake.Database, err = prompter.Input("Database:", cfg.Snowflake.Database); err != nil {
			return err
		}
		if cfg.Snowflake.Schema, err = prompter.Input("Schema:", orDefault(cfg.Snowflake.Schema, "PUBLIC")); err != nil {
			return err
		}

		// Prefer the credential store; fall back to the encrypted config field.
		if cm, cmErr := security.NewCredentialManager(""); cmErr == nil {
			if err := cm.Store("snowflake-password", "password", password); err == nil {
				cfg.Snowflake.Password = ""
			} else {
				cfg.Snowflake.Password = password
			}
		} else {
			cfg.Snowflake.Password = password
		}

		test, err := render.Confirm("Test the connection now?", true)
		if err != nil {
			return err
		}
		if test {
			snowCfg := snowflake.Config{
				Account:   cfg.Snowflake.Account,
				Username:  cfg.Snowflake.Username,
				Password:  password,
				Database:  cfg.Snowflake.Database,
				Schema:    cfg.Snowflake.Schema,
				Warehouse: cfg.Snowflake.Warehouse,
				Role:      cfg.Snowflake.Role,
			}
			service := snowflake.NewService(snowCfg)
			if err := service.Connect(); err != nil {
				render.ShowError(err)
				keep, confirmErr := render.Confirm("Connection failed. Save the configuration anyway?", false)
				if confirmErr != nil {
					return confirmErr
				}
				if !keep {
					return fmt.Errorf("setup aborted")
				}
			} else {
				render.ShowSuccess("Connection verified")
				service.Close()
			}
		}

		if err := config.Save(cfg); err != nil {
			return err
		}

		render.ShowSuccess(fmt.Sprintf("Configuration written to %s", config.GetConfigFile()))
		return nil
	},
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
