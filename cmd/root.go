package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"snowbook/internal/config"
	"snowbook/internal/render"
	"snowbook/internal/security"
	"snowbook/internal/snowflake"
	"snowbook/pkg/models"
)

var rootCmd = &cobra.Command{
	Use:   "snowbook",
	Short: "Run templated query notebooks against Snowflake",
	Long: `Snowbook executes notebook files: ordered cells of templated SQL whose
results bind to names that later cells substitute into their own queries.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		render.ShowError(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Accept underscores in flag names (--allow_rebind == --allow-rebind)
	rootCmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home + "/.snowbook")
	}

	// A missing config file is fine; setup creates it on demand.
	_ = viper.ReadInConfig()
}

// connectService loads configuration, fills in the password from the
// credential store or an interactive prompt, and opens a connection.
func connectService() (*snowflake.Service, *models.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	password := cfg.Snowflake.Password
	if password == "" {
		password = lookupStoredPassword()
	}
	if password == "" {
		password, err = render.Password("Snowflake password:", "Run 'snowbook setup' to store credentials")
		if err != nil {
			return nil, nil, err
		}
	}

	timeout := 30 * time.Second
	if cfg.Snowflake.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Snowflake.Timeout); err == nil {
			timeout = d
		}
	}

	snowCfg := snowflake.Config{
		Account:   cfg.Snowflake.Account,
		Username:  cfg.Snowflake.Username,
		Password:  password,
		Database:  cfg.Snowflake.Database,
		Schema:    cfg.Snowflake.Schema,
		Warehouse: cfg.Snowflake.Warehouse,
		Role:      cfg.Snowflake.Role,
		Timeout:   timeout,
	}

	if err := snowflake.ValidateConfig(snowCfg); err != nil {
		return nil, nil, err
	}

	service := snowflake.NewService(snowCfg)
	if err := service.Connect(); err != nil {
		return nil, nil, err
	}

	return service, cfg, nil
}

func lookupStoredPassword() string {
	cm, err := security.NewCredentialManager("")
	if err != nil {
		return ""
	}
	cred, err := cm.Get("snowflake-password")
	if err != nil {
		return ""
	}
	return cred.Value
}

// sessionContext builds the immutable session context for a run: the
// configured defaults, overridden by the named environment when given.
func sessionContext(cfg *models.Config, envName string) (snowflake.SessionContext, error) {
	sctx := snowflake.SessionContext{
		Warehouse: cfg.Snowflake.Warehouse,
		Database:  cfg.Snowflake.Database,
		Schema:    cfg.Snowflake.Schema,
		Role:      cfg.Snowflake.Role,
	}

	if envName == "" {
		return sctx, nil
	}

	env, ok := cfg.EnvironmentByName(envName)
	if !ok {
		return sctx, fmt.Errorf("environment %q is not configured", envName)
	}

	if env.Database != "" {
		sctx.Database = env.Database
	}
	if env.Schema != "" {
		sctx.Schema = env.Schema
	}
	if env.Warehouse != "" {
		sctx.Warehouse = env.Warehouse
	}
	if env.Role != "" {
		sctx.Role = env.Role
	}

	return sctx, nil
}
