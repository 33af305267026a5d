package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"order-etl/internal/dialect"
	"order-etl/internal/logging"
)

var (
	cfgFile string
	appCfg  *AppConfig
)

var RootCmd = &cobra.Command{
	Use:   "order-etl",
	Short: "Extract bike store orders, load them into a relational database and inspect the result",
	Long: `order-etl pulls the BikeStores datasets from the ETL server (or local CSV
files, or a generated fake set), loads them into PostgreSQL, MySQL, SQL Server,
Oracle or SQLite in one transaction, and derives an order summary table.

Connection parameters are read from <PREFIX>_USER, _PASSWORD, _HOST, _PORT and
_DATABASE, with the prefix set by --env-prefix (default POSTGRES).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadAppConfig(viper.GetViper())
		if err != nil {
			return err
		}
		if _, err := dialect.GetDialect(cfg.Database.Driver); err != nil {
			return err
		}
		logging.Setup(cfg.Log.Level, cfg.Log.Format)
		if used := viper.ConfigFileUsed(); used != "" {
			slog.Debug("using config file", "path", used)
		}
		appCfg = cfg
		return nil
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./order-etl.yaml)")
	flags.String("driver", "postgres", "destination driver: "+strings.Join(dialect.Drivers(), ", "))
	flags.String("env-prefix", "POSTGRES", "prefix of the connection environment variables")
	flags.Bool("demo", false, "fall back to demo connection defaults for unset variables")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text, json")

	viper.BindPFlag("database.driver", flags.Lookup("driver"))
	viper.BindPFlag("database.env_prefix", flags.Lookup("env-prefix"))
	viper.BindPFlag("database.demo", flags.Lookup("demo"))
	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("log.format", flags.Lookup("log-format"))

	setDefaults(viper.GetViper())
}

// initConfig loads .env, then the config file, then ORDER_ETL_* overrides.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Warning: could not read .env:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		if ex, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("order-etl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ORDER_ETL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "Warning: could not read config file:", err)
		}
	}
}
