package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const envPrefix = "LINKVAULT_"

var rootCmd = &cobra.Command{
	Use:   "linkvault",
	Short: "A short link service written in Go",
	Long: "A short link service with owner-scoped links, custom aliases, password protection, " +
		"expiration and click accounting, backed by SQLite or PostgreSQL with memory or Redis caching",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bindEnv(cmd)
	},
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the short link server",
	RunE:  runServer,
}

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Client commands for interacting with the server",
}

func init() {
	registerServerFlags(serverCmd)
	registerClientCommands(clientCmd)
	rootCmd.AddCommand(serverCmd, clientCmd)
}

// bindEnv fills every flag the user did not set from its LINKVAULT_* variable,
// so --db-dsn can also come from LINKVAULT_DB_DSN
func bindEnv(cmd *cobra.Command) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || f.Changed {
			return
		}
		value, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}
		if err := f.Value.Set(value); err != nil {
			bindErr = fmt.Errorf("invalid value %q for %s: %w", value, envName(f.Name), err)
		}
	})
	return bindErr
}

func envName(flagName string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func main() {
	// A missing .env file is fine; the environment and flags still apply
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
