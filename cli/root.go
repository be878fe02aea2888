// Package cli provides the Cobra-based CLI for the inventory manager.
package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"inventory_manager/catalog"
	"inventory_manager/config"
	"inventory_manager/domain"
	"inventory_manager/logging"
	"inventory_manager/store"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	rootCmd = &cobra.Command{
		Use:           "inventory",
		Short:         "Multi-unit inventory with bundle stock",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// tests inject the store directly
			if catalogStore == nil {
				cfg, err := config.Load(viper.GetViper())
				if err != nil {
					return err
				}
				logger, err = logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
				if err != nil {
					return err
				}
				minSellingPrice = cfg.MinimumSellingPrice()

				catalogStore, err = store.NewStore(cmd.Context(), cfg.Store, cfg.StoreLocation())
				if err != nil {
					return err
				}
				openedStore = true
				logger.Debug().Str("store", cfg.Store).Msg("catalog store opened")
			}
			svc = catalog.NewService(catalogStore,
				catalog.WithLogger(logger.WithComponent("catalog").Logger),
				catalog.WithMinSellingPrice(minSellingPrice),
			)
			return nil
		},
	}

	catalogStore    domain.CatalogStore
	openedStore     bool // catalogStore was opened from config and must be closed
	svc             *catalog.Service
	logger          = logging.Nop()
	minSellingPrice = catalog.DefaultMinSellingPrice
)

func init() {
	// shell
	shellCmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := bufio.NewReader(os.Stdin)
			for {
				fmt.Print("inventory> ")
				line, err := r.ReadString('\n')
				if err != nil {
					return nil
				}
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					return nil
				}
				rootCmd.SetArgs(strings.Fields(line))
				if err := rootCmd.Execute(); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
				rootCmd.SetArgs(nil)
				resetFlags(rootCmd)
			}
		},
	}
	rootCmd.AddCommand(shellCmd)

	rootCmd.PersistentFlags().String("store", "memory", "store backend: memory|file|mysql|postgres")
	rootCmd.PersistentFlags().String("store-file", "data/catalog.json", "file store path")
	rootCmd.PersistentFlags().String("dsn", "", "database DSN for the mysql and postgres stores")
	rootCmd.PersistentFlags().String("config", "", "config file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level")
	rootCmd.PersistentFlags().String("log-format", "console", "log format: console|json")
	rootCmd.PersistentFlags().String("min-selling-price", "100", "lowest selling price for a sold unit")

	for _, key := range []string{"store", "store-file", "dsn", "config", "log-level", "log-format", "min-selling-price"} {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key))
	}
}

// resetFlags returns every local flag of cmd and its subcommands to its
// default so one shell line does not leak into the next.
func resetFlags(cmd *cobra.Command) {
	cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// decimalFlag returns the parsed value of a string flag, or nil when the flag
// was not given.
func decimalFlag(cmd *cobra.Command, name string) (*decimal.Decimal, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	raw, _ := cmd.Flags().GetString(name)
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &d, nil
}

// closeStore closes a store opened from config. Injected stores belong to
// the caller.
func closeStore() error {
	if !openedStore {
		return nil
	}
	openedStore = false
	c, ok := catalogStore.(io.Closer)
	catalogStore = nil
	if !ok {
		return nil
	}
	if err := c.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

// Execute runs the root command and then closes the store it opened. The
// shell runs inside one Execute, so its lines share the store.
func Execute() error {
	err := rootCmd.Execute()
	return errors.Join(err, closeStore())
}
