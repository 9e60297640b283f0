// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Command yokanctl is an operator CLI for creating, destroying, and
// migrating a database against a named backend, driving the same registry
// the (external) RPC provider would use. It is deliberately not the
// out-of-scope benchmark CLI: it has no client-side handle refcounting or
// RPC transport, only direct in-process calls into the registry.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"storj.io/yokan/backend"
	_ "storj.io/yokan/engine/arrayengine"
	_ "storj.io/yokan/engine/boltengine"
	_ "storj.io/yokan/engine/hashfile"
	_ "storj.io/yokan/engine/logengine"
	_ "storj.io/yokan/engine/lsmengine"
	_ "storj.io/yokan/engine/mmapengine"
	_ "storj.io/yokan/engine/nullengine"
	_ "storj.io/yokan/engine/orderedmap"
	_ "storj.io/yokan/engine/orderedset"
	_ "storj.io/yokan/engine/redisengine"
	_ "storj.io/yokan/engine/unorderedmap"
	_ "storj.io/yokan/engine/unorderedset"
	"storj.io/yokan/filter"
	_ "storj.io/yokan/filter/libfilter"
	_ "storj.io/yokan/filter/luafilter"
	"storj.io/yokan/opmode"
	"storj.io/yokan/status"
)

var log *zap.Logger

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "yokanctl: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "yokanctl",
	Short: "Operator tool for yokan backend databases",
}

func init() {
	cobra.OnInitialize(initLogging)
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(backendsCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(listCmd)

	createCmd.Flags().String("backend", "", "registered backend name (required)")
	createCmd.Flags().String("config", "{}", "backend configuration document (JSON)")
	createCmd.MarkFlagRequired("backend")

	destroyCmd.Flags().String("backend", "", "registered backend name (required)")
	destroyCmd.Flags().String("config", "{}", "backend configuration document (JSON)")
	destroyCmd.MarkFlagRequired("backend")

	migrateCmd.Flags().String("backend", "", "registered backend name (required)")
	migrateCmd.Flags().String("config", "{}", "backend configuration document (JSON)")
	migrateCmd.MarkFlagRequired("backend")

	listCmd.Flags().String("backend", "", "registered backend name (required)")
	listCmd.Flags().String("config", "{}", "backend configuration document (JSON)")
	listCmd.Flags().String("from", "", "starting key to scan from")
	listCmd.Flags().String("descriptor", "", "filter argument: a literal prefix/suffix, a Lua predicate, or a \"lib:name:args\" descriptor")
	listCmd.Flags().Int("max", 10, "maximum number of keys to return")
	listCmd.Flags().Bool("inclusive", false, "include the starting key itself")
	listCmd.Flags().Bool("suffix", false, "descriptor is a suffix rather than a prefix")
	listCmd.Flags().Bool("lua", false, "descriptor is an embedded-scripting predicate (LUA_FILTER)")
	listCmd.Flags().Bool("lib", false, "descriptor names a dynamically loaded filter (LIB_FILTER)")
	listCmd.Flags().Bool("filter-value", false, "the filter predicate also consumes the value (FILTER_VALUE)")
	listCmd.MarkFlagRequired("backend")
}

func initLogging() {
	level := zap.InfoLevel
	if viper.GetString("log-level") == "debug" {
		level = zap.DebugLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	log = l
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List registered backend types",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range backend.Types() {
			fmt.Println(name)
		}
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a database against a backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("backend")
		cfg, _ := cmd.Flags().GetString("config")

		ctx := cmd.Context()
		eng, err := backend.Create(ctx, name, []byte(cfg))
		if err != nil {
			return err
		}

		log.Info("database created", zap.String("backend", name), zap.String("config", eng.Config()))
		fmt.Printf("created %q database (sorted=%v)\n", name, eng.IsSorted())
		return nil
	},
}

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Destroy a database, removing any persisted files",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("backend")
		cfg, _ := cmd.Flags().GetString("config")

		ctx := cmd.Context()
		eng, err := backend.Create(ctx, name, []byte(cfg))
		if err != nil {
			return err
		}
		if err := eng.Destroy(ctx); err != nil {
			return err
		}
		log.Info("database destroyed", zap.String("backend", name))
		fmt.Printf("destroyed %q database\n", name)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List keys from an ordered backend, optionally filtered",
	Long: "List scans a freshly created (therefore empty) database's keyspace " +
		"using the same mode-dispatching filter factory (filter.New) the core " +
		"uses for listKeys/listKeyValues/iter, so an operator can exercise " +
		"SUFFIX, LUA_FILTER, and LIB_FILTER descriptors against a backend " +
		"directly from the command line.",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("backend")
		cfg, _ := cmd.Flags().GetString("config")
		from, _ := cmd.Flags().GetString("from")
		descriptor, _ := cmd.Flags().GetString("descriptor")
		max, _ := cmd.Flags().GetInt("max")
		inclusive, _ := cmd.Flags().GetBool("inclusive")
		suffix, _ := cmd.Flags().GetBool("suffix")
		lua, _ := cmd.Flags().GetBool("lua")
		lib, _ := cmd.Flags().GetBool("lib")
		filterValue, _ := cmd.Flags().GetBool("filter-value")

		var mode opmode.Mode
		if inclusive {
			mode |= opmode.Inclusive
		}
		if suffix {
			mode |= opmode.Suffix
		}
		if lua {
			mode |= opmode.LuaFilter
		}
		if lib {
			mode |= opmode.LibFilter
		}
		if filterValue {
			mode |= opmode.FilterValue
		}

		ctx := cmd.Context()
		eng, err := backend.Create(ctx, name, []byte(cfg))
		if err != nil {
			return err
		}

		f, err := filter.New(mode, []byte(descriptor))
		if err != nil {
			return err
		}
		budgets := make([]uint64, max)
		for i := range budgets {
			budgets[i] = 4096
		}
		slots, err := eng.ListKeys(ctx, mode, false, []byte(from), f, max, budgets)
		if err != nil {
			return err
		}
		for _, s := range slots {
			if s.Size == status.NoMoreKeys {
				break
			}
			fmt.Println(string(s.Data))
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Snapshot a database's persisted files for migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("backend")
		cfg, _ := cmd.Flags().GetString("config")

		ctx := cmd.Context()
		eng, err := backend.Create(ctx, name, []byte(cfg))
		if err != nil {
			return err
		}
		handle, err := eng.StartMigration(ctx)
		if err != nil {
			if status.CodeOf(err) == status.NotSupported {
				return fmt.Errorf("backend %q does not support migration", name)
			}
			return err
		}
		defer handle.Close(ctx)

		log.Info("migration snapshot started", zap.String("backend", name), zap.String("root", handle.Root()))
		fmt.Printf("migration root: %s\n", handle.Root())
		for _, f := range handle.Files() {
			fmt.Println(f)
		}
		return nil
	},
}
