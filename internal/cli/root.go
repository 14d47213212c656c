// Package cli implements the howcatalog command line
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nainya/howcatalog/internal/config"
	"github.com/nainya/howcatalog/internal/logger"
)

// Version is set at build time with -ldflags
var Version = "dev"

type options struct {
	configPath string
	dbPath     string
	inMemory   bool
	logLevel   string
	logPretty  bool

	cfg *config.Config
	log *logger.Logger
}

// NewRootCommand builds the howcatalog command tree
func NewRootCommand() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:          "howcatalog",
		Short:        "Content-addressed catalog of standards units and their documents",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&o.configPath, "config", "", "YAML config file")
	flags.StringVar(&o.dbPath, "db", "", "database directory (overrides storage.path)")
	flags.BoolVar(&o.inMemory, "in-memory", false, "keep the database in memory")
	flags.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error")
	flags.BoolVar(&o.logPretty, "log-pretty", false, "human-readable console logs")

	root.AddCommand(
		newServeCommand(o),
		newSeedCommand(o),
		newUnitsCommand(o),
		newDocumentsCommand(o),
		newTreeCommand(o),
		newVersionCommand(),
	)
	return root
}

// load resolves configuration: defaults, file, environment, then flags
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Storage.Path = o.dbPath
	}
	if flags.Changed("in-memory") {
		cfg.Storage.InMemory = o.inMemory
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-pretty") {
		cfg.Log.Pretty = o.logPretty
	}

	o.cfg = cfg
	o.log = logger.NewLogger(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Output: cmd.ErrOrStderr(),
	})
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "howcatalog %s\n", Version)
			return err
		},
	}
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
