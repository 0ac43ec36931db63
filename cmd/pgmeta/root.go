package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/koustreak/pgmeta/internal/catalog"
	"github.com/koustreak/pgmeta/internal/config"
	"github.com/koustreak/pgmeta/internal/database/postgres"
	"github.com/koustreak/pgmeta/internal/errs"
	"github.com/koustreak/pgmeta/internal/filestore"
	"github.com/koustreak/pgmeta/internal/filestore/minio"
	"github.com/koustreak/pgmeta/internal/logger"
	"github.com/koustreak/pgmeta/internal/server"
	"github.com/koustreak/pgmeta/internal/snapshot"
)

// catalogReader is everything the commands ask of a catalog.
type catalogReader interface {
	server.Catalog
	snapshot.Source
}

var _ catalogReader = (*catalog.Reader)(nil)

// deps are the constructors commands use; tests swap them for fakes.
type deps struct {
	newCatalog func(cfg *config.Config, log *logger.Logger) catalogReader
	newStore   func(ctx context.Context, cfg *filestore.Config, log *logger.Logger) (filestore.Store, error)
}

func defaultDeps() deps {
	return deps{
		newCatalog: func(cfg *config.Config, log *logger.Logger) catalogReader {
			return catalog.New(postgres.New(&cfg.Database, log), log)
		},
		newStore: func(ctx context.Context, cfg *filestore.Config, log *logger.Logger) (filestore.Store, error) {
			return minio.New(ctx, cfg, log)
		},
	}
}

// app is the state resolved once per invocation before any command runs.
type app struct {
	deps   deps
	cfg    *config.Config
	log    *logger.Logger
	output string
}

func (a *app) catalog() catalogReader {
	return a.deps.newCatalog(a.cfg, a.log)
}

func execute(args []string) int {
	root := newRootCmd(defaultDeps())
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		output, _ := root.PersistentFlags().GetString("output")
		if output == "json" {
			_ = printJSON(os.Stdout, errorJSON(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(d deps) *cobra.Command {
	var (
		configPath string
		host       string
		port       int
		dbName     string
		user       string
		password   string
		ssl        bool
		logLevel   string
	)
	a := &app{deps: d}

	root := &cobra.Command{
		Use:           "pgmeta",
		Short:         "Inspect PostgreSQL system catalogs",
		Long:          "pgmeta lists databases, relations, columns and constraints from a PostgreSQL server's catalog.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.output != "table" && a.output != "json" {
				return errs.Newf(errs.ErrKindInvalidInput, "unsupported output format %q: use 'table' or 'json'", a.output)
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// flag > env > file > default
			flags := cmd.Flags()
			if flags.Changed("host") {
				cfg.Database.Host = host
			}
			if flags.Changed("port") {
				cfg.Database.Port = port
			}
			if flags.Changed("database") {
				cfg.Database.Database = dbName
			}
			if flags.Changed("user") {
				cfg.Database.User = user
			}
			if flags.Changed("password") {
				cfg.Database.Password = password
			}
			if flags.Changed("ssl") {
				cfg.Database.SSL = ssl
			}
			if flags.Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			cfg.Log.Output = cmd.ErrOrStderr()
			a.cfg = cfg
			a.log = logger.New(&cfg.Log)
			logger.SetGlobal(a.log)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a YAML config file")
	pf.StringVar(&host, "host", "", "PostgreSQL host (default "+config.Default().Database.Host+")")
	pf.IntVar(&port, "port", 0, "PostgreSQL port (default 5432)")
	pf.StringVarP(&dbName, "database", "d", "", "Database to inspect (default postgres)")
	pf.StringVarP(&user, "user", "U", "", "User to connect as")
	pf.StringVar(&password, "password", "", "Password (prefer PGMETA_PASSWORD)")
	pf.BoolVar(&ssl, "ssl", false, "Require TLS")
	pf.StringVarP(&a.output, "output", "o", "table", "Output format (table, json)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(newDatabasesCmd(a))
	root.AddCommand(newRelationsCmd(a))
	root.AddCommand(newAttributesCmd(a))
	root.AddCommand(newConstraintsCmd(a))
	root.AddCommand(newDescribeCmd(a))
	root.AddCommand(newCountCmd(a))
	root.AddCommand(newRegTypeCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newSnapshotCmd(a))

	return root
}

// stdout is where command results go.
func stdout(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
