// Command regtype-gen reads the built-in types of a running server and writes
// the OID to regtype table used by the catalog package.
package main

import (
	"bytes"
	"context"
	"fmt"
	"go/format"
	"io"
	"os"
	"text/template"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/koustreak/pgmeta/internal/config"
	"github.com/koustreak/pgmeta/internal/database/postgres"
	"github.com/koustreak/pgmeta/internal/errs"
	"github.com/koustreak/pgmeta/internal/logger"
)

// Type OIDs below FirstNormalObjectId are assigned by initdb.
const builtinTypesQuery = `
SELECT oid, oid::regtype::text
  FROM pg_catalog.pg_type
 WHERE oid < 16384
   AND typtype IN ('b', 'c', 'd', 'e', 'm', 'p', 'r')
   AND typnamespace = 'pg_catalog'::regnamespace
 ORDER BY oid`

type regType struct {
	OID  uint32
	Name string
}

var tmpl = template.Must(template.New("regtype").Parse(`// Code generated by regtype-gen; DO NOT EDIT.

package {{.Package}}

// regTypes maps built-in pg_type OIDs to their regtype spelling.
var regTypes = map[OID]string{
{{- range .Types}}
	{{.OID}}: {{printf "%q" .Name}},
{{- end}}
}
`))

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "regtype-gen: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, out, pkg string

	cmd := &cobra.Command{
		Use:           "regtype-gen",
		Short:         "Generate the built-in type OID table from a live server",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			cfg.Log.Output = cmd.ErrOrStderr()
			log := logger.New(&cfg.Log)

			types, err := loadTypes(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			src, err := render(pkg, types)
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(src)
				return err
			}
			if err := os.WriteFile(out, src, 0o644); err != nil {
				return errs.Wrap(errs.ErrKindUnknown, "failed to write "+out, err)
			}
			log.With().Str("file", out).Int("types", len(types)).Logger().Info("regtype table written")
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&pkg, "package", "catalog", "Package name of the generated file")
	return cmd
}

func loadTypes(ctx context.Context, cfg *config.Config) ([]regType, error) {
	var types []regType
	err := postgres.WithConn(ctx, &cfg.Database, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, builtinTypesQuery)
		if err != nil {
			return errs.Wrap(errs.ErrKindQueryFailed, "failed to list built-in types", err)
		}
		types, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (regType, error) {
			var t regType
			err := row.Scan(&t.OID, &t.Name)
			return t, err
		})
		if err != nil {
			return errs.Wrap(errs.ErrKindQueryFailed, "failed to read built-in types", err)
		}
		return nil
	})
	return types, err
}

// render executes the template and gofmts the result, which aligns the keys.
func render(pkg string, types []regType) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeSource(&buf, pkg, types); err != nil {
		return nil, err
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindUnknown, "generated source does not parse", err)
	}
	return src, nil
}

func writeSource(w io.Writer, pkg string, types []regType) error {
	return tmpl.Execute(w, struct {
		Package string
		Types   []regType
	}{pkg, types})
}
