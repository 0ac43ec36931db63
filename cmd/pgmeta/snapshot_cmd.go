package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/koustreak/pgmeta/internal/errs"
	"github.com/koustreak/pgmeta/internal/filestore"
	"github.com/koustreak/pgmeta/internal/snapshot"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export catalog snapshots to object storage and read them back",
	}
	cmd.AddCommand(newSnapshotExportCmd(a))
	cmd.AddCommand(newSnapshotListCmd(a))
	cmd.AddCommand(newSnapshotShowCmd(a))
	return cmd
}

// exporter opens the configured store. The caller closes the store.
func (a *app) exporter(ctx context.Context) (*snapshot.Exporter, filestore.Store, error) {
	fs := &a.cfg.FileStore
	if !fs.Enabled() {
		return nil, nil, errs.New(errs.ErrKindInvalidInput, "object storage is not configured: set filestore.endpoint or PGMETA_S3_ENDPOINT")
	}
	store, err := a.deps.newStore(ctx, fs, a.log)
	if err != nil {
		return nil, nil, err
	}
	return snapshot.NewExporter(store, fs.Bucket, fs.Prefix, a.log), store, nil
}

func newSnapshotExportCmd(a *app) *cobra.Command {
	var urlTTL time.Duration

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Snapshot the current database's catalog into object storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			exp, store, err := a.exporter(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := snapshot.Take(ctx, a.catalog())
			if err != nil {
				return err
			}
			key, err := exp.Export(ctx, snap)
			if err != nil {
				return err
			}

			var url string
			if urlTTL > 0 {
				if url, err = exp.URL(ctx, snap.Database, snap.ID, urlTTL); err != nil {
					return err
				}
			}

			w := stdout(cmd)
			if a.output == "json" {
				out := map[string]any{"id": snap.ID, "database": snap.Database, "key": key}
				if url != "" {
					out["url"] = url
				}
				return printJSON(w, out)
			}
			fmt.Fprintln(w, key)
			if url != "" {
				fmt.Fprintln(w, url)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&urlTTL, "url-ttl", 0, "Also print a presigned download URL valid for this long")
	return cmd
}

func newSnapshotListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [database]",
		Short: "List stored snapshots, oldest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			exp, store, err := a.exporter(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			var database string
			if len(args) == 1 {
				database = args[0]
			}
			entries, err := exp.List(ctx, database)
			if err != nil {
				return err
			}
			return a.render(stdout(cmd), entries, []string{"ID", "DATABASE", "SIZE", "MODIFIED"}, func() [][]string {
				rows := make([][]string, len(entries))
				for i, e := range entries {
					rows[i] = []string{
						e.ID.String(),
						e.Database,
						strconv.FormatInt(e.Size, 10),
						e.LastModified.Format(time.RFC3339),
					}
				}
				return rows
			})
		},
	}
}

func newSnapshotShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <database> <id>",
		Short: "Print a stored snapshot as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[1])
			if err != nil {
				return errs.Wrap(errs.ErrKindInvalidInput, "invalid snapshot id "+strconv.Quote(args[1]), err)
			}

			ctx := cmd.Context()
			exp, store, err := a.exporter(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := exp.Load(ctx, args[0], id)
			if err != nil {
				return err
			}
			return printJSON(stdout(cmd), snap)
		},
	}
}
