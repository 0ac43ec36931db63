package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/koustreak/pgmeta/internal/catalog"
	"github.com/koustreak/pgmeta/internal/errs"
)

func parseOID(what, s string) (catalog.OID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errs.Wrap(errs.ErrKindInvalidInput, "invalid "+what+" "+strconv.Quote(s), err)
	}
	return catalog.OID(n), nil
}

func newDatabasesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "databases",
		Short: "List databases on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbs, err := a.catalog().Databases(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(stdout(cmd), dbs, databaseHeader, func() [][]string { return databaseRows(dbs) })
		},
	}
}

func newRelationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "relations",
		Short: "List relations outside the system schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rels, err := a.catalog().Relations(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(stdout(cmd), rels, relationHeader, func() [][]string { return relationRows(rels) })
		},
	}
}

func newAttributesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "attributes <relid>",
		Short: "List the columns of a relation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOID("relation id", args[0])
			if err != nil {
				return err
			}
			attrs, err := a.catalog().Attributes(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.render(stdout(cmd), attrs, attributeHeader, func() [][]string { return attributeRows(attrs) })
		},
	}
}

func newConstraintsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "constraints <relid>",
		Short: "List the constraints of a relation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOID("relation id", args[0])
			if err != nil {
				return err
			}
			cons, err := a.catalog().Constraints(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.render(stdout(cmd), cons, constraintHeader, func() [][]string { return constraintRows(cons) })
		},
	}
}

func newDescribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <relid>",
		Short: "Show a relation with its columns and constraints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOID("relation id", args[0])
			if err != nil {
				return err
			}
			rel, err := a.catalog().Describe(cmd.Context(), id)
			if err != nil {
				return err
			}

			w := stdout(cmd)
			if a.output == "json" {
				return printJSON(w, rel)
			}
			fmt.Fprintf(w, "%s (%s, relid %d, owner %s)\n\n", rel.QualifiedName(), relKindText(rel.Kind), rel.ID, rel.Owner)
			if err := printTable(w, attributeHeader, attributeRows(rel.Attributes)); err != nil {
				return err
			}
			if len(rel.Constraints) == 0 {
				return nil
			}
			fmt.Fprintln(w)
			return printTable(w, constraintHeader, constraintRows(rel.Constraints))
		},
	}
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count <table>",
		Short: "Count the rows of a table, given as name or schema.name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.catalog().Count(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.output == "json" {
				return printJSON(stdout(cmd), map[string]any{"table": args[0], "count": n})
			}
			_, err = fmt.Fprintln(stdout(cmd), n)
			return err
		},
	}
}

func newRegTypeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "regtype [oid]",
		Short: "Resolve a built-in type OID, or list them all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oids := catalog.RegTypeOIDs()
			if len(args) == 1 {
				oid, err := parseOID("type oid", args[0])
				if err != nil {
					return err
				}
				if _, ok := catalog.RegType(oid); !ok {
					return errs.Newf(errs.ErrKindNotFound, "type %d is not a built-in type", oid)
				}
				oids = []catalog.OID{oid}
			}

			type entry struct {
				OID  catalog.OID `json:"oid"`
				Name string      `json:"name"`
			}
			entries := make([]entry, len(oids))
			rows := make([][]string, len(oids))
			for i, oid := range oids {
				entries[i] = entry{OID: oid, Name: catalog.TypeName(oid)}
				rows[i] = []string{strconv.FormatUint(uint64(oid), 10), entries[i].Name}
			}
			return a.render(stdout(cmd), entries, []string{"OID", "NAME"}, func() [][]string { return rows })
		},
	}
}
