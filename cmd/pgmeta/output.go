package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/koustreak/pgmeta/internal/catalog"
	"github.com/koustreak/pgmeta/internal/errs"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func errorJSON(err error) map[string]string {
	return map[string]string{
		"error": err.Error(),
		"kind":  errs.KindOf(err).String(),
	}
}

// printTable writes tab-separated rows aligned into columns.
func printTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// render prints v as JSON, or as the table built by rows.
func (a *app) render(w io.Writer, v any, header []string, rows func() [][]string) error {
	if a.output == "json" {
		return printJSON(w, v)
	}
	return printTable(w, header, rows())
}

func relKindText(k catalog.RelKind) string {
	if l, ok := k.Label(); ok {
		return l
	}
	return "(" + string(k) + ")"
}

func conTypeText(t catalog.ConType) string {
	if l, ok := t.Label(); ok {
		return l
	}
	return "(" + string(t) + ")"
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func joinKey(key []int16) string {
	parts := make([]string, len(key))
	for i, k := range key {
		parts[i] = strconv.Itoa(int(k))
	}
	return strings.Join(parts, ",")
}

func databaseRows(dbs []catalog.Database) [][]string {
	rows := make([][]string, len(dbs))
	for i, d := range dbs {
		rows[i] = []string{
			strconv.FormatUint(uint64(d.OID), 10),
			d.Name,
			d.Owner,
			d.Encoding,
			strconv.FormatBool(d.IsTemplate),
			strconv.FormatBool(d.AllowConn),
			strconv.Itoa(int(d.ConnLimit)),
		}
	}
	return rows
}

var databaseHeader = []string{"OID", "NAME", "OWNER", "ENCODING", "TEMPLATE", "ALLOWCONN", "CONNLIMIT"}

func relationRows(rels []catalog.Relation) [][]string {
	rows := make([][]string, len(rels))
	for i, r := range rels {
		rows[i] = []string{
			strconv.FormatUint(uint64(r.ID), 10),
			r.Namespace,
			r.Name,
			relKindText(r.Kind),
			r.Owner,
			strconv.Itoa(len(r.Attributes)),
			strconv.Itoa(len(r.Constraints)),
		}
	}
	return rows
}

var relationHeader = []string{"RELID", "SCHEMA", "NAME", "KIND", "OWNER", "COLUMNS", "CONSTRAINTS"}

func attributeRows(attrs []catalog.Attribute) [][]string {
	rows := make([][]string, len(attrs))
	for i, a := range attrs {
		rows[i] = []string{
			strconv.Itoa(int(a.Num)),
			a.Name,
			a.TypeFmt,
			strconv.FormatBool(a.NotNull),
			orDash(a.Default),
		}
	}
	return rows
}

var attributeHeader = []string{"NUM", "NAME", "TYPE", "NOTNULL", "DEFAULT"}

func constraintRows(cons []catalog.Constraint) [][]string {
	rows := make([][]string, len(cons))
	for i, c := range cons {
		ref := "-"
		if c.RefRelation != nil {
			ref = *c.RefRelation + "(" + strings.Join(c.ReferencedColumns(), ",") + ")"
		}
		rows[i] = []string{c.Name, conTypeText(c.Type), joinKey(c.Key), ref}
	}
	return rows
}

var constraintHeader = []string{"NAME", "TYPE", "KEY", "REFERENCES"}
