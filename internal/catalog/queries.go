package catalog

// ExcludedNamespaces are the schemas Relations never lists.
var ExcludedNamespaces = []string{
	"pg_toast",
	"pg_temp_1",
	"pg_toast_temp_1",
	"pg_catalog",
	"information_schema",
}

const databasesQuery = `
	SELECT
		d.oid,
		d.datname::text,
		pg_catalog.pg_get_userbyid(d.datdba)::text   AS owner,
		pg_catalog.pg_encoding_to_char(d.encoding)::text AS encoding,
		d.datcollate::text,
		d.datctype::text,
		d.datistemplate,
		d.datallowconn,
		d.datconnlimit
	FROM pg_catalog.pg_database d
	ORDER BY d.datname`

// attributeColumns selects the live, user-visible columns of every relation.
// adsrc was removed from pg_attrdef in PostgreSQL 12; the default is
// deparsed from adbin instead.
const attributeColumns = `
	SELECT
		a.attrelid,
		a.attname::text                                        AS attname,
		a.attnum,
		a.atttypid,
		a.atttypmod,
		a.attnotnull,
		pg_catalog.pg_get_expr(d.adbin, d.adrelid)             AS adsrc,
		pg_catalog.format_type(a.atttypid, a.atttypmod)        AS atttypfmt
	FROM pg_catalog.pg_attribute a
	LEFT JOIN pg_catalog.pg_attrdef d
		ON d.adrelid = a.attrelid AND d.adnum = a.attnum
	WHERE a.attnum > 0 AND NOT a.attisdropped`

const attributesQuery = attributeColumns + `
		AND a.attrelid = $1
	ORDER BY a.attnum`

// constraintColumns resolves foreign key column numbers to names in
// confkey order. confrelname stays null for non-foreign-key constraints.
const constraintColumns = `
	SELECT
		c.oid                                                   AS conoid,
		c.conrelid,
		c.conname::text                                         AS conname,
		c.contype::text                                         AS contype,
		c.conkey,
		CASE WHEN c.confrelid <> 0 THEN c.confrelid::regclass::text END AS confrelname,
		string_agg(f.attname::text, ',' ORDER BY array_position(c.confkey, f.attnum)) AS fkeyattnames,
		array_agg(f.attname::text ORDER BY array_position(c.confkey, f.attnum))
			FILTER (WHERE f.attname IS NOT NULL)                AS fkeyatts
	FROM pg_catalog.pg_constraint c
	LEFT JOIN pg_catalog.pg_attribute f
		ON f.attrelid = c.confrelid AND f.attnum = ANY (c.confkey)`

const constraintGrouping = `
	GROUP BY c.oid, c.conrelid, c.conname, c.contype, c.conkey, c.confrelid`

const constraintsQuery = `
	SELECT conrelid, conname, contype, conkey, confrelname, fkeyattnames, fkeyatts
	FROM (` + constraintColumns + `
		WHERE c.conrelid = $1` + constraintGrouping + `
	) con
	ORDER BY conoid`

// relationsSelect aggregates attributes and constraints per relation into
// jsonb arrays. Relations with none get empty arrays rather than null.
const relationsSelect = `
	WITH attributes AS (` + attributeColumns + `
	), attributes_agg AS (
		SELECT attrelid, jsonb_agg(attributes.* ORDER BY attnum) AS attributes
		FROM attributes
		GROUP BY attrelid
	), constraints AS (` + constraintColumns + constraintGrouping + `
	), constraints_agg AS (
		SELECT conrelid, jsonb_agg(to_jsonb(constraints.*) - 'conoid' ORDER BY conoid) AS constraints
		FROM constraints
		GROUP BY conrelid
	)
	SELECT
		c.oid                                           AS relid,
		c.relname::text                                 AS relname,
		n.nspname::text                                 AS relnamespace,
		pg_catalog.pg_get_userbyid(c.relowner)::text    AS relowner,
		c.relkind::text                                 AS relkind,
		COALESCE(a.attributes, '[]'::jsonb)             AS attributes,
		COALESCE(k.constraints, '[]'::jsonb)            AS constraints
	FROM pg_catalog.pg_class c
	JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
	LEFT JOIN attributes_agg a ON a.attrelid = c.oid
	LEFT JOIN constraints_agg k ON k.conrelid = c.oid`

const relationsQuery = relationsSelect + `
	WHERE n.nspname::text <> ALL ($1::text[])
	ORDER BY c.oid`

// relationQuery reads the pg_class row alone. Describe fetches attributes
// and constraints with their own point queries in parallel.
const relationQuery = `
	SELECT
		c.oid                                           AS relid,
		c.relname::text                                 AS relname,
		n.nspname::text                                 AS relnamespace,
		pg_catalog.pg_get_userbyid(c.relowner)::text    AS relowner,
		c.relkind::text                                 AS relkind,
		'[]'::jsonb                                     AS attributes,
		'[]'::jsonb                                     AS constraints
	FROM pg_catalog.pg_class c
	JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
	WHERE c.oid = $1`

const currentDatabaseQuery = `SELECT current_database()::text`
