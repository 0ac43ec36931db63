package catalog

import (
	"slices"
	"strconv"
)

//go:generate go run ../../cmd/regtype-gen -out regtype_gen.go

// RegType returns the regtype spelling of a built-in type OID, as in
// "integer" or "character varying[]". User-defined types are not listed.
func RegType(oid OID) (string, bool) {
	name, ok := regTypes[oid]
	return name, ok
}

// TypeName is RegType with the numeric OID as fallback.
func TypeName(oid OID) string {
	if name, ok := regTypes[oid]; ok {
		return name
	}
	return strconv.FormatUint(uint64(oid), 10)
}

// RegTypeOIDs returns every OID RegType knows, ascending.
func RegTypeOIDs() []OID {
	oids := make([]OID, 0, len(regTypes))
	for oid := range regTypes {
		oids = append(oids, oid)
	}
	slices.Sort(oids)
	return oids
}
