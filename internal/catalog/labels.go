package catalog

import (
	"encoding/json"
	"fmt"
)

// RelKind is the single-character pg_class.relkind code.
type RelKind string

const (
	RelKindTable            RelKind = "r"
	RelKindIndex            RelKind = "i"
	RelKindSequence         RelKind = "S"
	RelKindView             RelKind = "v"
	RelKindMaterializedView RelKind = "m"
	RelKindCompositeType    RelKind = "c"
	RelKindToastTable       RelKind = "t"
	RelKindForeignTable     RelKind = "f"
)

// Partitioned tables ("p") and partitioned indexes ("I") are left unmapped
// and render as null.
var relKindLabels = map[RelKind]string{
	RelKindTable:            "ordinary table",
	RelKindIndex:            "index",
	RelKindSequence:         "sequence",
	RelKindView:             "view",
	RelKindMaterializedView: "materialized view",
	RelKindCompositeType:    "composite type",
	RelKindToastTable:       "TOAST table",
	RelKindForeignTable:     "foreign table",
}

// Label returns the human-readable kind, or false for an unmapped code.
func (k RelKind) Label() (string, bool) {
	l, ok := relKindLabels[k]
	return l, ok
}

// MarshalJSON renders the label, or null for an unmapped code.
func (k RelKind) MarshalJSON() ([]byte, error) {
	return marshalLabel(k.Label())
}

// UnmarshalJSON accepts a code, a label or null.
func (k *RelKind) UnmarshalJSON(b []byte) error {
	v, err := unmarshalLabel(b, relKindLabels)
	if err != nil {
		return fmt.Errorf("relkind: %w", err)
	}
	*k = v
	return nil
}

// ConType is the single-character pg_constraint.contype code.
type ConType string

const (
	ConTypeCheck             ConType = "c"
	ConTypeForeignKey        ConType = "f"
	ConTypePrimaryKey        ConType = "p"
	ConTypeUnique            ConType = "u"
	ConTypeConstraintTrigger ConType = "t"
	ConTypeExclusion         ConType = "x"
)

// Not-null constraints ("n", PostgreSQL 18) are left unmapped.
var conTypeLabels = map[ConType]string{
	ConTypeCheck:             "check constraint",
	ConTypeForeignKey:        "foreign key constraint",
	ConTypePrimaryKey:        "primary key constraint",
	ConTypeUnique:            "unique constraint",
	ConTypeConstraintTrigger: "constraint trigger",
	ConTypeExclusion:         "exclusion constraint",
}

// Label returns the human-readable kind, or false for an unmapped code.
func (t ConType) Label() (string, bool) {
	l, ok := conTypeLabels[t]
	return l, ok
}

// MarshalJSON renders the label, or null for an unmapped code.
func (t ConType) MarshalJSON() ([]byte, error) {
	return marshalLabel(t.Label())
}

// UnmarshalJSON accepts a code, a label or null.
func (t *ConType) UnmarshalJSON(b []byte) error {
	v, err := unmarshalLabel(b, conTypeLabels)
	if err != nil {
		return fmt.Errorf("contype: %w", err)
	}
	*t = v
	return nil
}

func marshalLabel(label string, ok bool) ([]byte, error) {
	if !ok {
		return []byte("null"), nil
	}
	return json.Marshal(label)
}

func unmarshalLabel[K ~string](b []byte, labels map[K]string) (K, error) {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return "", err
	}
	if s == nil {
		return "", nil
	}
	if _, ok := labels[K(*s)]; ok {
		return K(*s), nil
	}
	for code, label := range labels {
		if label == *s {
			return code, nil
		}
	}
	// Unmapped codes survive a round trip as themselves.
	return K(*s), nil
}
