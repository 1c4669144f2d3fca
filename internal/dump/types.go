// Package dump understands the Bangumi Archive jsonlines dump files: the
// closed set of record types, how a raw record maps onto its stats table
// row, and the DDL for those tables.
package dump

// Type identifies one of the archive's record types.
type Type string

const (
	TypeCharacter Type = "character"
	TypePerson    Type = "person"
	TypeSubject   Type = "subject"
)

// TransformFunc turns one decoded record into the positional column values
// for its stats table, in Spec.Columns order. The data date is resolved once
// per run and stamped onto every row.
type TransformFunc func(raw map[string]any, dataDate string) ([]any, error)

// Spec ties a record type to its destination table: column layout, the
// idempotent DDL that creates it, and the transform that produces rows.
type Spec struct {
	Type          Type
	Table         string
	Columns       []string
	UpdateColumns []string
	DDL           []string
	Transform     TransformFunc
}

var specs = map[Type]Spec{
	TypeCharacter: {
		Type:          TypeCharacter,
		Table:         "character_stats",
		Columns:       []string{"id", "comments", "collects", "data_date"},
		UpdateColumns: []string{"comments", "collects"},
		DDL:           countTableDDL("character_stats"),
		Transform:     transformCountRecord,
	},
	TypePerson: {
		Type:          TypePerson,
		Table:         "person_stats",
		Columns:       []string{"id", "comments", "collects", "data_date"},
		UpdateColumns: []string{"comments", "collects"},
		DDL:           countTableDDL("person_stats"),
		Transform:     transformCountRecord,
	},
	TypeSubject: {
		Type:          TypeSubject,
		Table:         "subject_stats",
		Columns:       []string{"id", "score", "score_details", "rank", "favorite", "data_date"},
		UpdateColumns: []string{"score", "score_details", "rank", "favorite"},
		DDL: []string{
			`CREATE TABLE IF NOT EXISTS subject_stats (
				id INTEGER NOT NULL,
				score DECIMAL(3,1),
				score_details JSONB,
				rank INTEGER,
				favorite JSONB,
				data_date DATE NOT NULL,
				PRIMARY KEY (id, data_date)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_subject_stats_score ON subject_stats(score DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_subject_stats_rank ON subject_stats(rank ASC)`,
			`CREATE INDEX IF NOT EXISTS idx_subject_stats_score_details ON subject_stats USING GIN(score_details)`,
			`CREATE INDEX IF NOT EXISTS idx_subject_stats_favorite ON subject_stats USING GIN(favorite)`,
		},
		Transform: transformSubjectRecord,
	},
}

// countTableDDL builds the DDL for the character/person comment+collect
// counter tables, which share a shape.
func countTableDDL(table string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + table + ` (
			id INTEGER NOT NULL,
			comments INTEGER DEFAULT 0,
			collects INTEGER DEFAULT 0,
			data_date DATE NOT NULL,
			PRIMARY KEY (id, data_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + table + `_comments ON ` + table + `(comments DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_` + table + `_collects ON ` + table + `(collects DESC)`,
	}
}

// Types returns the supported record types in processing order.
func Types() []Type {
	return []Type{TypeCharacter, TypePerson, TypeSubject}
}

// ParseType maps a type name to its Type.
func ParseType(name string) (Type, bool) {
	t := Type(name)
	if _, ok := specs[t]; !ok {
		return "", false
	}
	return t, true
}

// SpecFor returns the Spec for a record type.
func SpecFor(t Type) (Spec, bool) {
	s, ok := specs[t]
	return s, ok
}
