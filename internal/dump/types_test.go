package dump

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	for _, name := range []string{"character", "person", "subject"} {
		tp, ok := ParseType(name)
		require.True(t, ok, name)
		assert.Equal(t, Type(name), tp)
	}

	_, ok := ParseType("episode")
	assert.False(t, ok)
}

func TestSpecs_Consistent(t *testing.T) {
	for _, tp := range Types() {
		spec, ok := SpecFor(tp)
		require.True(t, ok)

		assert.Equal(t, tp, spec.Type)
		assert.Equal(t, "id", spec.Columns[0])
		assert.Equal(t, "data_date", spec.Columns[len(spec.Columns)-1])
		// Update columns are exactly the non-key columns.
		assert.Equal(t, spec.Columns[1:len(spec.Columns)-1], spec.UpdateColumns)
		assert.NotEmpty(t, spec.DDL)
		assert.NotNil(t, spec.Transform)
	}
}

func TestSpecs_TransformMatchesColumns(t *testing.T) {
	for _, tp := range Types() {
		spec, _ := SpecFor(tp)
		row, err := spec.Transform(map[string]any{"id": float64(1)}, "2025-09-02")
		require.NoError(t, err, tp)
		assert.Len(t, row, len(spec.Columns), tp)
	}
}
