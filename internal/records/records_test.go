package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seclens/edrsearch-mcp/pkg/edr"
)

func TestApplyProjectsFields(t *testing.T) {
	p, err := Compile(".FileName")
	require.NoError(t, err)

	result := p.Apply([]edr.Record{
		{"FileName": "a.exe", "FilePath": `C:\tmp`},
		{"FileName": "b.exe"},
	}, false, 0)

	assert.Equal(t, []any{"a.exe", "b.exe"}, result.Values)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, result.RawCount)
}

func TestApplyDropsNilOutputs(t *testing.T) {
	p, err := Compile(".SHA256HashData")
	require.NoError(t, err)

	result := p.Apply([]edr.Record{
		{"SHA256HashData": "abc"},
		{"FileName": "no-hash.exe"},
	}, false, 0)

	assert.Equal(t, []any{"abc"}, result.Values)
	assert.Empty(t, result.Errors)
}

func TestApplyDeduplicates(t *testing.T) {
	p, err := Compile(".aid")
	require.NoError(t, err)

	recs := []edr.Record{{"aid": "H1"}, {"aid": "H1"}, {"aid": "H2"}}
	result := p.Apply(recs, true, 0)

	assert.Equal(t, []any{"H1", "H2"}, result.Values)
	assert.Equal(t, 3, result.RawCount)
}

func TestApplyHonorsMaxResults(t *testing.T) {
	p, err := Compile(".n")
	require.NoError(t, err)

	recs := []edr.Record{{"n": float64(1)}, {"n": float64(2)}, {"n": float64(3)}}
	result := p.Apply(recs, false, 2)

	assert.Len(t, result.Values, 2)
}

func TestApplyReportsRecordErrors(t *testing.T) {
	p, err := Compile(".fields[]")
	require.NoError(t, err)

	recs := []edr.Record{
		{"fields": nil},
		{"fields": []any{"x"}},
	}
	result := p.Apply(recs, false, 0)

	assert.Equal(t, []any{"x"}, result.Values)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "record[0]")
	assert.Contains(t, result.Errors[0], "may not exist")
}

func TestCompileRejectsBadExpression(t *testing.T) {
	_, err := Compile(".foo[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid jq expression")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(".a | select(. != null)"))
	assert.Error(t, Validate("|"))
}
