package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, b *Builder) string {
	t.Helper()
	expr, err := b.Build()
	require.NoError(t, err)
	return expr.String()
}

func TestBuild_emptyUnrestrictedIsMatchAll(t *testing.T) {
	got := build(t, New())
	assert.Equal(t, "*", got)
}

func TestBuild_emptyWithIncludedScope(t *testing.T) {
	got := build(t, New().SetHostScope(IncludeHost("H1")))
	assert.Equal(t, `aid="H1"`, got)
}

func TestBuild_excludedScopeRendersExplicitNegation(t *testing.T) {
	got := build(t, New().Where("FileName", "malware.exe").SetHostScope(ExcludeHost("H1")))
	assert.Contains(t, got, `aid!="H1"`)
	assert.Equal(t, `FileName="malware.exe" AND aid!="H1"`, got)
}

func TestBuild_includedAndExcludedAreStructuralComplements(t *testing.T) {
	included := build(t, New().Where("FileName", "a.exe").SetHostScope(IncludeHost("H9")))
	excluded := build(t, New().Where("FileName", "a.exe").SetHostScope(ExcludeHost("H9")))

	assert.Contains(t, included, `aid="H9"`)
	assert.Contains(t, excluded, `aid!="H9"`)
	// Negation must never degrade to clause omission.
	assert.NotEqual(t, `FileName="a.exe"`, excluded)
}

func TestBuild_hostScopeRendersLast(t *testing.T) {
	got := build(t, New().
		Where("FileName", "a.exe").
		Has("SHA256HashData").
		SetHostScope(IncludeHost("H1")))
	assert.Equal(t, `FileName="a.exe" AND SHA256HashData=/.+/ AND aid="H1"`, got)
}

func TestBuild_orConditionsParenthesizedUnderScope(t *testing.T) {
	got := build(t, NewWithMode(Or).
		Where("ContextProcessId", "42").
		Where("TargetProcessId", "42").
		SetHostScope(IncludeHost("H1")))
	assert.Equal(t, `(ContextProcessId="42" OR TargetProcessId="42") AND aid="H1"`, got)
}

func TestSetHostScope_conflictingScopesFailBuild(t *testing.T) {
	b := New().SetHostScope(IncludeHost("H1")).SetHostScope(ExcludeHost("H1"))
	_, err := b.Build()
	assert.ErrorIs(t, err, ErrConflictingScope)
}

func TestSetHostScope_repeatingSameScopeIsFine(t *testing.T) {
	b := New().SetHostScope(IncludeHost("H1")).SetHostScope(IncludeHost("H1"))
	_, err := b.Build()
	assert.NoError(t, err)
}

func TestBuild_conditionOperators(t *testing.T) {
	tests := []struct {
		name string
		b    *Builder
		want string
	}{
		{"equals", New().Where("aid", "12345"), `aid="12345"`},
		{"not equals", New().WhereNot("status", "active"), `status!="active"`},
		{"contains", New().Contains("FileName", "malware"), `FileName="*malware*"`},
		{"not contains", New().NotContains("FileName", "malware"), `FileName!="*malware*"`},
		{"ends with", New().EndsWith("FileName", ".exe"), `FileName="*.exe"`},
		{"regex", New().Regex("CommandLine", "powershell.*-enc"), `CommandLine=/powershell.*-enc/`},
		{"not regex", New().NotRegex("CommandLine", "cmd.*"), `CommandLine!=/cmd.*/`},
		{"has field", New().Has("ScriptContent"), `ScriptContent=/.+/`},
		{"freeword", New().Freeword("malware"), `"malware"`},
		{"raw", New().Raw("ProcessId>1000"), `ProcessId>1000`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, build(t, tt.b))
		})
	}
}

func TestBuild_subqueryParenthesized(t *testing.T) {
	sub := NewWithMode(Or).
		Where("FileName", "a.exe").
		Contains("CommandLine", "a.exe")
	got := build(t, New().Contains("#event_simpleName", "ProcessRollup2").Subquery(sub))
	assert.Equal(t, `#event_simpleName="*ProcessRollup2*" AND (FileName="a.exe" OR CommandLine="*a.exe*")`, got)
}

func TestBuild_emptySubqueryDropped(t *testing.T) {
	got := build(t, New().Where("aid", "1").Subquery(New()))
	assert.Equal(t, `aid="1"`, got)
}

func TestBuild_pipelineStepsRenderInOrder(t *testing.T) {
	got := build(t, New().
		Where("aid", "12345").
		In("event_simpleName", []string{"NetworkCloseIP4", "ImageHash"}, false).
		Rename("ProcessId", "ContextProcessId").
		Select("aid", "FileName", "ProcessId"))
	assert.Equal(t,
		`aid="12345" | in(event_simpleName, values=["NetworkCloseIP4", "ImageHash"]) | ProcessId := rename(ContextProcessId) | select([aid, FileName, ProcessId])`,
		got)
}

func TestBuild_notInRendersNegatedFunction(t *testing.T) {
	got := build(t, New().Where("aid", "1").In("event_simpleName", []string{"UserIdentity"}, true))
	assert.Equal(t, `aid="1" | !in(event_simpleName, values=["UserIdentity"])`, got)
}

func TestBuild_caseStatement(t *testing.T) {
	c1 := When(New().Contains("#event_simpleName", "ProcessRollup2")).
		ThenRename("ProcessId", "TargetProcessId")
	c2 := When(New().Where("#event_simpleName", "*")).
		ThenRename("ProcessId", "ContextProcessId").
		ThenSet("Priority", "high")

	got := build(t, New().Where("aid", "1").Case(c1, c2))
	assert.Equal(t,
		"aid=\"1\" | case {\n"+
			"  #event_simpleName=\"*ProcessRollup2*\" | ProcessId := rename(TargetProcessId);\n"+
			"  #event_simpleName=\"*\" | ProcessId := rename(ContextProcessId) | Priority := \"high\";\n"+
			"}",
		got)
}

func TestCase_incompleteBranchesDropped(t *testing.T) {
	noActions := When(New().Where("a", "1"))
	noCondition := When(New()).ThenSet("x", "y")
	got := build(t, New().Where("aid", "1").Case(noActions, noCondition, nil))
	assert.Equal(t, `aid="1"`, got)
}

func TestBuild_determinism(t *testing.T) {
	mk := func() *Builder {
		return New().
			Where("FileName", "a.exe").
			Has("SHA256HashData").
			SetHostScope(ExcludeHost("H1")).
			Select("timestamp", "aid")
	}
	assert.Equal(t, build(t, mk()), build(t, mk()))
}

func TestQuote_escapesEmbeddedQuotes(t *testing.T) {
	got := build(t, New().Where("CommandLine", `say "hi"`))
	assert.Equal(t, `CommandLine="say \"hi\""`, got)
}

func TestHostScope_accessors(t *testing.T) {
	assert.False(t, Unrestricted().Restricted())
	assert.True(t, IncludeHost("h").Restricted())
	assert.False(t, IncludeHost("h").Excluded())
	assert.True(t, ExcludeHost("h").Excluded())
	assert.Equal(t, "h", ExcludeHost("h").Host())
}
