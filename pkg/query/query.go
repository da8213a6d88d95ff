// Package query builds event-search query expressions.
//
// A Builder collects field conditions, an optional host scope, and pipeline
// steps (in/rename/case/select), and produces an immutable Expression.
// Rendering to the backend dialect is delegated to a Renderer so the grammar
// stays swappable; see render.go for the default dialect.
package query

import "errors"

// ErrConflictingScope is returned by Build when SetHostScope was called twice
// with different scopes.
var ErrConflictingScope = errors.New("conflicting host scope")

// ErrEmptyTemplate signals that a template requires at least one condition and
// none was supplied. The generic Builder never returns it; template-level
// guards in the investigate package do.
var ErrEmptyTemplate = errors.New("template requires at least one condition")

// Mode joins the top-level conditions of a Builder.
type Mode string

const (
	And Mode = "AND"
	Or  Mode = "OR"
)

// Op identifies a leaf condition operator.
type Op int

const (
	// OpEquals matches the field exactly: field="value".
	OpEquals Op = iota
	// OpContains matches the value anywhere in the field: field="*value*".
	OpContains
	// OpEndsWith matches a value suffix: field="*value".
	OpEndsWith
	// OpRegex matches the field against a regular expression: field=/pattern/.
	OpRegex
	// OpHasField matches any event carrying the field: field=/.+/.
	OpHasField
	// OpFreeword matches the value anywhere in the event: "value".
	OpFreeword
	// OpRaw injects a caller-supplied fragment verbatim.
	OpRaw
)

// Term is one node of the condition tree: either a leaf Cond or a nested Group.
type Term interface {
	isTerm()
}

// Cond is a leaf field condition. Exclude flips the comparison operator
// (field!="value", field!=/pattern/).
type Cond struct {
	Field   string
	Op      Op
	Value   string
	Exclude bool
}

func (Cond) isTerm() {}

// Group is a parenthesised subexpression with its own join mode.
type Group struct {
	Mode  Mode
	Terms []Term
}

func (Group) isTerm() {}

// scopeKind discriminates the three host-scope variants.
type scopeKind int

const (
	scopeUnrestricted scopeKind = iota
	scopeIncluded
	scopeExcluded
)

// HostScope restricts a query to, or away from, one host's events.
// The zero value is Unrestricted.
type HostScope struct {
	kind scopeKind
	aid  string
}

// Unrestricted matches events from every host.
func Unrestricted() HostScope { return HostScope{} }

// IncludeHost matches only events from the given host.
func IncludeHost(aid string) HostScope {
	return HostScope{kind: scopeIncluded, aid: aid}
}

// ExcludeHost matches events from every host except the given one.
func ExcludeHost(aid string) HostScope {
	return HostScope{kind: scopeExcluded, aid: aid}
}

// Restricted reports whether the scope names a host at all.
func (s HostScope) Restricted() bool { return s.kind != scopeUnrestricted }

// Excluded reports whether the named host is excluded rather than included.
func (s HostScope) Excluded() bool { return s.kind == scopeExcluded }

// Host returns the host identity the scope names, or "" when unrestricted.
func (s HostScope) Host() string { return s.aid }

// step is one pipeline function appended after the condition part.
type step interface {
	isStep()
}

type inStep struct {
	field   string
	values  []string
	exclude bool
}

type renameStep struct {
	newName, oldName string
}

type selectStep struct {
	fields []string
}

type caseStep struct {
	cases []*Case
}

func (inStep) isStep()     {}
func (renameStep) isStep() {}
func (selectStep) isStep() {}
func (caseStep) isStep()   {}

// Case is one branch of a case statement: a condition plus an ordered list
// of rename/set actions applied when the condition matches.
type Case struct {
	when    *Builder
	actions []caseAction
}

type caseAction struct {
	kind             string // "rename" or "set"
	field, value     string
	newName, oldName string
}

// When sets the branch condition.
func When(b *Builder) *Case {
	return &Case{when: b}
}

// ThenRename records a field rename action for the branch.
func (c *Case) ThenRename(newName, oldName string) *Case {
	c.actions = append(c.actions, caseAction{kind: "rename", newName: newName, oldName: oldName})
	return c
}

// ThenSet records a field assignment action for the branch.
func (c *Case) ThenSet(field, value string) *Case {
	c.actions = append(c.actions, caseAction{kind: "set", field: field, value: value})
	return c
}

// Builder accumulates conditions and pipeline steps for one query.
// Builders are single-use: each template call constructs a fresh one.
// Methods chain; scope conflicts surface from Build.
type Builder struct {
	mode     Mode
	terms    []Term
	steps    []step
	scope    HostScope
	scopeSet bool
	scopeErr error
}

// New returns a Builder joining its conditions with AND.
func New() *Builder { return &Builder{mode: And} }

// NewWithMode returns a Builder joining its conditions with the given mode.
func NewWithMode(m Mode) *Builder { return &Builder{mode: m} }

// Mode overrides the join mode for the conditions added so far and after.
func (b *Builder) Mode(m Mode) *Builder {
	b.mode = m
	return b
}

// Where appends an exact-match condition.
func (b *Builder) Where(field, value string) *Builder {
	return b.cond(Cond{Field: field, Op: OpEquals, Value: value})
}

// WhereNot appends a negated exact-match condition.
func (b *Builder) WhereNot(field, value string) *Builder {
	return b.cond(Cond{Field: field, Op: OpEquals, Value: value, Exclude: true})
}

// Contains appends a wildcard substring condition.
func (b *Builder) Contains(field, value string) *Builder {
	return b.cond(Cond{Field: field, Op: OpContains, Value: value})
}

// NotContains appends a negated wildcard substring condition.
func (b *Builder) NotContains(field, value string) *Builder {
	return b.cond(Cond{Field: field, Op: OpContains, Value: value, Exclude: true})
}

// EndsWith appends a wildcard suffix condition.
func (b *Builder) EndsWith(field, value string) *Builder {
	return b.cond(Cond{Field: field, Op: OpEndsWith, Value: value})
}

// Regex appends a regular-expression condition.
func (b *Builder) Regex(field, pattern string) *Builder {
	return b.cond(Cond{Field: field, Op: OpRegex, Value: pattern})
}

// NotRegex appends a negated regular-expression condition.
func (b *Builder) NotRegex(field, pattern string) *Builder {
	return b.cond(Cond{Field: field, Op: OpRegex, Value: pattern, Exclude: true})
}

// Has appends a field-presence condition.
func (b *Builder) Has(field string) *Builder {
	return b.cond(Cond{Field: field, Op: OpHasField})
}

// Freeword appends a free-text condition matched anywhere in the event.
func (b *Builder) Freeword(value string) *Builder {
	return b.cond(Cond{Op: OpFreeword, Value: value})
}

// Raw appends a verbatim condition fragment. Empty fragments are dropped.
func (b *Builder) Raw(fragment string) *Builder {
	if fragment == "" {
		return b
	}
	return b.cond(Cond{Op: OpRaw, Value: fragment})
}

// Subquery appends the other builder's condition tree as a parenthesised
// group. Only conditions carry over; pipeline steps and scope do not.
func (b *Builder) Subquery(sub *Builder) *Builder {
	if sub == nil || len(sub.terms) == 0 {
		return b
	}
	b.terms = append(b.terms, Group{Mode: sub.mode, Terms: sub.terms})
	return b
}

// In appends an in(field, values=[...]) pipeline function.
func (b *Builder) In(field string, values []string, exclude bool) *Builder {
	b.steps = append(b.steps, inStep{field: field, values: values, exclude: exclude})
	return b
}

// Rename appends a newName := rename(oldName) pipeline function.
func (b *Builder) Rename(newName, oldName string) *Builder {
	b.steps = append(b.steps, renameStep{newName: newName, oldName: oldName})
	return b
}

// Select restricts the output to the given fields.
func (b *Builder) Select(fields ...string) *Builder {
	b.steps = append(b.steps, selectStep{fields: fields})
	return b
}

// Case appends a case statement with the given branches. Branches without a
// condition or without actions are dropped.
func (b *Builder) Case(cases ...*Case) *Builder {
	kept := make([]*Case, 0, len(cases))
	for _, c := range cases {
		if c == nil || c.when == nil || len(c.when.terms) == 0 || len(c.actions) == 0 {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) > 0 {
		b.steps = append(b.steps, caseStep{cases: kept})
	}
	return b
}

// SetHostScope sets the query's host scope. Calling it again with a different
// scope marks the builder broken; Build reports ErrConflictingScope.
// Repeating the same scope is a no-op.
func (b *Builder) SetHostScope(s HostScope) *Builder {
	if b.scopeSet && b.scope != s {
		b.scopeErr = ErrConflictingScope
		return b
	}
	b.scope = s
	b.scopeSet = true
	return b
}

func (b *Builder) cond(c Cond) *Builder {
	b.terms = append(b.terms, c)
	return b
}

// Empty reports whether no condition has been added. The host scope and
// pipeline steps do not count.
func (b *Builder) Empty() bool { return len(b.terms) == 0 }

// Build freezes the builder into an Expression. An empty builder with an
// unrestricted scope builds a match-all expression.
func (b *Builder) Build() (*Expression, error) {
	if b.scopeErr != nil {
		return nil, b.scopeErr
	}
	return &Expression{
		mode:  b.mode,
		terms: b.terms,
		steps: b.steps,
		scope: b.scope,
	}, nil
}

// Expression is an immutable, renderable query.
type Expression struct {
	mode  Mode
	terms []Term
	steps []step
	scope HostScope
}

// Scope returns the expression's host scope.
func (e *Expression) Scope() HostScope { return e.scope }

// Render serializes the expression with the given renderer.
func (e *Expression) Render(r Renderer) string { return r.Render(e) }

// String renders with the default dialect.
func (e *Expression) String() string { return e.Render(Dialect{}) }
