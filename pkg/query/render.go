package query

import "strings"

// HostField is the event field carrying the host (agent) identity.
const HostField = "aid"

// Renderer serializes an Expression into a backend query string.
// Implementations must be deterministic: the same expression always renders
// to the same string.
type Renderer interface {
	Render(e *Expression) string
}

// Dialect renders the pipeline query grammar the event-search backend accepts:
// field comparisons joined by AND/OR, then pipe-separated functions
// (in, rename, case, select). The host-scope clause always renders last and an
// excluded host renders as an explicit negated comparison, never by omission.
type Dialect struct{}

// Render implements Renderer.
func (d Dialect) Render(e *Expression) string {
	var parts []string

	if head := d.renderHead(e); head != "" {
		parts = append(parts, head)
	}

	for _, s := range e.steps {
		if rendered := d.renderStep(s); rendered != "" {
			parts = append(parts, rendered)
		}
	}

	return strings.Join(parts, " | ")
}

// renderHead renders the condition part plus the trailing host-scope clause.
func (d Dialect) renderHead(e *Expression) string {
	conds := d.renderTerms(e.terms, e.mode)

	if !e.scope.Restricted() {
		if conds == "" {
			// match-all
			return "*"
		}
		return conds
	}

	scopeCond := Cond{Field: HostField, Op: OpEquals, Value: e.scope.Host(), Exclude: e.scope.Excluded()}
	clause := d.renderCond(scopeCond)

	if conds == "" {
		return clause
	}
	if e.mode == Or && len(e.terms) > 1 {
		// The scope must bound the whole disjunction.
		conds = "(" + conds + ")"
	}
	return conds + " AND " + clause
}

func (d Dialect) renderTerms(terms []Term, mode Mode) string {
	rendered := make([]string, 0, len(terms))
	for _, t := range terms {
		switch v := t.(type) {
		case Cond:
			rendered = append(rendered, d.renderCond(v))
		case Group:
			rendered = append(rendered, "("+d.renderTerms(v.Terms, v.Mode)+")")
		}
	}
	return strings.Join(rendered, " "+string(mode)+" ")
}

func (d Dialect) renderCond(c Cond) string {
	op := "="
	if c.Exclude {
		op = "!="
	}
	switch c.Op {
	case OpEquals:
		return c.Field + op + quote(c.Value)
	case OpContains:
		return c.Field + op + quote("*"+c.Value+"*")
	case OpEndsWith:
		return c.Field + op + quote("*"+c.Value)
	case OpRegex:
		return c.Field + op + "/" + c.Value + "/"
	case OpHasField:
		return c.Field + "=/.+/"
	case OpFreeword:
		return quote(c.Value)
	case OpRaw:
		return c.Value
	}
	return ""
}

func (d Dialect) renderStep(s step) string {
	switch v := s.(type) {
	case inStep:
		fn := "in"
		if v.exclude {
			fn = "!in"
		}
		quoted := make([]string, len(v.values))
		for i, val := range v.values {
			quoted[i] = quote(val)
		}
		return fn + "(" + v.field + ", values=[" + strings.Join(quoted, ", ") + "])"
	case renameStep:
		return v.newName + " := rename(" + v.oldName + ")"
	case selectStep:
		return "select([" + strings.Join(v.fields, ", ") + "])"
	case caseStep:
		branches := make([]string, 0, len(v.cases))
		for _, c := range v.cases {
			branches = append(branches, d.renderBranch(c))
		}
		return "case {\n  " + strings.Join(branches, "\n  ") + "\n}"
	}
	return ""
}

func (d Dialect) renderBranch(c *Case) string {
	cond := d.renderTerms(c.when.terms, c.when.mode)
	actions := make([]string, len(c.actions))
	for i, a := range c.actions {
		switch a.kind {
		case "rename":
			actions[i] = a.newName + " := rename(" + a.oldName + ")"
		case "set":
			actions[i] = a.field + " := " + quote(a.value)
		}
	}
	return cond + " | " + strings.Join(actions, " | ") + ";"
}

func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
}
