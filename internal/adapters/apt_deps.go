package adapters

import (
	"strings"

	"capresolve/internal/resource"
	"capresolve/internal/types"
)

// parseAptDependency parses a pipe separated dependency group (e.g.
// "libfoo | libbar (>= 2)") into one dependency with its alternatives.
func parseAptDependency(group string) types.Dependency {
	dep := types.Dependency{Type: types.DependencyTypeApt}
	for _, part := range strings.Split(group, "|") {
		if c, ok := parseAptDepSpec(part); ok {
			dep.Alternatives = append(dep.Alternatives, c)
		}
	}
	return dep
}

// parseAptDepSpec parses a single APT dependency token such as
// "libfoo (>= 1.2) [amd64]". Architecture qualifiers and arch filters are
// stripped; an unknown relation leaves the constraint unversioned.
func parseAptDepSpec(value string) (types.Constraint, bool) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return types.Constraint{}, false
	}
	if idx := strings.Index(raw, " ["); idx >= 0 {
		raw = strings.TrimSpace(raw[:idx])
	}
	name := raw
	constraintPart := ""
	if before, after, ok := strings.Cut(raw, "("); ok {
		name = strings.TrimSpace(before)
		constraintPart = strings.TrimSpace(after)
		if before, ok := strings.CutSuffix(constraintPart, ")"); ok {
			constraintPart = before
		}
	}
	name = normalizeAptDepName(name)
	if name == "" {
		return types.Constraint{}, false
	}
	fields := strings.Fields(constraintPart)
	if len(fields) < 2 {
		return types.Constraint{Name: name}, true
	}
	op, ok := aptConstraintOp(fields[0])
	if !ok {
		return types.Constraint{Name: name}, true
	}
	return types.Constraint{Name: name, Op: op, Version: fields[1]}, true
}

// normalizeAptDepName strips architecture suffixes (":amd64") and
// whitespace from a raw APT package name.
func normalizeAptDepName(value string) string {
	name := strings.TrimSpace(value)
	if idx := strings.Index(name, ":"); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}
	return name
}

func aptConstraintOp(token string) (types.ConstraintOp, bool) {
	switch token {
	case ">=":
		return types.ConstraintOpGte, true
	case "<=":
		return types.ConstraintOpLte, true
	case "=":
		return types.ConstraintOpEq, true
	case "<<":
		return types.ConstraintOpLt, true
	case ">>":
		return types.ConstraintOpGt, true
	default:
		return "", false
	}
}

// dependencyFilter renders dep as a filter over the package namespace of
// its type. Versions are converted with conv.
func dependencyFilter(dep types.Dependency, conv *versionConverter) (string, error) {
	ns := dep.Type.Namespace()
	clauses := make([]string, 0, len(dep.Alternatives))
	for _, alt := range dep.Alternatives {
		clause, err := constraintFilter(ns, alt, conv)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	if len(clauses) == 1 {
		return clauses[0], nil
	}
	return "(|" + strings.Join(clauses, "") + ")", nil
}

func constraintFilter(ns string, c types.Constraint, conv *versionConverter) (string, error) {
	name := "(" + ns + "=" + resource.EscapeFilterValue(c.Name) + ")"
	if c.Op == types.ConstraintOpNone {
		return name, nil
	}
	v, err := conv.convert(c.Version)
	if err != nil {
		return "", err
	}
	ver := v.String()
	var relation string
	switch c.Op {
	case types.ConstraintOpEq:
		relation = "(version=" + ver + ")"
	case types.ConstraintOpGte:
		relation = "(version>=" + ver + ")"
	case types.ConstraintOpLte:
		relation = "(version<=" + ver + ")"
	case types.ConstraintOpGt:
		relation = "(!(version<=" + ver + "))"
	case types.ConstraintOpLt:
		relation = "(!(version>=" + ver + "))"
	}
	return "(&" + name + relation + ")", nil
}
