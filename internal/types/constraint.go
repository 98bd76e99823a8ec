package types

// Constraint restricts one named native package to a version relation.
// An empty Op means any version.
type Constraint struct {
	Name    string
	Op      ConstraintOp
	Version string
}

// Dependency is one native dependency clause. Any of the alternatives
// satisfies it.
type Dependency struct {
	Type         DependencyType
	Alternatives []Constraint
}
