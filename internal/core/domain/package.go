package domain

// Requirement is a dependency as declared in a manifest or in the upstream
// index: a target name, the constraint text (parsing is owned by the core)
// and the dependency kind.
type Requirement struct {
	Name       PackageName
	Constraint string
	Kind       EdgeKind
}

// VersionInfo is the index metadata for one published version of a package:
// the version itself and the dependencies it declares.
type VersionInfo struct {
	Version      Version
	Dependencies []Requirement
}
