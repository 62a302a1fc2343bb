package manifest

// Manifest represents the structure of the depot.yaml manifest file.
type Manifest struct {
	Name            string            `yaml:"name"`
	Version         string            `yaml:"version"`
	Dependencies    map[string]string `yaml:"dependencies"`
	DevDependencies map[string]string `yaml:"dev_dependencies"`
	Workspace       *WorkspaceDTO     `yaml:"workspace"`
}

// WorkspaceDTO declares workspace membership in the root manifest.
type WorkspaceDTO struct {
	// Members are glob patterns over member directories relative to the
	// root. Empty means every discovered manifest is a member.
	Members []string `yaml:"members"`
	// Exclude are directory name patterns skipped during discovery.
	Exclude []string `yaml:"exclude"`
}
