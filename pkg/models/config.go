package models

type Config struct {
	Snowflake    Snowflake     `yaml:"snowflake"`
	Environments []Environment `yaml:"environments"`
	Sources      []Source      `yaml:"sources"`
	NotebookDirs []string      `yaml:"notebook_dirs"`
}

// Snowflake holds the account-level connection settings shared by all
// environments.
type Snowflake struct {
	Account   string `yaml:"account"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"` // may be an ENC[...] value
	Role      string `yaml:"role"`
	Warehouse string `yaml:"warehouse"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Timeout   string `yaml:"timeout"` // e.g. "30s"
}

// Environment selects the compute/storage context a notebook runs against
// (e.g. "dev", "prod"). Fields left empty fall back to the snowflake block.
type Environment struct {
	Name      string `yaml:"name"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Warehouse string `yaml:"warehouse"`
	Role      string `yaml:"role"`
}

// Source is a git repository holding notebook files.
type Source struct {
	Name   string `yaml:"name"`
	GitURL string `yaml:"git_url"`
	Branch string `yaml:"branch"`
	Path   string `yaml:"path"` // subdirectory of the repository holding notebooks
}

// EnvironmentByName looks up a named environment.
func (c *Config) EnvironmentByName(name string) (Environment, bool) {
	for _, env := range c.Environments {
		if env.Name == name {
			return env, true
		}
	}
	return Environment{}, false
}
