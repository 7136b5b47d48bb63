package model

// Environment is a named set of variables used to resolve {{name}} placeholders
type Environment struct {
	ID        string            `json:"id" yaml:"id"`
	Name      string            `json:"name" yaml:"name"`
	Variables map[string]string `json:"variables" yaml:"variables"`
}

// Environments represents all environments storage. Active points at the
// environment currently used for substitution.
type Environments struct {
	Active       string                  `json:"active"`
	Environments map[string]*Environment `json:"environments"`
}
