package types

import "time"

// HTTPConfig holds shared HTTP settings used by operations that talk to
// external services.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "datakit/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries is the number of retry attempts for failed requests
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// StorageConfig holds settings for where datasets live inside a project.
type StorageConfig struct {
	// DataDir is the directory under the project root that holds one
	// subdirectory per dataset (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// RegistryConfig holds settings for the external data registry used by
// import and export.
type RegistryConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the registry API root (default "https://zenodo.org").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// SandboxURL is the registry's test deployment, used when export
	// runs with --sandbox (default "https://sandbox.zenodo.org").
	SandboxURL string `json:"sandbox_url" yaml:"sandbox_url"`

	// AccessToken authenticates deposit and publish calls. Read access
	// to published records needs no token.
	AccessToken string `json:"access_token,omitempty" yaml:"access_token,omitempty"`
}

// ProjectConfig groups all settings read from the project's datakit.yaml.
type ProjectConfig struct {
	Storage  StorageConfig  `json:"storage" yaml:"storage"`
	Registry RegistryConfig `json:"registry" yaml:"registry"`
}
