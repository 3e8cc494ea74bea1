package config

// Config represents the root configuration structure for git-check-rebase
type Config struct {
	Meta    MetaConfig    `mapstructure:"meta" yaml:"meta"`
	Git     GitConfig     `mapstructure:"git" yaml:"git"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Tracker TrackerConfig `mapstructure:"tracker" yaml:"tracker"`
	Review  ReviewConfig  `mapstructure:"review" yaml:"review"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
}

// MetaConfig locates the review-decision file
type MetaConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// GitConfig selects how the repository is queried
type GitConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"` // "exec" or "gogit"
	DefaultBase string `mapstructure:"default_base" yaml:"default_base"`
}

// CacheConfig contains equality cache settings. Empty paths mean "inside
// the git common directory".
type CacheConfig struct {
	Backend      string `mapstructure:"backend" yaml:"backend"` // "file" or "sqlite"
	Path         string `mapstructure:"path" yaml:"path"`
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level" yaml:"level"`
	FilePath string `mapstructure:"file_path" yaml:"file_path"`
	Console  bool   `mapstructure:"console" yaml:"console"`
}

// TrackerConfig configures the issue tracker used for porting issues
type TrackerConfig struct {
	Kind   string `mapstructure:"kind" yaml:"kind"`
	Server string `mapstructure:"server" yaml:"server"`
	User   string `mapstructure:"user" yaml:"user"`
	Token  string `mapstructure:"token" yaml:"-"`
}

// ReviewConfig contains interactive review settings
type ReviewConfig struct {
	Editor string `mapstructure:"editor" yaml:"editor"`
}

// OutputConfig controls table rendering
type OutputConfig struct {
	Format    string `mapstructure:"format" yaml:"format"` // "auto", "colored", "plain" or "html"
	CommitURL string `mapstructure:"commit_url" yaml:"commit_url"`
}
