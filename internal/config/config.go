package config

// Config represents the full application configuration.
type Config struct {
	Platform      PlatformConfig      `yaml:"platform"`
	HTTP          HTTPConfig          `yaml:"http"`
	Workflow      WorkflowConfig      `yaml:"workflow"`
	MainPR        MainPRConfig        `yaml:"mainPR"`
	Poll          PollConfig          `yaml:"poll"`
	Scenarios     ScenariosConfig     `yaml:"scenarios"`
	Comments      CommentsConfig      `yaml:"comments"`
	Git           GitConfig           `yaml:"git"`
	Store         StoreConfig         `yaml:"store"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PlatformConfig identifies the repository under verification and the
// credentials used to reach it.
type PlatformConfig struct {
	Owner   string `yaml:"owner"`
	Repo    string `yaml:"repo"`
	Token   string `yaml:"token"`
	PerPage int    `yaml:"perPage"`
}

// HTTPConfig holds global HTTP client settings.
type HTTPConfig struct {
	Timeout           string  `yaml:"timeout"`
	MaxRetries        int     `yaml:"maxRetries"`
	InitialBackoff    string  `yaml:"initialBackoff"`
	MaxBackoff        string  `yaml:"maxBackoff"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
}

// WorkflowConfig describes the workflow definition the verifier expects.
type WorkflowConfig struct {
	FilePath          string   `yaml:"filePath"`
	FileName          string   `yaml:"fileName"`
	RequiredTriggers  []string `yaml:"requiredTriggers"`
	RequiredJobs      []string `yaml:"requiredJobs"`
	ParallelThreshold string   `yaml:"parallelThreshold"`
}

// MainPRConfig identifies the pull request that introduced the workflow.
type MainPRConfig struct {
	Title        string `yaml:"title"`
	SourceBranch string `yaml:"sourceBranch"`
	TargetBranch string `yaml:"targetBranch"`
}

// PollConfig tunes the workflow completion poller.
type PollConfig struct {
	MaxWait        string `yaml:"maxWait"`        // budget for the main workflow
	Interval       string `yaml:"interval"`       // delay between polls
	Grace          string `yaml:"grace"`          // short wait after the first empty poll
	FetchCount     int    `yaml:"fetchCount"`     // runs requested per poll
	InspectCount   int    `yaml:"inspectCount"`   // newest runs actually examined
	EmptyPollLimit int    `yaml:"emptyPollLimit"` // consecutive empty polls before giving up
}

// ScenarioConfig is one intentionally broken change to push through the
// workflow.
type ScenarioConfig struct {
	Title           string `yaml:"title"`
	Branch          string `yaml:"branch"`
	FilePath        string `yaml:"filePath"`
	Content         string `yaml:"content"`
	ExpectedFailure string `yaml:"expectedFailure"`
}

// ScenariosConfig holds the failure scenarios and their lifecycle settings.
type ScenariosConfig struct {
	Cases          []ScenarioConfig `yaml:"cases"`
	MaxWait        string           `yaml:"maxWait"`
	CleanupEnabled bool             `yaml:"cleanupEnabled"`
}

// ReportConfig names one automation report the bot must post.
type ReportConfig struct {
	Name         string   `yaml:"name"`
	MainKeywords []string `yaml:"mainKeywords"`
	SubKeywords  []string `yaml:"subKeywords"`
}

// CommentsConfig configures the automation comment checks.
type CommentsConfig struct {
	BotLogin        string         `yaml:"botLogin"`
	RequiredReports []ReportConfig `yaml:"requiredReports"`
}

// GitConfig points at an optional local clone used for offline checks.
type GitConfig struct {
	RepositoryDir string `yaml:"repositoryDir"`
}

// StoreConfig configures the persistence layer.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ObservabilityConfig configures logging.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures request/response logging.
type LoggingConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Level        string `yaml:"level"`  // debug, info, error
	Format       string `yaml:"format"` // json, human
	RedactTokens bool   `yaml:"redactTokens"`
}
