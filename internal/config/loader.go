package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoaderOptions describes how configuration should be discovered.
type LoaderOptions struct {
	ConfigPaths []string
	FileName    string
	EnvPrefix   string
}

// Load returns the merged configuration from files and environment variables.
func Load(opts LoaderOptions) (Config, error) {
	v := viper.New()

	name := opts.FileName
	if name == "" {
		name = "wfv"
	}

	configFile := locateConfigFile(name, opts.ConfigPaths)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "WFV"
	}
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)

	setDefaults(v)

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// Expand environment variables in config values
	cfg = expandEnvVars(cfg)

	return cfg, nil
}

// Validate checks the settings a verification run cannot proceed without.
func (c Config) Validate() error {
	if c.Platform.Token == "" {
		return fmt.Errorf("platform token not set (export WFV_PLATFORM_TOKEN or GITHUB_TOKEN)")
	}
	if c.Platform.Owner == "" {
		return fmt.Errorf("platform owner not set")
	}
	if c.Platform.Repo == "" {
		return fmt.Errorf("platform repo not set")
	}
	if c.Workflow.FileName == "" {
		return fmt.Errorf("workflow fileName not set")
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"http.timeout", c.HTTP.Timeout},
		{"http.initialBackoff", c.HTTP.InitialBackoff},
		{"http.maxBackoff", c.HTTP.MaxBackoff},
		{"workflow.parallelThreshold", c.Workflow.ParallelThreshold},
		{"poll.maxWait", c.Poll.MaxWait},
		{"poll.interval", c.Poll.Interval},
		{"poll.grace", c.Poll.Grace},
		{"scenarios.maxWait", c.Scenarios.MaxWait},
	} {
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", field.name, err)
		}
	}
	return nil
}

// Duration parses a duration field that Validate has already vetted.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// expandEnvVars expands ${VAR} and $VAR syntax in configuration strings.
func expandEnvVars(cfg Config) Config {
	cfg.Platform.Owner = expandEnvString(cfg.Platform.Owner)
	cfg.Platform.Repo = expandEnvString(cfg.Platform.Repo)
	cfg.Platform.Token = expandEnvString(cfg.Platform.Token)

	cfg.HTTP.Timeout = expandEnvString(cfg.HTTP.Timeout)
	cfg.HTTP.InitialBackoff = expandEnvString(cfg.HTTP.InitialBackoff)
	cfg.HTTP.MaxBackoff = expandEnvString(cfg.HTTP.MaxBackoff)

	cfg.MainPR.Title = expandEnvString(cfg.MainPR.Title)
	cfg.MainPR.SourceBranch = expandEnvString(cfg.MainPR.SourceBranch)
	cfg.MainPR.TargetBranch = expandEnvString(cfg.MainPR.TargetBranch)

	cfg.Git.RepositoryDir = expandEnvString(cfg.Git.RepositoryDir)
	cfg.Store.Path = expandEnvString(cfg.Store.Path)

	cfg.Observability.Logging.Level = expandEnvString(cfg.Observability.Logging.Level)
	cfg.Observability.Logging.Format = expandEnvString(cfg.Observability.Logging.Format)

	return cfg
}

// expandEnvString replaces ${VAR} or $VAR with environment variable
// values and expands a leading tilde to the home directory.
func expandEnvString(s string) string {
	if s == "" {
		return s
	}

	if s == "~" || strings.HasPrefix(s, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			s = home + s[1:]
		}
	}

	// Replace ${VAR} syntax
	re := regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1] // Remove ${ and }
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Keep original if not found
	})

	// Replace $VAR syntax (without braces)
	re = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:] // Remove $
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Keep original if not found
	})

	return s
}

func locateConfigFile(name string, paths []string) string {
	searchPaths := append([]string{}, paths...)
	searchPaths = append(searchPaths, ".")
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "wfv"))
	}
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name+".yaml")
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	// Platform defaults
	v.SetDefault("platform.token", "${GITHUB_TOKEN}")
	v.SetDefault("platform.perPage", 100)

	// HTTP defaults
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.maxRetries", 3)
	v.SetDefault("http.initialBackoff", "2s")
	v.SetDefault("http.maxBackoff", "32s")
	v.SetDefault("http.backoffMultiplier", 2.0)

	// Workflow defaults
	v.SetDefault("workflow.filePath", ".github/workflows/pr-automation.yml")
	v.SetDefault("workflow.fileName", "pr-automation.yml")
	v.SetDefault("workflow.requiredTriggers", []string{"opened", "synchronize", "reopened"})
	v.SetDefault("workflow.requiredJobs", []string{
		"code-quality", "testing-suite", "security-scan", "build-validation",
	})
	v.SetDefault("workflow.parallelThreshold", "120s")

	// Main PR defaults
	v.SetDefault("mainPR.title", "feat: add PR automation workflow (code-quality/test/security/build)")
	v.SetDefault("mainPR.sourceBranch", "feat/pr-automation")
	v.SetDefault("mainPR.targetBranch", "main")

	// Poll defaults
	v.SetDefault("poll.maxWait", "600s")
	v.SetDefault("poll.interval", "10s")
	v.SetDefault("poll.grace", "5s")
	v.SetDefault("poll.fetchCount", 10)
	v.SetDefault("poll.inspectCount", 5)
	v.SetDefault("poll.emptyPollLimit", 2)

	// Scenario defaults
	v.SetDefault("scenarios.cases", defaultScenarioCases())
	v.SetDefault("scenarios.maxWait", "300s")
	v.SetDefault("scenarios.cleanupEnabled", true)

	// Comment defaults
	v.SetDefault("comments.botLogin", "github-actions[bot]")
	v.SetDefault("comments.requiredReports", defaultRequiredReports())

	// Store defaults
	v.SetDefault("store.enabled", true)
	v.SetDefault("store.path", defaultStorePath())

	// Observability defaults
	v.SetDefault("observability.logging.enabled", true)
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "human")
	v.SetDefault("observability.logging.redactTokens", true)
}

// defaultScenarioCases are the four broken changes pushed through the
// workflow, one per required job.
func defaultScenarioCases() []map[string]any {
	return []map[string]any{
		{
			"title":           "Test: Code Quality Failure (ESLint Error)",
			"branch":          "test-code-quality-fail",
			"filePath":        "src/utils/test-lint-fail.js",
			"content":         "// eslint no-undef: variable used without declaration\nconsole.log(undefinedVar);",
			"expectedFailure": "code-quality",
		},
		{
			"title":           "Test: Testing Suite Failure (Jest Assert Error)",
			"branch":          "test-testing-fail",
			"filePath":        "tests/utils/test-fail.test.js",
			"content":         "// failing jest assertion\nconst sum = (a,b) => a+b;\ntest('sum 1+1 should be 2', () => {\nexpect(sum(1,1)).toBe(3);\n});",
			"expectedFailure": "testing-suite",
		},
		{
			"title":           "Test: Security Scan Failure (Hardcoded Secret)",
			"branch":          "test-security-fail",
			"filePath":        "src/api/security-test.js",
			"content":         "// hardcoded API key the secret scanner must flag\nconst apiKey = 'sk_test_1234567890abcdef';",
			"expectedFailure": "security-scan",
		},
		{
			"title":           "Test: Build Validation Failure (Missing Dependency)",
			"branch":          "test-build-fail",
			"filePath":        "src/components/test-build-fail.js",
			"content":         "// import of a package that does not exist\nimport nonExistentLib from 'non-existent-lib';\nconst TestComponent = () => <div>{nonExistentLib.render()}</div>;\nexport default TestComponent;",
			"expectedFailure": "build-validation",
		},
	}
}

// defaultRequiredReports are the automation comments the bot must post on
// the main pull request.
func defaultRequiredReports() []map[string]any {
	return []map[string]any{
		{
			"name":         "Code Quality Report",
			"mainKeywords": []string{"Code Quality Check Results", "ESLint"},
			"subKeywords":  []string{"Pass Rate: 100%", "Total Issues: 0"},
		},
		{
			"name":         "Test Coverage Report",
			"mainKeywords": []string{"Test Coverage Results", "Jest"},
			"subKeywords":  []string{"Coverage: 85%+"},
		},
		{
			"name":         "Security Scan Report",
			"mainKeywords": []string{"Security Scan Results", "Secret Detection"},
			"subKeywords":  []string{"No Secrets Found"},
		},
		{
			"name":         "Build Validation Report",
			"mainKeywords": []string{"Build Check Results", "Webpack"},
			"subKeywords":  []string{"Build Successful"},
		},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./verifications.db"
	}
	return filepath.Join(home, ".config", "wfv", "verifications.db")
}
