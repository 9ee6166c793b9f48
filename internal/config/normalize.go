package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeExtraction()
	c.normalizeWikidata()
	c.normalizeRetry()
	c.normalizeLogging()
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutDir) == "" {
		c.Paths.OutDir = defaultOutDir
	}
	if c.Paths.OutDir, err = expandPath(c.Paths.OutDir); err != nil {
		return fmt.Errorf("paths.out_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.KnowledgeBase) == "" {
		c.Paths.KnowledgeBase = defaultKnowledgeBasePath
	}
	if c.Paths.KnowledgeBase, err = expandPath(c.Paths.KnowledgeBase); err != nil {
		return fmt.Errorf("paths.knowledge_base: %w", err)
	}
	if c.Extraction.ModelPath != "" {
		if c.Extraction.ModelPath, err = expandPath(c.Extraction.ModelPath); err != nil {
			return fmt.Errorf("extraction.model_path: %w", err)
		}
	}
	if c.Extraction.PatternsPath != "" {
		if c.Extraction.PatternsPath, err = expandPath(c.Extraction.PatternsPath); err != nil {
			return fmt.Errorf("extraction.patterns_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeExtraction() {
	labels := make([]string, 0, len(c.Extraction.Labels))
	seen := make(map[string]struct{}, len(c.Extraction.Labels))
	for _, label := range c.Extraction.Labels {
		normalized := strings.ToUpper(strings.TrimSpace(label))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		labels = append(labels, normalized)
	}
	c.Extraction.Labels = labels
	if c.Extraction.ContextTokens < 0 {
		c.Extraction.ContextTokens = defaultContextTokens
	}
}

func (c *Config) normalizeWikidata() {
	c.Wikidata.BaseURL = strings.TrimSpace(c.Wikidata.BaseURL)
	if c.Wikidata.BaseURL == "" {
		c.Wikidata.BaseURL = defaultWikidataBaseURL
	}
	c.Wikidata.Language = strings.ToLower(strings.TrimSpace(c.Wikidata.Language))
	if c.Wikidata.Language == "" {
		c.Wikidata.Language = defaultWikidataLanguage
	}
	c.Wikidata.UserAgent = strings.TrimSpace(c.Wikidata.UserAgent)
	if c.Wikidata.UserAgent == "" {
		c.Wikidata.UserAgent = defaultUserAgent
	}
	if c.Wikidata.MinIntervalMS < 0 {
		c.Wikidata.MinIntervalMS = defaultMinIntervalMS
	}
	if c.Wikidata.TimeoutSeconds <= 0 {
		c.Wikidata.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = defaultRetryMaxAttempts
	}
	if c.Retry.BaseDelayMS <= 0 {
		c.Retry.BaseDelayMS = defaultRetryBaseDelayMS
	}
	if c.Retry.MaxDelayMS <= 0 {
		c.Retry.MaxDelayMS = defaultRetryMaxDelayMS
	}
	if c.Retry.JitterFactor < 0 {
		c.Retry.JitterFactor = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
