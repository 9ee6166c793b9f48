package config

const (
	defaultOutDir            = "./out"
	defaultLogDir            = "~/.local/share/vttlink/logs"
	defaultKnowledgeBasePath = "~/.local/share/vttlink/kb.db"
	defaultMaxTokens         = 50
	defaultMaxSeconds        = 10.0
	defaultContextTokens     = 8
	defaultAcceptThreshold   = 0.60
	defaultReviewThreshold   = 0.75
	defaultWikidataBaseURL   = "https://www.wikidata.org"
	defaultWikidataLanguage  = "en"
	defaultUserAgent         = "vttlink/1.0 (transcript entity linking)"
	defaultMinIntervalMS     = 100
	defaultTimeoutSeconds    = 15
	defaultRetryMaxAttempts  = 4
	defaultRetryBaseDelayMS  = 600
	defaultRetryMaxDelayMS   = 10000
	defaultRetryJitter       = 0.2
	defaultWorkers           = 2
	defaultLogLevel          = "info"
	defaultLogFormat         = "console"
)

func defaultLabels() []string {
	return []string{"PERSON", "ORG", "GPE", "LOC"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutDir:        defaultOutDir,
			LogDir:        defaultLogDir,
			KnowledgeBase: defaultKnowledgeBasePath,
		},
		Stitching: Stitching{
			MaxTokensPerSegment:  defaultMaxTokens,
			MaxSecondsPerSegment: defaultMaxSeconds,
		},
		Extraction: Extraction{
			Labels:        defaultLabels(),
			ContextTokens: defaultContextTokens,
		},
		Linking: Linking{
			Enabled:         true,
			AcceptThreshold: defaultAcceptThreshold,
			ReviewThreshold: defaultReviewThreshold,
		},
		Wikidata: Wikidata{
			BaseURL:        defaultWikidataBaseURL,
			Language:       defaultWikidataLanguage,
			UserAgent:      defaultUserAgent,
			MinIntervalMS:  defaultMinIntervalMS,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Retry: Retry{
			MaxAttempts:  defaultRetryMaxAttempts,
			BaseDelayMS:  defaultRetryBaseDelayMS,
			MaxDelayMS:   defaultRetryMaxDelayMS,
			JitterFactor: defaultRetryJitter,
		},
		Enrichment: Enrichment{
			Enabled: false,
		},
		Workflow: Workflow{
			Workers: defaultWorkers,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
