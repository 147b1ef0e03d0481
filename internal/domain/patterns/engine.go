package patterns

import "github.com/google/uuid"

// Config tunes the engine. Zero values fall back to the defaults, so
// Config{} behaves exactly like DefaultConfig().
type Config struct {
	SimilarityThreshold float64
	AnomalyMultiplier   float64
	Keywords            KeywordConfig
}

// DefaultConfig returns the stock engine tuning.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: DefaultSimilarityThreshold,
		AnomalyMultiplier:   DefaultAnomalyMultiplier,
		Keywords:            DefaultKeywordConfig(),
	}
}

// Engine runs the full detection pass: normalize, cluster, analyze,
// classify, assemble. The pass is pure and synchronous; one invocation
// covers one scope's full transaction history.
type Engine struct {
	threshold  float64
	classifier *Classifier
	analyzer   *Analyzer
}

// NewEngine builds an engine from the config, filling in defaults for unset
// fields.
func NewEngine(cfg Config) *Engine {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.AnomalyMultiplier <= 0 {
		cfg.AnomalyMultiplier = DefaultAnomalyMultiplier
	}
	if len(cfg.Keywords.MCAKeywords) == 0 && len(cfg.Keywords.CategoryGroups) == 0 {
		cfg.Keywords = DefaultKeywordConfig()
	}

	classifier := NewClassifier(cfg.Keywords)
	return &Engine{
		threshold:  cfg.SimilarityThreshold,
		classifier: classifier,
		analyzer:   NewAnalyzer(classifier, cfg.AnomalyMultiplier),
	}
}

// Classifier exposes the keyword classifier for runtime keyword tuning.
func (e *Engine) Classifier() *Classifier {
	return e.classifier
}

// Run executes one full pass over a scope's transactions. An empty input is
// a valid terminal state: zero patterns, zero annotations, zero rollup.
func (e *Engine) Run(opportunityID uuid.UUID, transactions []Transaction) *RunOutput {
	clusters := Cluster(transactions, e.threshold)

	stats := make([]*ClusterStats, 0, len(clusters))
	for _, cluster := range clusters {
		if cs := e.analyzer.Analyze(cluster); cs != nil {
			stats = append(stats, cs)
		}
	}

	out := Assemble(opportunityID, stats)
	out.Duplicates = FindDuplicatePatterns(out.Patterns)
	return out
}
