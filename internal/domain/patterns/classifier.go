package patterns

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
	"github.com/shopspring/decimal"
)

// CategoryGroup maps a category to the keywords that trigger it. Groups are
// tested in slice order; the first group with a hit wins.
type CategoryGroup struct {
	Category   Category
	Keywords   []string
	Confidence int
}

// KeywordConfig is the injectable keyword configuration for the classifier.
// MCA keywords score additively; category groups are first-match-wins.
type KeywordConfig struct {
	MCAKeywords    []string
	CategoryGroups []CategoryGroup
}

// DefaultKeywordConfig returns the stock keyword sets tuned for US
// small-business bank statements.
func DefaultKeywordConfig() KeywordConfig {
	return KeywordConfig{
		MCAKeywords: []string{
			"capital", "funding", "advance", "merchant", "mca", "lender",
			"loan", "payment", "financing", "bizfi", "kabbage", "ondeck",
			"fundbox", "bluevine", "forward", "rapid", "cash advance",
		},
		CategoryGroups: []CategoryGroup{
			{Category: CategoryPayroll, Keywords: []string{"payroll", "salary", "wages"}, Confidence: 80},
			{Category: CategoryRentLease, Keywords: []string{"rent", "lease"}, Confidence: 75},
			{Category: CategoryUtilities, Keywords: []string{"utility", "electric", "gas", "water"}, Confidence: 75},
			{Category: CategoryTransfers, Keywords: []string{"transfer", "xfer"}, Confidence: 70},
			{Category: CategoryBankFees, Keywords: []string{"fee", "charge", "service"}, Confidence: 65},
			{Category: CategorySubscriptions, Keywords: []string{"subscription", "monthly"}, Confidence: 60},
		},
	}
}

// MCA scoring weights. mcaScoreThreshold is the cutoff above which a cluster
// is treated as a lender obligation regardless of category keywords.
const (
	mcaKeywordScore   = 30
	mcaDailyBonus     = 40
	mcaAmountBonus    = 10
	mcaScoreThreshold = 50
	mcaConfidenceCap  = 95
	otherConfidence   = 40
)

// Classification is the classifier's verdict for one cluster.
type Classification struct {
	Category   Category
	IsMCA      bool
	Confidence int
}

// keywordMeta aggregates every role a keyword plays. The same keyword may
// appear in the MCA list and in a category group; the automaton stores each
// unique pattern once, so roles are grouped per pattern.
type keywordMeta struct {
	isMCA      bool
	groupIndex int // lowest category group index, -1 when none
}

// Classifier scores cluster descriptions against the keyword configuration.
// All keywords are compiled into a single Aho-Corasick automaton so a
// description is scanned once regardless of keyword count. Safe for
// concurrent use; Rebuild swaps the automaton under the write lock.
type Classifier struct {
	mu      sync.RWMutex
	config  KeywordConfig
	matcher *ahocorasick.Matcher
	meta    []keywordMeta
}

// NewClassifier builds a classifier from the given keyword configuration.
func NewClassifier(config KeywordConfig) *Classifier {
	c := &Classifier{}
	c.Rebuild(config)
	return c
}

// Rebuild recompiles the keyword automaton. Called when the keyword
// configuration is tuned at runtime.
func (c *Classifier) Rebuild(config KeywordConfig) {
	patternIndex := make(map[string]int)
	var patterns [][]byte
	var meta []keywordMeta

	add := func(kw string, isMCA bool, groupIndex int) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			return
		}
		idx, ok := patternIndex[kw]
		if !ok {
			idx = len(patterns)
			patternIndex[kw] = idx
			patterns = append(patterns, []byte(kw))
			meta = append(meta, keywordMeta{groupIndex: -1})
		}
		if isMCA {
			meta[idx].isMCA = true
		}
		if groupIndex >= 0 && (meta[idx].groupIndex == -1 || groupIndex < meta[idx].groupIndex) {
			meta[idx].groupIndex = groupIndex
		}
	}

	for _, kw := range config.MCAKeywords {
		add(kw, true, -1)
	}
	for gi, group := range config.CategoryGroups {
		for _, kw := range group.Keywords {
			add(kw, false, gi)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = config
	c.meta = meta
	if len(patterns) > 0 {
		c.matcher = ahocorasick.NewMatcher(patterns)
	} else {
		c.matcher = nil
	}
}

// Classify assigns a category and MCA confidence to a cluster. Scoring is
// additive: each distinct MCA keyword present in the description contributes
// 30, daily cadence above $100 adds 40, and an average in the (200, 5000)
// band adds 10. A score of 50 or more classifies as mca_lender and
// suppresses all category keywords. Total function; an empty description
// falls through to other/40.
func (c *Classifier) Classify(description string, frequency Frequency, avgAmount decimal.Decimal) Classification {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var hits []int
	if c.matcher != nil {
		hits = c.matcher.Match([]byte(strings.ToLower(description)))
	}

	mcaHits := 0
	bestGroup := -1
	for _, idx := range hits {
		if idx < 0 || idx >= len(c.meta) {
			continue
		}
		m := c.meta[idx]
		if m.isMCA {
			mcaHits++
		}
		if m.groupIndex >= 0 && (bestGroup == -1 || m.groupIndex < bestGroup) {
			bestGroup = m.groupIndex
		}
	}

	mcaScore := mcaHits * mcaKeywordScore
	if frequency == FrequencyDaily && avgAmount.GreaterThan(decimal.NewFromInt(100)) {
		mcaScore += mcaDailyBonus
	}
	if avgAmount.GreaterThan(decimal.NewFromInt(200)) && avgAmount.LessThan(decimal.NewFromInt(5000)) {
		mcaScore += mcaAmountBonus
	}

	if mcaScore >= mcaScoreThreshold {
		confidence := mcaScore
		if confidence > mcaConfidenceCap {
			confidence = mcaConfidenceCap
		}
		return Classification{Category: CategoryMCALender, IsMCA: true, Confidence: confidence}
	}

	if bestGroup >= 0 && bestGroup < len(c.config.CategoryGroups) {
		group := c.config.CategoryGroups[bestGroup]
		return Classification{Category: group.Category, Confidence: group.Confidence}
	}

	return Classification{Category: CategoryOther, Confidence: otherConfidence}
}
