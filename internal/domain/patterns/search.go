package patterns

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
)

// PatternDocument is the searchable projection of a detected pattern.
type PatternDocument struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Frequency   string  `json:"frequency"`
	IsMCA       bool    `json:"is_mca"`
	Confidence  float64 `json:"confidence"`
}

// PatternSearchResult is a search hit with its relevance score.
type PatternSearchResult struct {
	Document PatternDocument
	Score    float64
}

// SearchIndex provides full-text lookup over the patterns emitted by a run.
// Callers use it to answer "which detected patterns mention this payee"
// without re-scanning raw transactions. In-memory only; rebuilt per run.
type SearchIndex struct {
	index bleve.Index
	mu    sync.RWMutex
}

// NewSearchIndex creates an empty in-memory index.
func NewSearchIndex() (*SearchIndex, error) {
	index, err := bleve.NewMemOnly(buildPatternIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create pattern index: %w", err)
	}
	return &SearchIndex{index: index}, nil
}

func buildPatternIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("description", textFieldMapping)
	docMapping.AddFieldMappingsAt("category", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("frequency", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("confidence", bleve.NewNumericFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name
	return indexMapping
}

// IndexPatterns loads a run's patterns into the index in one batch.
func (si *SearchIndex) IndexPatterns(detected []Pattern) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	batch := si.index.NewBatch()
	for _, p := range detected {
		doc := PatternDocument{
			ID:          p.ID.String(),
			Description: p.DescriptionPattern,
			Category:    string(p.Category),
			Frequency:   string(p.Frequency),
			IsMCA:       p.IsMCA,
			Confidence:  float64(p.ConfidenceScore),
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("failed to index pattern %s: %w", p.ID, err)
		}
	}

	if err := si.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch index: %w", err)
	}
	return nil
}

// Search runs a free-text query over pattern descriptions. Fuzziness of one
// edit tolerates the usual statement typos.
func (si *SearchIndex) Search(query string, limit int) ([]PatternSearchResult, error) {
	si.mu.RLock()
	defer si.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetFuzziness(1)

	searchRequest := bleve.NewSearchRequest(matchQuery)
	searchRequest.Size = limit
	searchRequest.Fields = []string{"*"}

	searchResults, err := si.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("pattern search failed: %w", err)
	}

	results := make([]PatternSearchResult, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		doc := PatternDocument{ID: hit.ID}
		if v, ok := hit.Fields["description"].(string); ok {
			doc.Description = v
		}
		if v, ok := hit.Fields["category"].(string); ok {
			doc.Category = v
		}
		if v, ok := hit.Fields["frequency"].(string); ok {
			doc.Frequency = v
		}
		if v, ok := hit.Fields["is_mca"].(bool); ok {
			doc.IsMCA = v
		}
		if v, ok := hit.Fields["confidence"].(float64); ok {
			doc.Confidence = v
		}
		results = append(results, PatternSearchResult{Document: doc, Score: hit.Score})
	}
	return results, nil
}

// DocumentCount reports how many patterns are currently indexed.
func (si *SearchIndex) DocumentCount() (uint64, error) {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return si.index.DocCount()
}

// Close releases the index.
func (si *SearchIndex) Close() error {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.index.Close()
}
