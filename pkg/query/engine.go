package query

import (
	"context"
	"fmt"

	"github.com/segmentio/ksuid"

	"github.com/ebtdb/ebtd/pkg/index"
	"github.com/ebtdb/ebtd/pkg/storage"
)

// SimpleQueryEngine implements basic field-based queries using secondary
// indexes, fetching matched documents from the row store by the ksuid
// each index entry carries as its primary key.
type SimpleQueryEngine struct {
	indexManager *index.IndexManager
	rowStore     *storage.RowStore
}

// NewSimpleQueryEngine creates a new query engine.
func NewSimpleQueryEngine(indexManager *index.IndexManager, rowStore *storage.RowStore) *SimpleQueryEngine {
	return &SimpleQueryEngine{
		indexManager: indexManager,
		rowStore:     rowStore,
	}
}

// ExecuteQuery executes a single field query.
func (qe *SimpleQueryEngine) ExecuteQuery(ctx context.Context, partitionKey string, query FieldQuery, extractor FieldExtractor) (QueryIterator, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	idx := qe.indexManager.GetOrCreateIndex(query.Field)

	var (
		rowIDs [][]byte
		err    error
	)
	switch query.Operator {
	case "=":
		rowIDs, err = idx.Search(query.Value)
	case ">", ">=":
		rowIDs, err = idx.SearchGE(query.Value)
	case "<", "<=":
		rowIDs, err = idx.SearchLE(query.Value)
	default:
		return nil, fmt.Errorf("unsupported operator: %s", query.Operator)
	}
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}
	if query.Operator == ">" || query.Operator == "<" {
		// SearchGE/SearchLE include the rows equal to Value, which sit at the
		// start (for >) or the end (for <) of their results; drop them.
		equal, err := idx.Search(query.Value)
		if err != nil {
			return nil, fmt.Errorf("index search failed: %w", err)
		}
		if n := len(equal); n > len(rowIDs) {
			rowIDs = nil
		} else if query.Operator == ">" {
			rowIDs = rowIDs[n:]
		} else {
			rowIDs = rowIDs[:len(rowIDs)-n]
		}
	}

	return &simpleIterator{results: qe.fetchResults(rowIDs)}, nil
}

// ExecuteRangeQuery executes a range query between two field conditions.
func (qe *SimpleQueryEngine) ExecuteRangeQuery(ctx context.Context, partitionKey string, startQuery, endQuery FieldQuery, extractor FieldExtractor) (QueryIterator, error) {
	if err := startQuery.Validate(); err != nil {
		return nil, fmt.Errorf("invalid start query: %w", err)
	}
	if err := endQuery.Validate(); err != nil {
		return nil, fmt.Errorf("invalid end query: %w", err)
	}
	if startQuery.Field != endQuery.Field {
		return nil, fmt.Errorf("range query fields must match: %s != %s", startQuery.Field, endQuery.Field)
	}

	idx := qe.indexManager.GetOrCreateIndex(startQuery.Field)
	rowIDs, err := idx.SearchRange(startQuery.Value, endQuery.Value)
	if err != nil {
		return nil, fmt.Errorf("range search failed: %w", err)
	}

	return &simpleIterator{results: qe.fetchResults(rowIDs)}, nil
}

// fetchResults resolves each index hit's ksuid row id against the row
// store. A row id that no longer resolves (the document was deleted after
// the index entry was read) is skipped rather than surfaced as an error.
func (qe *SimpleQueryEngine) fetchResults(rowIDs [][]byte) []QueryResult {
	results := make([]QueryResult, 0, len(rowIDs))
	for _, rowID := range rowIDs {
		id, err := ksuid.FromBytes(rowID)
		if err != nil {
			continue
		}

		if qe.rowStore == nil {
			results = append(results, QueryResult{Key: rowID, Value: []byte{}})
			continue
		}

		value, err := qe.rowStore.Get(id)
		if err != nil {
			continue
		}
		results = append(results, QueryResult{Key: rowID, Value: value})
	}
	return results
}

// simpleIterator implements QueryIterator for basic result streaming.
type simpleIterator struct {
	results []QueryResult
	index   int
}

func (it *simpleIterator) Next() bool {
	if it.index < len(it.results) {
		it.index++
		return true
	}
	return false
}

func (it *simpleIterator) Result() QueryResult {
	if it.index > 0 && it.index <= len(it.results) {
		return it.results[it.index-1]
	}
	return QueryResult{}
}

func (it *simpleIterator) Close() error {
	return nil
}
