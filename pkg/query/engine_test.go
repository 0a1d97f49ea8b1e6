package query

import (
	"context"
	"testing"

	"github.com/segmentio/ksuid"

	"github.com/ebtdb/ebtd/pkg/index"
)

func TestFieldQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   FieldQuery
		wantErr bool
	}{
		{
			name: "valid equality query",
			query: FieldQuery{
				Field:    "age",
				Operator: "=",
				Value:    25,
			},
			wantErr: false,
		},
		{
			name: "valid range query",
			query: FieldQuery{
				Field:    "age",
				Operator: ">",
				Value:    18,
			},
			wantErr: false,
		},
		{
			name: "empty field",
			query: FieldQuery{
				Field:    "",
				Operator: "=",
				Value:    25,
			},
			wantErr: true,
		},
		{
			name: "invalid operator",
			query: FieldQuery{
				Field:    "age",
				Operator: "invalid",
				Value:    25,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("FieldQuery.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJSONFieldExtractor_Extract(t *testing.T) {
	extractor := &JSONFieldExtractor{}

	tests := []struct {
		name     string
		jsonData string
		field    string
		want     interface{}
		wantErr  bool
	}{
		{
			name:     "extract string field",
			jsonData: `{"name":"John","age":25}`,
			field:    "name",
			want:     "John",
			wantErr:  false,
		},
		{
			name:     "extract number field",
			jsonData: `{"name":"John","age":25}`,
			field:    "age",
			want:     float64(25), // JSON unmarshals numbers as float64
			wantErr:  false,
		},
		{
			name:     "field not found",
			jsonData: `{"name":"John","age":25}`,
			field:    "email",
			want:     nil,
			wantErr:  true,
		},
		{
			name:     "invalid JSON",
			jsonData: `{"name":"John","age":`,
			field:    "name",
			want:     nil,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractor.Extract([]byte(tt.jsonData), tt.field)
			if (err != nil) != tt.wantErr {
				t.Errorf("JSONFieldExtractor.Extract() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("JSONFieldExtractor.Extract() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimpleQueryEngine_ExecuteQuery(t *testing.T) {
	indexManager := index.NewIndexManager(4)

	// A nil row store falls back to returning bare row ids as results.
	engine := NewSimpleQueryEngine(indexManager, nil)

	extractor := &JSONFieldExtractor{}

	query := FieldQuery{
		Field:    "age",
		Operator: "=",
		Value:    25,
	}

	iterator, err := engine.ExecuteQuery(context.Background(), "test-partition", query, extractor)
	if err != nil {
		t.Fatalf("ExecuteQuery failed: %v", err)
	}
	defer iterator.Close()

	if iterator.Next() {
		t.Error("Expected no results, but got some")
	}
}

func TestSimpleQueryEngine_IndexOperations(t *testing.T) {
	indexManager := index.NewIndexManager(4)
	engine := NewSimpleQueryEngine(indexManager, nil)
	extractor := &JSONFieldExtractor{}

	testRecords := []struct {
		row ksuid.KSUID
		age float64
	}{
		{ksuid.New(), 25.0},
		{ksuid.New(), 30.0},
		{ksuid.New(), 25.0},
	}

	ageIndex := indexManager.GetOrCreateIndex("age")
	for _, record := range testRecords {
		if err := ageIndex.Insert(record.age, record.row.Bytes()); err != nil {
			t.Fatalf("Failed to index record %s: %v", record.row, err)
		}
	}

	query := FieldQuery{
		Field:    "age",
		Operator: "=",
		Value:    25.0,
	}

	iterator, err := engine.ExecuteQuery(context.Background(), "users", query, extractor)
	if err != nil {
		t.Fatalf("ExecuteQuery failed: %v", err)
	}
	defer iterator.Close()

	var matched int
	for iterator.Next() {
		matched++
	}
	if matched != 2 {
		t.Errorf("expected 2 matches for age=25, got %d", matched)
	}

	rangeQuery := FieldQuery{
		Field:    "age",
		Operator: ">=",
		Value:    25.0,
	}

	rangeIterator, err := engine.ExecuteQuery(context.Background(), "users", rangeQuery, extractor)
	if err != nil {
		t.Fatalf("Range query failed: %v", err)
	}
	defer rangeIterator.Close()

	var rangeMatched int
	for rangeIterator.Next() {
		rangeMatched++
	}
	if rangeMatched != 3 {
		t.Errorf("expected 3 matches for age>=25, got %d", rangeMatched)
	}

	testJSON := `{"name":"Alice","age":25,"city":"New York"}`
	ageValue, err := extractor.Extract([]byte(testJSON), "age")
	if err != nil {
		t.Fatalf("Field extraction failed: %v", err)
	}
	if ageValue != 25.0 {
		t.Errorf("Expected age 25, got %v", ageValue)
	}

	sameIndex := indexManager.GetOrCreateIndex("age")
	if sameIndex != ageIndex {
		t.Error("Expected to get the same index instance")
	}
}
