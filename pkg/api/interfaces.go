// Package api is the HTTP surface over the ebtd backend: health, put/get/
// delete by key, bounded lookup, and ordered range listing, instrumented
// with Prometheus metrics and documented with swagger.
package api

import (
	"github.com/segmentio/ksuid"

	"github.com/ebtdb/ebtd/pkg/query"
)

// Backend is everything the HTTP handlers need from the storage layer.
// di.Container satisfies it; tests substitute a hand-written fake, since
// this package has no generated-mock tooling in its dependency set.
type Backend interface {
	Put(key, value []byte) (ksuid.KSUID, error)
	Get(key []byte) ([]byte, bool, error)
	Delete(key []byte) (bool, error)
	LookupLE(key []byte) (k, v []byte, ok bool)
	LookupGE(key []byte) (k, v []byte, ok bool)
	Range(fn func(key, value []byte) bool)
	Query(field, operator string, value interface{}) ([]query.QueryResult, error)
	Len() int
}
