package api

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// Server holds the API server's state: the backend it fronts, its
// Prometheus metrics, and its listen configuration.
type Server struct {
	backend Backend
	config  ServerConfig
	metrics *Metrics
}

// NewServer creates a new API server over backend.
func NewServer(backend Backend, config ServerConfig, metrics *Metrics) *Server {
	return &Server{backend: backend, config: config, metrics: metrics}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Report that the server is accepting requests
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handlePut godoc
//
//	@Summary		Store a key/value pair
//	@Description	Insert or replace the value stored under key
//	@Tags			kv
//	@Accept			octet-stream
//	@Produce		json
//	@Param			key		path		string	true	"Key"
//	@Param			body	body		[]byte	true	"Value"
//	@Success		200		{object}	APIResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		500		{object}	APIResponse
//	@Router			/kv/{key} [put]
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key, err := decodedKeyParam(r)
	if err != nil {
		s.recordOp("put", false, start)
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	value, err := io.ReadAll(r.Body)
	if err != nil {
		s.recordOp("put", false, start)
		sendError(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	if _, err := s.backend.Put([]byte(key), value); err != nil {
		s.recordOp("put", false, start)
		sendError(w, fmt.Sprintf("failed to put key: %v", err), http.StatusInternalServerError)
		return
	}

	s.recordOp("put", true, start)
	sendSuccess(w, map[string]string{"message": "stored"})
}

// handleGet godoc
//
//	@Summary		Fetch a value by key
//	@Description	Return the value stored under an exact key
//	@Tags			kv
//	@Produce		octet-stream
//	@Param			key	path		string	true	"Key"
//	@Success		200	{string}	byte
//	@Failure		404	{object}	APIResponse
//	@Router			/kv/{key} [get]
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key, err := decodedKeyParam(r)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	value, ok, err := s.backend.Get([]byte(key))
	if err != nil {
		s.recordOp("get", false, start)
		sendError(w, fmt.Sprintf("failed to get key: %v", err), http.StatusInternalServerError)
		return
	}
	if !ok {
		s.recordOp("get", false, start)
		sendError(w, "key not found", http.StatusNotFound)
		return
	}

	s.recordOp("get", true, start)
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(value)
}

// handleDelete godoc
//
//	@Summary		Delete a key
//	@Tags			kv
//	@Produce		json
//	@Param			key	path		string	true	"Key"
//	@Success		200	{object}	APIResponse
//	@Failure		404	{object}	APIResponse
//	@Router			/kv/{key} [delete]
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key, err := decodedKeyParam(r)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ok, err := s.backend.Delete([]byte(key))
	if err != nil {
		s.recordOp("delete", false, start)
		sendError(w, fmt.Sprintf("failed to delete key: %v", err), http.StatusInternalServerError)
		return
	}
	if !ok {
		s.recordOp("delete", false, start)
		sendError(w, "key not found", http.StatusNotFound)
		return
	}

	s.recordOp("delete", true, start)
	sendSuccess(w, map[string]string{"message": "deleted"})
}

// handleLE godoc
//
//	@Summary		Bounded lookup, nearest key <= the given key
//	@Tags			kv
//	@Produce		json
//	@Param			key	query		string	true	"Key"
//	@Success		200	{object}	APIResponse{data=KeyValue}
//	@Failure		404	{object}	APIResponse
//	@Router			/kv/le [get]
func (s *Server) handleLE(w http.ResponseWriter, r *http.Request) {
	s.handleBound(w, r, s.backend.LookupLE, "le")
}

// handleGE godoc
//
//	@Summary		Bounded lookup, nearest key >= the given key
//	@Tags			kv
//	@Produce		json
//	@Param			key	query		string	true	"Key"
//	@Success		200	{object}	APIResponse{data=KeyValue}
//	@Failure		404	{object}	APIResponse
//	@Router			/kv/ge [get]
func (s *Server) handleGE(w http.ResponseWriter, r *http.Request) {
	s.handleBound(w, r, s.backend.LookupGE, "ge")
}

func (s *Server) handleBound(w http.ResponseWriter, r *http.Request, bound func([]byte) ([]byte, []byte, bool), op string) {
	start := time.Now()
	key := r.URL.Query().Get("key")
	if key == "" {
		sendError(w, "key query parameter is required", http.StatusBadRequest)
		return
	}

	k, v, ok := bound([]byte(key))
	if !ok {
		s.recordOp(op, false, start)
		sendError(w, "no matching key", http.StatusNotFound)
		return
	}

	s.recordOp(op, true, start)
	sendSuccess(w, KeyValue{Key: string(k), Value: string(v)})
}

// handleRange godoc
//
//	@Summary		List every stored key/value pair in ascending key order
//	@Tags			kv
//	@Produce		json
//	@Success		200	{object}	APIResponse{data=[]KeyValue}
//	@Router			/kv [get]
func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	var pairs []KeyValue
	s.backend.Range(func(key, value []byte) bool {
		pairs = append(pairs, KeyValue{Key: string(key), Value: string(value)})
		return limit == 0 || len(pairs) < limit
	})

	s.recordOp("range", true, start)
	sendSuccess(w, pairs)
}

func (s *Server) recordOp(op string, success bool, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordDBOperation(op, success, time.Since(start))
	s.metrics.UpdateDBStats(s.backend.Len())
}

func decodedKeyParam(r *http.Request) (string, error) {
	key := chi.URLParam(r, "key")
	if key == "" {
		return "", fmt.Errorf("key is required")
	}
	unescaped, err := url.QueryUnescape(key)
	if err != nil {
		return "", fmt.Errorf("invalid key encoding: %w", err)
	}
	return unescaped, nil
}
