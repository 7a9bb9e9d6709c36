package server

import (
	"encoding/json"
	"fmt"
)

// HandlerFunc is the signature for JSON-RPC method handlers
type HandlerFunc func(params json.RawMessage) (interface{}, error)

// methodRegistry returns a map of method names to handler functions.
// The HTTP and WebSocket paths both dispatch through it.
func (s *Server) methodRegistry() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		"capture.start":   s.handleCaptureStart,
		"capture.stop":    s.handleCaptureStop,
		"capture.status":  s.handleCaptureStatus,
		"capture.setkeys": s.handleCaptureSetKeys,
		"runs.list":       s.handleRunsList,
		"server.shutdown": s.handleShutdown,
	}
}

// Execute dispatches a method call using the registry. This is the entry
// point for embedded clients that skip the HTTP transport.
func (s *Server) Execute(method string, params json.RawMessage) (interface{}, error) {
	handler, exists := s.methodRegistry()[method]
	if !exists {
		return nil, fmt.Errorf("method not found: %s", method)
	}

	return handler(params)
}
