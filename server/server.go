package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mobile-next/trackcli/commands"
	"github.com/mobile-next/trackcli/utils"
)

const (
	// Parse error: Invalid JSON was received by the server
	ErrCodeParseError = -32700

	// Invalid Request: The JSON sent is not a valid Request object
	ErrCodeInvalidRequest = -32600

	// Method not found: The method does not exist / is not available
	ErrCodeMethodNotFound = -32601

	// Server error: Internal JSON-RPC error
	ErrCodeServerError = -32000

	// Invalid params: Invalid method parameters
	ErrCodeInvalidParams = -32602

	// Internal error: Internal JSON-RPC error
	ErrCodeInternalError = -32603
)

// Server timeouts
const (
	ReadTimeout  = 10 * time.Second
	WriteTimeout = 10 * time.Second
	IdleTimeout  = 120 * time.Second
)

// error titles and detail messages shared by the HTTP and WebSocket paths
const (
	errTitleParseError     = "Parse error"
	errTitleInvalidReq     = "Invalid Request"
	errTitleMethodNotFound = "Method not found"
	errTitleInvalidParams  = "Invalid params"
	errTitleServerError    = "Server error"

	errMsgParseError     = "expecting jsonrpc payload"
	errMsgInvalidJSONRPC = "'jsonrpc' must be '2.0'"
	errMsgIDRequired     = "'id' field is required"
	errMsgMethodRequired = "'method' is required"
	errMsgTextOnly       = "only text messages accepted for requests"
)

var okResponse = map[string]interface{}{"status": "ok"}

type JSONRPCRequest struct {
	// these fields are all omitempty, so we can report back to client if they are missing
	JSONRPC string          `json:"jsonrpc,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC response
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   interface{} `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// CaptureStartParams represents the parameters for the capture.start request
type CaptureStartParams struct {
	IntervalMs int `json:"intervalMs,omitempty"` // position sampler period, 0 keeps the current one
}

// CaptureSetKeysParams represents the parameters for the capture.setkeys request
type CaptureSetKeysParams struct {
	Keys []string `json:"keys"`
}

// Options configure the RPC server.
type Options struct {
	// EnableCORS allows any origin on HTTP and WebSocket requests.
	EnableCORS bool

	// AuthToken, when non-empty, makes /rpc and /ws require
	// "Authorization: Bearer <token>". The banner and /status stay open.
	AuthToken string
}

// Server exposes the capture command surface as JSON-RPC 2.0 over HTTP and
// WebSocket. It is a control plane only: captured events go to the CSV sink,
// never over the wire.
type Server struct {
	tracker    *commands.Tracker
	enableCORS bool
	authToken  string

	httpServer *http.Server
}

// New creates a server around an existing Tracker.
func New(tracker *commands.Tracker, opts Options) *Server {
	return &Server{
		tracker:    tracker,
		enableCORS: opts.EnableCORS,
		authToken:  opts.AuthToken,
	}
}

// Handler returns the full HTTP handler tree. Start serves it; tests and
// embedders can mount it themselves.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.sendBanner)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/rpc", s.requireAuth(s.handleJSONRPC))
	mux.HandleFunc("/ws", s.requireAuth(s.handleWebSocket))

	if s.enableCORS {
		return corsMiddleware(mux)
	}
	return mux
}

// Start listens on addr and serves until Shutdown or a fatal error. A bare
// port number is accepted and binds all interfaces on that port.
func (s *Server) Start(addr string) error {
	if !strings.Contains(addr, ":") {
		// convert addr to integer
		port, err := strconv.Atoi(addr)
		if err != nil {
			return fmt.Errorf("invalid port: %v", err)
		}

		addr = fmt.Sprintf(":%d", port)
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}

	utils.Info("Starting server on http://%s...", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server, letting in-flight requests finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware handles CORS preflight requests and adds CORS headers to responses.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAuth rejects requests without the configured bearer token. With no
// token configured everything passes through.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token != s.authToken {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONRPCError(w, nil, ErrCodeParseError, errTitleParseError, errMsgParseError)
		return
	}

	if req.JSONRPC != "2.0" {
		sendJSONRPCError(w, req.ID, ErrCodeInvalidRequest, errTitleInvalidReq, errMsgInvalidJSONRPC)
		return
	}

	if req.ID == nil {
		sendJSONRPCError(w, nil, ErrCodeInvalidRequest, errTitleInvalidReq, errMsgIDRequired)
		return
	}

	if req.Method == "" {
		sendJSONRPCError(w, req.ID, ErrCodeInvalidRequest, errTitleInvalidReq, errMsgMethodRequired)
		return
	}

	utils.Info("Request ID: %v, Method: %s, Params: %s", req.ID, req.Method, string(req.Params))

	handler, exists := s.methodRegistry()[req.Method]
	if !exists {
		sendJSONRPCError(w, req.ID, ErrCodeMethodNotFound, errTitleMethodNotFound, fmt.Sprintf("Method '%s' not found", req.Method))
		return
	}

	result, err := handler(req.Params)
	if err != nil {
		utils.Error("Error executing method %s: %v", req.Method, err)
		code, title := errorCode(err)
		sendJSONRPCError(w, req.ID, code, title, err.Error())
		return
	}

	sendJSONRPCResponse(w, req.ID, result)
}

// invalidParamsError marks handler failures caused by the request payload
// rather than by the capture pipeline.
type invalidParamsError struct {
	err error
}

func (e *invalidParamsError) Error() string {
	return e.err.Error()
}

func invalidParams(format string, args ...interface{}) error {
	return &invalidParamsError{err: fmt.Errorf(format, args...)}
}

func errorCode(err error) (int, string) {
	var paramsErr *invalidParamsError
	if errors.As(err, &paramsErr) {
		return ErrCodeInvalidParams, errTitleInvalidParams
	}
	return ErrCodeServerError, errTitleServerError
}

func (s *Server) handleCaptureStart(params json.RawMessage) (interface{}, error) {
	var startParams CaptureStartParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &startParams); err != nil {
			return nil, invalidParams("invalid parameters: %v. Expected fields: intervalMs", err)
		}
	}

	if startParams.IntervalMs < 0 {
		return nil, invalidParams("'intervalMs' must not be negative")
	}

	response := s.tracker.StartCommand(startParams.IntervalMs)
	if response.Status == "error" {
		return nil, fmt.Errorf("%s", response.Error)
	}
	return response.Data, nil
}

func (s *Server) handleCaptureStop(params json.RawMessage) (interface{}, error) {
	response := s.tracker.StopCommand()
	if response.Status == "error" {
		return nil, fmt.Errorf("%s", response.Error)
	}
	return response.Data, nil
}

func (s *Server) handleCaptureStatus(params json.RawMessage) (interface{}, error) {
	response := s.tracker.StatusCommand()
	if response.Status == "error" {
		return nil, fmt.Errorf("%s", response.Error)
	}
	return response.Data, nil
}

func (s *Server) handleCaptureSetKeys(params json.RawMessage) (interface{}, error) {
	if len(params) == 0 {
		return nil, invalidParams("'params' is required with fields: keys")
	}

	var setKeysParams CaptureSetKeysParams
	if err := json.Unmarshal(params, &setKeysParams); err != nil {
		return nil, invalidParams("invalid parameters: %v. Expected fields: keys", err)
	}

	if len(setKeysParams.Keys) == 0 {
		return nil, invalidParams("'keys' is required")
	}

	response := s.tracker.SetKeysCommand(setKeysParams.Keys)
	if response.Status == "error" {
		return nil, fmt.Errorf("%s", response.Error)
	}
	return response.Data, nil
}

func (s *Server) handleRunsList(params json.RawMessage) (interface{}, error) {
	response := s.tracker.RunsCommand()
	if response.Status == "error" {
		return nil, fmt.Errorf("%s", response.Error)
	}
	return response.Data, nil
}

// handleShutdown stops the server from a separate goroutine so the response
// for this request can still go out.
func (s *Server) handleShutdown(params json.RawMessage) (interface{}, error) {
	utils.Info("Shutdown requested over RPC")
	if s.httpServer != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.httpServer.Shutdown(ctx)
		}()
	}
	return okResponse, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.tracker.StatusCommand())
}

func sendJSONRPCResponse(w http.ResponseWriter, id interface{}, result interface{}) {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func sendJSONRPCError(w http.ResponseWriter, id interface{}, code int, message string, data interface{}) {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Error: map[string]interface{}{
			"code":    code,
			"message": message,
			"data":    data,
		},
		ID: id,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func (s *Server) sendBanner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(okResponse)
}
