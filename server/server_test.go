package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobile-next/trackcli/commands"
	"github.com/mobile-next/trackcli/tracker"
)

func newTestTracker(t *testing.T) *commands.Tracker {
	t.Helper()
	cfg := tracker.DefaultConfig()
	cfg.Capture.Output = filepath.Join(t.TempDir(), "log.csv")
	cfg.Capture.FlushIntervalSec = 3600
	return commands.NewTracker(cfg, nil)
}

// newTestServer serves a fresh Server over httptest and returns its base URL.
func newTestServer(t *testing.T, opts Options) string {
	t.Helper()
	ts := httptest.NewServer(New(newTestTracker(t), opts).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func rpcCall(t *testing.T, baseURL string, payload interface{}) JSONRPCResponse {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(baseURL+"/rpc", "application/json", bytes.NewBuffer(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, 200, resp.StatusCode)

	var jsonResp JSONRPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jsonResp))
	return jsonResp
}

func rpcRequest(method string, params interface{}) map[string]interface{} {
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  method,
		"id":      1,
	}
	if params != nil {
		payload["params"] = params
	}
	return payload
}

// TestRootEndpoint tests that the root endpoint returns status "ok"
func TestRootEndpoint(t *testing.T) {
	baseURL := newTestServer(t, Options{})

	resp, err := http.Get(baseURL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)

	var data map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&data))

	assert.Equal(t, "ok", data["status"])
}

// TestStatusEndpoint tests that /status reports the idle session without auth
func TestStatusEndpoint(t *testing.T) {
	baseURL := newTestServer(t, Options{AuthToken: "secret"})

	resp, err := http.Get(baseURL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)

	var data map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&data))

	assert.Equal(t, "ok", data["status"])

	status, ok := data["data"].(map[string]interface{})
	require.True(t, ok, "Expected data to be map, got %T", data["data"])
	assert.Equal(t, "idle", status["state"])
}

// TestRPCEndpointMethods tests HTTP method handling for /rpc endpoint
func TestRPCEndpointMethods(t *testing.T) {
	baseURL := newTestServer(t, Options{})

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{
			name:           "GET should return 405 Method Not Allowed",
			method:         "GET",
			expectedStatus: 405,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, baseURL+"/rpc", nil)
			require.NoError(t, err)

			client := &http.Client{}
			resp, err := client.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

// TestJSONRPCValidation tests JSON-RPC request validation
func TestJSONRPCValidation(t *testing.T) {
	baseURL := newTestServer(t, Options{})

	tests := []struct {
		name          string
		payload       interface{}
		expectedError map[string]interface{}
	}{
		{
			name:    "Empty POST body should return parse error",
			payload: "",
			expectedError: map[string]interface{}{
				"code": float64(ErrCodeParseError),
				"data": errMsgParseError,
			},
		},
		{
			name: "Invalid jsonrpc version should return error",
			payload: map[string]interface{}{
				"jsonrpc": "1.0",
				"method":  "capture.status",
				"id":      1,
			},
			expectedError: map[string]interface{}{
				"code": float64(ErrCodeInvalidRequest),
				"data": errMsgInvalidJSONRPC,
			},
		},
		{
			name: "Missing id field should return error",
			payload: map[string]interface{}{
				"jsonrpc": "2.0",
				"method":  "capture.status",
				"params":  map[string]interface{}{},
			},
			expectedError: map[string]interface{}{
				"code": float64(ErrCodeInvalidRequest),
				"data": errMsgIDRequired,
			},
		},
		{
			name: "Missing method field should return error",
			payload: map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      1,
			},
			expectedError: map[string]interface{}{
				"code": float64(ErrCodeInvalidRequest),
				"data": errMsgMethodRequired,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body []byte
			var err error

			if tt.payload == "" {
				body = []byte("")
			} else {
				body, err = json.Marshal(tt.payload)
				require.NoError(t, err)
			}

			resp, err := http.Post(baseURL+"/rpc", "application/json", bytes.NewBuffer(body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, 200, resp.StatusCode)

			var jsonResp JSONRPCResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&jsonResp))

			assert.Equal(t, "2.0", jsonResp.JSONRPC)
			assert.NotNil(t, jsonResp.Error, "Expected error in response")

			errorMap, ok := jsonResp.Error.(map[string]interface{})
			require.True(t, ok, "Expected error to be map, got %T", jsonResp.Error)

			assert.Equal(t, tt.expectedError["code"], errorMap["code"])
			assert.Equal(t, tt.expectedError["data"], errorMap["data"])
		})
	}
}

// TestMethodNotFound tests that unknown methods return method not found error
func TestMethodNotFound(t *testing.T) {
	baseURL := newTestServer(t, Options{})

	jsonResp := rpcCall(t, baseURL, rpcRequest("unknown_method", nil))

	assert.NotNil(t, jsonResp.Error, "Expected error in response")

	errorMap, ok := jsonResp.Error.(map[string]interface{})
	require.True(t, ok, "Expected error to be map, got %T", jsonResp.Error)

	assert.Equal(t, float64(ErrCodeMethodNotFound), errorMap["code"])
}

// TestCaptureLifecycle drives a full start/status/stop/runs cycle over RPC
func TestCaptureLifecycle(t *testing.T) {
	baseURL := newTestServer(t, Options{})

	start := rpcCall(t, baseURL, rpcRequest("capture.start", map[string]interface{}{"intervalMs": 10}))
	require.Nil(t, start.Error)

	startResult, ok := start.Result.(map[string]interface{})
	require.True(t, ok, "Expected result to be map, got %T", start.Result)
	assert.Equal(t, true, startResult["changed"])
	assert.Equal(t, "running", startResult["state"])
	assert.Equal(t, float64(10), startResult["poll_interval_ms"])
	assert.NotEmpty(t, startResult["run_id"])

	status := rpcCall(t, baseURL, rpcRequest("capture.status", nil))
	require.Nil(t, status.Error)
	statusResult := status.Result.(map[string]interface{})
	assert.Equal(t, "running", statusResult["state"])

	stop := rpcCall(t, baseURL, rpcRequest("capture.stop", nil))
	require.Nil(t, stop.Error)
	stopResult := stop.Result.(map[string]interface{})
	assert.Equal(t, true, stopResult["changed"])
	assert.Equal(t, "idle", stopResult["state"])
	assert.Equal(t, startResult["run_id"], stopResult["run_id"])

	runs := rpcCall(t, baseURL, rpcRequest("runs.list", nil))
	require.Nil(t, runs.Error)
	runList, ok := runs.Result.([]interface{})
	require.True(t, ok, "Expected result to be list, got %T", runs.Result)
	require.Len(t, runList, 1)
	assert.Equal(t, startResult["run_id"], runList[0].(map[string]interface{})["id"])
}

// TestCaptureStartInvalidParams tests parameter validation for capture.start
func TestCaptureStartInvalidParams(t *testing.T) {
	baseURL := newTestServer(t, Options{})

	tests := []struct {
		name   string
		params interface{}
	}{
		{"non-numeric interval", map[string]interface{}{"intervalMs": "fast"}},
		{"negative interval", map[string]interface{}{"intervalMs": -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jsonResp := rpcCall(t, baseURL, rpcRequest("capture.start", tt.params))

			require.NotNil(t, jsonResp.Error, "Expected error in response")
			errorMap := jsonResp.Error.(map[string]interface{})
			assert.Equal(t, float64(ErrCodeInvalidParams), errorMap["code"])
		})
	}
}

// TestCaptureSetKeys tests the capture.setkeys method
func TestCaptureSetKeys(t *testing.T) {
	baseURL := newTestServer(t, Options{})

	jsonResp := rpcCall(t, baseURL, rpcRequest("capture.setkeys", map[string]interface{}{
		"keys": []string{"Q", "ZZ", "CTRL"},
	}))
	require.Nil(t, jsonResp.Error)

	result := jsonResp.Result.(map[string]interface{})
	assert.Equal(t, float64(2), result["accepted"])

	missing := rpcCall(t, baseURL, rpcRequest("capture.setkeys", nil))
	require.NotNil(t, missing.Error, "Expected error in response")
	errorMap := missing.Error.(map[string]interface{})
	assert.Equal(t, float64(ErrCodeInvalidParams), errorMap["code"])

	empty := rpcCall(t, baseURL, rpcRequest("capture.setkeys", map[string]interface{}{"keys": []string{}}))
	require.NotNil(t, empty.Error, "Expected error in response")
	errorMap = empty.Error.(map[string]interface{})
	assert.Equal(t, float64(ErrCodeInvalidParams), errorMap["code"])
}

// TestServerShutdownMethod tests that server.shutdown responds before exiting
func TestServerShutdownMethod(t *testing.T) {
	baseURL := newTestServer(t, Options{})

	jsonResp := rpcCall(t, baseURL, rpcRequest("server.shutdown", nil))
	require.Nil(t, jsonResp.Error)

	result := jsonResp.Result.(map[string]interface{})
	assert.Equal(t, "ok", result["status"])
}

// TestAuthToken tests bearer token enforcement on /rpc
func TestAuthToken(t *testing.T) {
	baseURL := newTestServer(t, Options{AuthToken: "secret"})

	body := []byte(`{"jsonrpc":"2.0","method":"capture.status","id":1}`)

	tests := []struct {
		name           string
		authorization  string
		expectedStatus int
	}{
		{"no token", "", 401},
		{"wrong token", "Bearer wrong", 401},
		{"wrong scheme", "Basic secret", 401},
		{"valid token", "Bearer secret", 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest("POST", baseURL+"/rpc", bytes.NewBuffer(body))
			require.NoError(t, err)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

// Unit tests for better code coverage

// TestHandleJSONRPCDirect tests the JSON-RPC handler directly
func TestHandleJSONRPCDirect(t *testing.T) {
	srv := New(newTestTracker(t), Options{})

	tests := []struct {
		name         string
		method       string
		body         string
		expectStatus int
		expectError  bool
	}{
		{
			name:         "Non-POST method",
			method:       "GET",
			body:         "",
			expectStatus: 405,
			expectError:  false,
		},
		{
			name:         "Valid JSON-RPC request with unknown method",
			method:       "POST",
			body:         `{"jsonrpc":"2.0","method":"unknown","id":1}`,
			expectStatus: 200,
			expectError:  true,
		},
		{
			name:         "Invalid JSON",
			method:       "POST",
			body:         `{invalid json}`,
			expectStatus: 200,
			expectError:  true,
		},
		{
			name:         "Empty method",
			method:       "POST",
			body:         `{"jsonrpc":"2.0","method":"","id":1}`,
			expectStatus: 200,
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/rpc", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			srv.handleJSONRPC(w, req)

			resp := w.Result()
			defer resp.Body.Close()

			assert.Equal(t, tt.expectStatus, resp.StatusCode)

			// For 405 responses, there won't be JSON content
			if resp.StatusCode == 405 {
				return
			}

			var jsonResp JSONRPCResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&jsonResp))

			if tt.expectError {
				assert.NotNil(t, jsonResp.Error, "Expected error in response")
			} else {
				assert.Nil(t, jsonResp.Error, "Expected no error in response")
			}
		})
	}
}

// TestSendJSONRPCResponse tests the response helper function
func TestSendJSONRPCResponse(t *testing.T) {
	w := httptest.NewRecorder()
	testData := map[string]string{"test": "data"}

	sendJSONRPCResponse(w, 123, testData)

	resp := w.Result()
	defer resp.Body.Close()

	var jsonResp JSONRPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jsonResp))

	assert.Equal(t, "2.0", jsonResp.JSONRPC)
	assert.Equal(t, float64(123), jsonResp.ID)

	resultMap, ok := jsonResp.Result.(map[string]interface{})
	require.True(t, ok, "Expected result to be map, got %T", jsonResp.Result)

	assert.Equal(t, "data", resultMap["test"])
}

// TestSendJSONRPCError tests the error response helper function
func TestSendJSONRPCError(t *testing.T) {
	w := httptest.NewRecorder()

	sendJSONRPCError(w, 456, ErrCodeMethodNotFound, "Method not found", "Test method")

	resp := w.Result()
	defer resp.Body.Close()

	var jsonResp JSONRPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jsonResp))

	assert.Equal(t, "2.0", jsonResp.JSONRPC)
	assert.Equal(t, float64(456), jsonResp.ID)

	errorMap, ok := jsonResp.Error.(map[string]interface{})
	require.True(t, ok, "Expected error to be map, got %T", jsonResp.Error)

	assert.Equal(t, float64(ErrCodeMethodNotFound), errorMap["code"])
	assert.Equal(t, "Method not found", errorMap["message"])
	assert.Equal(t, "Test method", errorMap["data"])
}

// TestCORSMiddleware tests the CORS middleware functionality
func TestCORSMiddleware(t *testing.T) {
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("test"))
	})

	corsHandler := corsMiddleware(testHandler)

	tests := []struct {
		name   string
		method string
	}{
		{"GET request", "GET"},
		{"POST request", "POST"},
		{"OPTIONS request", "OPTIONS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			w := httptest.NewRecorder()

			corsHandler.ServeHTTP(w, req)

			resp := w.Result()
			defer resp.Body.Close()

			// Check CORS headers
			assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "POST, GET, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))

			// OPTIONS requests should return 200 without calling the handler
			if tt.method == "OPTIONS" {
				assert.Equal(t, 200, resp.StatusCode)
			}
		})
	}
}
