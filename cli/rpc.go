package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mobile-next/trackcli/server"
)

// callServer posts one JSON-RPC request to the control server and returns
// the result payload.
func callServer(method string, params interface{}) (interface{}, error) {
	addr := serverAddr
	if addr == "" {
		addr = cfg.Server.Listen
	}

	// accept a bare port, and an address without host
	if !strings.Contains(addr, ":") {
		if _, err := strconv.Atoi(addr); err == nil {
			addr = ":" + addr
		}
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	var rawParams json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		rawParams = data
	}

	reqBody := server.JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  rawParams,
		ID:      1,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequest(http.MethodPost, "http://"+addr+"/rpc", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := storedToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		if strings.Contains(err.Error(), "connection refused") {
			return nil, fmt.Errorf("server is not running on %s", addr)
		}
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned error: %s", resp.Status)
	}

	var rpcResp server.JSONRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if rpcResp.Error != nil {
		if errMap, ok := rpcResp.Error.(map[string]interface{}); ok {
			return nil, fmt.Errorf("server error: %v", errMap["data"])
		}
		return nil, fmt.Errorf("server error: %v", rpcResp.Error)
	}

	return rpcResp.Result, nil
}

// callAndPrint calls a server method and prints its result as JSON.
func callAndPrint(method string, params interface{}) error {
	result, err := callServer(method, params)
	if err != nil {
		return err
	}

	printJson(result)
	return nil
}
