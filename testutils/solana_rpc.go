package testutils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// RPCError is a JSON-RPC error object returned by a handler.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// RPCHandler answers one JSON-RPC method. Returning a non-nil *RPCError sends an error response.
type RPCHandler func(params []json.RawMessage) (interface{}, *RPCError)

type mockAccount struct {
	owner    solana.PublicKey
	lamports uint64
	data     []byte
}

// SolanaRPCServer is an httptest JSON-RPC server speaking the subset of the Solana API
// used by the multisig client. Accounts, rent, send and status calls have defaults
// that tests override with Handle.
type SolanaRPCServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]RPCHandler
	accounts map[string]mockAccount
	calls    []string
	sent     []*solana.Transaction
}

// NewSolanaRPCServer starts a server that is closed when t finishes.
func NewSolanaRPCServer(t *testing.T) *SolanaRPCServer {
	t.Helper()
	s := &SolanaRPCServer{
		handlers: make(map[string]RPCHandler),
		accounts: make(map[string]mockAccount),
	}
	s.handlers["getAccountInfo"] = s.getAccountInfo
	s.handlers["getMinimumBalanceForRentExemption"] = rentExemption
	s.handlers["sendTransaction"] = s.sendTransaction
	s.handlers["getSignatureStatuses"] = SignatureStatus("confirmed", nil)

	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Server.Close)
	return s
}

// Handle replaces the handler for method.
func (s *SolanaRPCServer) Handle(method string, h RPCHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// SetAccount makes address resolvable through getAccountInfo.
func (s *SolanaRPCServer) SetAccount(address, owner solana.PublicKey, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[address.String()] = mockAccount{owner: owner, lamports: 1_000_000, data: data}
}

// Calls returns the methods invoked so far, in order.
func (s *SolanaRPCServer) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Sent returns every transaction accepted by the default sendTransaction handler.
func (s *SolanaRPCServer) Sent() []*solana.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*solana.Transaction(nil), s.sent...)
}

func (s *SolanaRPCServer) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     interface{}       `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, req.Method)
	h, ok := s.handlers[req.Method]
	s.mu.Unlock()

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      req.ID,
	}
	if !ok {
		response["error"] = RPCError{Code: -32601, Message: "Method not found"}
	} else if result, rpcErr := h(req.Params); rpcErr != nil {
		response["error"] = rpcErr
	} else {
		response["result"] = result
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func withContext(value interface{}) map[string]interface{} {
	return map[string]interface{}{
		"context": map[string]interface{}{"slot": 100},
		"value":   value,
	}
}

func (s *SolanaRPCServer) getAccountInfo(params []json.RawMessage) (interface{}, *RPCError) {
	var address string
	if len(params) == 0 || json.Unmarshal(params[0], &address) != nil {
		return nil, &RPCError{Code: -32602, Message: "Invalid params"}
	}
	s.mu.Lock()
	acct, ok := s.accounts[address]
	s.mu.Unlock()
	if !ok {
		return withContext(nil), nil
	}
	return withContext(map[string]interface{}{
		"data":       []string{base64.StdEncoding.EncodeToString(acct.data), "base64"},
		"executable": false,
		"lamports":   acct.lamports,
		"owner":      acct.owner.String(),
		"rentEpoch":  0,
		"space":      len(acct.data),
	}), nil
}

// RentFor mirrors the cluster's rent-exempt minimum: (size + 128) * 6960 lamports.
func RentFor(size uint64) uint64 {
	return (size + 128) * 6960
}

func rentExemption(params []json.RawMessage) (interface{}, *RPCError) {
	var size uint64
	if len(params) == 0 || json.Unmarshal(params[0], &size) != nil {
		return nil, &RPCError{Code: -32602, Message: "Invalid params"}
	}
	return RentFor(size), nil
}

// DecodeSentTransaction parses the base64 wire transaction of a sendTransaction call.
func DecodeSentTransaction(params []json.RawMessage) (*solana.Transaction, error) {
	var encoded string
	if len(params) == 0 {
		return nil, errors.New("missing transaction param")
	}
	if err := json.Unmarshal(params[0], &encoded); err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	return solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
}

func (s *SolanaRPCServer) sendTransaction(params []json.RawMessage) (interface{}, *RPCError) {
	tx, err := DecodeSentTransaction(params)
	if err != nil || len(tx.Signatures) == 0 {
		return nil, &RPCError{Code: -32602, Message: "invalid transaction"}
	}
	s.mu.Lock()
	s.sent = append(s.sent, tx)
	s.mu.Unlock()
	return tx.Signatures[0].String(), nil
}

// RejectSend answers sendTransaction with a preflight failure carrying message.
func RejectSend(message string) RPCHandler {
	return func([]json.RawMessage) (interface{}, *RPCError) {
		return nil, &RPCError{Code: -32002, Message: message}
	}
}

// SignatureStatus answers getSignatureStatuses with a single status entry.
func SignatureStatus(confirmationStatus string, txErr interface{}) RPCHandler {
	return func([]json.RawMessage) (interface{}, *RPCError) {
		return withContext([]interface{}{
			map[string]interface{}{
				"slot":               100,
				"confirmations":      nil,
				"err":                txErr,
				"confirmationStatus": confirmationStatus,
			},
		}), nil
	}
}
