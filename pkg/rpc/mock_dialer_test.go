package rpc_test

import (
	"context"
	"sync"

	"github.com/decimal-ipc/dscipc/pkg/rpc"
)

// MockCallHandler handles one action in the mock dialer. It receives the
// request payload and returns the daemon response.
type MockCallHandler func(payload rpc.Params) (*rpc.Response, error)

// Ensure MockDialer implements the Dialer interface
var _ rpc.Dialer = (*MockDialer)(nil)

// MockDialer is a test implementation of the rpc.Dialer interface.
// It routes requests to handlers registered per action and records every
// request it receives.
type MockDialer struct {
	handlers map[string]MockCallHandler
	requests []rpc.Request
	mu       sync.Mutex
}

// NewMockDialer creates a new mock dialer for testing.
func NewMockDialer() *MockDialer {
	return &MockDialer{
		handlers: make(map[string]MockCallHandler),
	}
}

// RegisterHandler registers a mock handler for an action.
func (d *MockDialer) RegisterHandler(action string, handler MockCallHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[action] = handler
}

// Call records the request and routes it to the registered handler. Actions
// without a handler get an "unknown action" failure response.
func (d *MockDialer) Call(ctx context.Context, req *rpc.Request) (*rpc.Response, error) {
	if req == nil {
		return nil, rpc.ErrNilRequest
	}

	d.mu.Lock()
	d.requests = append(d.requests, *req)
	handler, exists := d.handlers[req.Action]
	d.mu.Unlock()

	if !exists {
		res := rpc.NewErrorResponse("unknown action: " + req.Action)
		return &res, nil
	}

	return handler(req.Payload)
}

// Requests returns a copy of all recorded requests.
func (d *MockDialer) Requests() []rpc.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]rpc.Request(nil), d.requests...)
}

// CallCount returns the number of requests that reached the transport.
func (d *MockDialer) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

// successResponse builds a successful response or panics; for test setup.
func successResponse(result any) *rpc.Response {
	res, err := rpc.NewSuccessResponse(result)
	if err != nil {
		panic(err)
	}
	return &res
}

// rawResponse builds a successful response around literal result JSON.
func rawResponse(resultJSON string) *rpc.Response {
	success := true
	return &rpc.Response{Success: &success, Result: []byte(resultJSON)}
}

func errorResponse(msg string) *rpc.Response {
	res := rpc.NewErrorResponse(msg)
	return &res
}
