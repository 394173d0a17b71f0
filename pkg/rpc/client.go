package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/decimal-ipc/dscipc/pkg/bignum"
	"github.com/decimal-ipc/dscipc/pkg/log"
)

const (
	// CreateWalletAction is the daemon action that registers the session
	// wallet.
	CreateWalletAction = "create_wallet"

	// WalletAddressKey and WalletIDKey are the payload slots the client
	// fills in on every request.
	WalletAddressKey = "wallet_address"
	WalletIDKey      = "wallet_id"

	// DefaultCallTimeout bounds a call whose context has no deadline.
	DefaultCallTimeout = 30 * time.Second

	tracerName = "github.com/decimal-ipc/dscipc/pkg/rpc"
)

// BindingState is the wallet binding state of a Client session: Unbound or
// Bound.
type BindingState interface {
	isBindingState()
}

// Unbound is the state of a session before a wallet was created. Only the
// wallet creation action is accepted.
type Unbound struct{}

// Bound is the state of a session after a successful wallet creation.
type Bound struct {
	// Address is the 0x-prefixed wallet address returned by the daemon.
	Address string
}

func (Unbound) isBindingState() {}
func (Bound) isBindingState()   {}

// Cipher encrypts the wallet mnemonic before it is sent. *crypt.Cipher
// implements it.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Close()
}

// Client is a session with the wallet daemon.
//
// A session starts Unbound. CreateWallet sends the encrypted mnemonic to the
// daemon and binds the session to the returned wallet address; from then on
// every call carries that address. The binding happens once per session.
//
// Example usage:
//
//	cipher, err := crypt.NewCipher(os.Getenv("ENCRYPTION_KEY"))
//	if err != nil {
//	    return err
//	}
//	client := rpc.NewClient(rpc.NewUnixDialer(rpc.DefaultUnixDialerConfig), cipher)
//	defer client.Close()
//
//	if _, err := client.CreateWallet(ctx, mnemonic); err != nil {
//	    return err
//	}
//
//	balance, err := client.GetBalance(ctx, "0x...")
//	res, err := client.Call(ctx, "get_validators", nil)
//
// The Client is safe for concurrent use. Each call uses its own connection,
// so concurrent calls never see each other's responses.
type Client struct {
	dialer      Dialer
	cipher      Cipher
	schema      *Schema
	lg          log.Logger
	metrics     *Metrics
	tracer      trace.Tracer
	walletID    string
	callTimeout time.Duration

	state    BindingState
	mu       sync.RWMutex // protects state
	createMu sync.Mutex   // serializes wallet creation
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default discards everything.
func WithLogger(lg log.Logger) Option {
	return func(c *Client) {
		if lg != nil {
			c.lg = lg
		}
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithWalletID sets the id under which the daemon keeps this session's
// wallet. By default every Client generates a random one.
func WithWalletID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.walletID = id
		}
	}
}

// WithCallTimeout bounds every call that has no earlier context deadline.
// Zero or negative disables the default bound.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.callTimeout = d
	}
}

// WithSchema replaces the built-in action table.
func WithSchema(s *Schema) Option {
	return func(c *Client) {
		if s != nil {
			c.schema = s
		}
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewClient creates an Unbound session that talks to the daemon through
// dialer and protects the mnemonic with cipher.
func NewClient(dialer Dialer, cipher Cipher, opts ...Option) *Client {
	c := &Client{
		dialer:      dialer,
		cipher:      cipher,
		schema:      DefaultSchema(),
		lg:          log.NewNoopLogger(),
		tracer:      otel.Tracer(tracerName),
		walletID:    uuid.NewString(),
		callTimeout: DefaultCallTimeout,
		state:       Unbound{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lg = c.lg.WithName("rpc-client").WithKV("walletId", c.walletID)
	return c
}

// State returns the current binding state.
func (c *Client) State() BindingState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// WalletAddress returns the bound wallet address, if any.
func (c *Client) WalletAddress() (string, bool) {
	if b, ok := c.State().(Bound); ok {
		return b.Address, true
	}
	return "", false
}

// WalletID returns the session wallet id sent with every request.
func (c *Client) WalletID() string {
	return c.walletID
}

// Schema returns the action table used for validation.
func (c *Client) Schema() *Schema {
	return c.schema
}

// Close releases the cipher key material. The binding state is kept, but
// wallet creation is no longer possible.
func (c *Client) Close() {
	if c.cipher != nil {
		c.cipher.Close()
	}
}

// Call invokes a daemon action by name and returns its result with every
// big number converted to decimal.Decimal. Results decode with json.Number
// for plain numbers; a missing result is an empty map.
//
// Arguments are validated against the schema before anything is sent, so
// unknown actions, missing or unknown arguments and failed rules are
// ValidationErrors without I/O. Calling any action except wallet creation on
// an Unbound session is a WalletBindingError, also without I/O. The wallet
// creation action is handled by CreateWallet.
func (c *Client) Call(ctx context.Context, action string, args map[string]any) (res any, err error) {
	started := time.Now()
	label := action
	defer func() {
		c.metrics.observe(label, started, err)
	}()

	a, ok := c.schema.Lookup(action)
	if !ok {
		label = "unknown"
		return nil, newError(KindValidation, nil, "unknown action %q", action)
	}

	validated, err := c.schema.Validate(action, args)
	if err != nil {
		return nil, err
	}

	if a.Binds {
		mnemonic, _ := validated["mnemonic"].(string)
		result, _, err := c.createWallet(ctx, action, mnemonic)
		return result, err
	}

	address, bound := c.WalletAddress()
	if !bound {
		return nil, newError(KindWalletBinding, nil, "wallet is not bound: create a wallet before calling %s", action)
	}

	validated[WalletAddressKey] = address
	validated[WalletIDKey] = c.walletID

	return c.exchange(ctx, action, validated)
}

// CallInto invokes action like Call and decodes the result into out, which
// should be a pointer. Decimal values decode from their string form.
func (c *Client) CallInto(ctx context.Context, action string, args map[string]any, out any) error {
	res, err := c.Call(ctx, action, args)
	if err != nil {
		return err
	}
	return translateResult(action, res, out)
}

// CreateWallet registers the wallet derived from mnemonic with the daemon and
// binds the session to its address.
//
// The mnemonic is encrypted with the client's cipher; only the token leaves
// the process. A session can be bound once: calling CreateWallet on a Bound
// session fails with WalletBindingError before any I/O. A daemon response
// without a well-formed 0x address leaves the session Unbound and also fails
// with WalletBindingError.
func (c *Client) CreateWallet(ctx context.Context, mnemonic string) (res CreateWalletResult, err error) {
	started := time.Now()
	defer func() {
		c.metrics.observe(CreateWalletAction, started, err)
	}()

	if _, err := c.schema.Validate(CreateWalletAction, map[string]any{"mnemonic": mnemonic}); err != nil {
		return CreateWalletResult{}, err
	}

	_, res, err = c.createWallet(ctx, CreateWalletAction, mnemonic)
	return res, err
}

func (c *Client) createWallet(ctx context.Context, action, mnemonic string) (any, CreateWalletResult, error) {
	c.createMu.Lock()
	defer c.createMu.Unlock()

	if address, bound := c.WalletAddress(); bound {
		return nil, CreateWalletResult{}, newError(KindWalletBinding, nil, "wallet already bound to %s", address)
	}

	token, err := c.cipher.Encrypt(mnemonic)
	if err != nil {
		return nil, CreateWalletResult{}, newError(KindWalletBinding, err, "failed to encrypt mnemonic")
	}

	raw, err := c.exchange(ctx, action, map[string]any{
		"mnemonic":  token,
		WalletIDKey: c.walletID,
	})
	if err != nil {
		return nil, CreateWalletResult{}, err
	}

	var res CreateWalletResult
	if err := translateResult(action, raw, &res); err != nil {
		return nil, CreateWalletResult{}, newError(KindWalletBinding, err, "unexpected wallet creation result")
	}
	if err := c.bind(res.Address); err != nil {
		return nil, CreateWalletResult{}, err
	}

	c.lg.Info("wallet bound", "address", res.Address)
	return raw, res, nil
}

// bind moves the session from Unbound to Bound. It is the only place the
// binding state changes.
func (c *Client) bind(address string) error {
	if !IsAddress(address) {
		return newError(KindWalletBinding, nil, "daemon returned a malformed wallet address %q", address)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.state.(Bound); ok {
		return newError(KindWalletBinding, nil, "wallet already bound to %s", b.Address)
	}
	c.state = Bound{Address: address}
	return nil
}

// exchange sends one request and interprets the response.
func (c *Client) exchange(ctx context.Context, action string, payload map[string]any) (res any, err error) {
	if c.callTimeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
			defer cancel()
		}
	}

	ctx, span := c.tracer.Start(ctx, action,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "dscipc"),
			attribute.String("rpc.method", action),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ctx = log.SetContextLogger(ctx, c.lg.WithKV("action", action).WithKV("requestId", uuid.NewString()))
	lg := log.FromContext(ctx)

	params, err := NewParams(payload)
	if err != nil {
		return nil, newError(KindValidation, err, "%s: arguments cannot be encoded", action)
	}
	req := NewRequest(action, params)

	lg.Debug("calling daemon")
	resp, err := c.dialer.Call(ctx, &req)
	if err != nil {
		var rpcErr *Error
		if !errors.As(err, &rpcErr) {
			err = newError(KindConnectionFailure, err, "%s", action)
		}
		lg.Warn("call failed", "kind", KindOf(err), "error", err)
		return nil, err
	}
	if resp == nil {
		return nil, newError(KindProtocolFailure, nil, "%s: empty response", action)
	}

	res, err = interpret(resp)
	if err != nil {
		lg.Warn("call rejected", "kind", KindOf(err), "error", err)
		return nil, err
	}

	lg.Debug("call succeeded")
	return res, nil
}

// interpret turns a response envelope into a normalized result or a typed
// error.
func interpret(resp *Response) (any, error) {
	switch {
	case resp.Success != nil && *resp.Success:
		if len(resp.Result) == 0 {
			return map[string]any{}, nil
		}

		dec := json.NewDecoder(bytes.NewReader(resp.Result))
		dec.UseNumber()
		var result any
		if err := dec.Decode(&result); err != nil {
			return nil, newError(KindProtocolFailure, err, "malformed result")
		}
		if result == nil {
			return map[string]any{}, nil
		}

		normalized, err := bignum.Normalize(result)
		if err != nil {
			return nil, newError(KindProtocolFailure, err, "malformed result")
		}
		return normalized, nil

	case resp.Error != nil:
		return nil, Classify(*resp.Error, resp.Code)

	case resp.Success != nil:
		return nil, newError(KindProtocolFailure, nil, "unknown error")

	default:
		return nil, newError(KindProtocolFailure, nil, "response has neither success nor error")
	}
}

// translateResult decodes a normalized result into out.
func translateResult(action string, result any, out any) error {
	if m, ok := result.(map[string]any); ok {
		params, err := NewParams(m)
		if err != nil {
			return newError(KindProtocolFailure, err, "%s: cannot decode result", action)
		}
		if err := params.Translate(out); err != nil {
			return newError(KindProtocolFailure, err, "%s: cannot decode result", action)
		}
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return newError(KindProtocolFailure, err, "%s: cannot decode result", action)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return newError(KindProtocolFailure, fmt.Errorf("error unmarshalling result: %w", err), "%s: cannot decode result", action)
	}
	return nil
}
