package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/decimal-ipc/dscipc/pkg/log"
)

// Dialer is the transport used by Client. A Dialer performs exactly one
// request/response exchange per Call and keeps no state between calls, so it
// is safe for concurrent use.
type Dialer interface {
	// Call sends req and waits for the daemon's response.
	// Errors are *Error values of kind ConnectionFailure or ProtocolFailure.
	// The context bounds the whole exchange.
	Call(ctx context.Context, req *Request) (*Response, error)
}

// DefaultSocketPath is where the wallet daemon listens unless configured
// otherwise.
const DefaultSocketPath = "/tmp/decimal_ipc.sock"

// UnixDialerConfig contains configuration options for the Unix socket dialer
type UnixDialerConfig struct {
	// SocketPath is the filesystem path of the daemon's Unix socket
	SocketPath string

	// DialTimeout bounds connection establishment. Zero means only the
	// call context applies.
	DialTimeout time.Duration

	// MaxResponseSize is the maximum number of bytes read for one response.
	// A response that does not fit is a protocol failure.
	MaxResponseSize int64
}

// DefaultUnixDialerConfig provides the defaults matching the daemon's setup
var DefaultUnixDialerConfig = UnixDialerConfig{
	SocketPath:      DefaultSocketPath,
	DialTimeout:     5 * time.Second,
	MaxResponseSize: 64 * 1024,
}

// UnixDialer implements Dialer over a local Unix domain socket.
//
// Every Call opens a fresh connection, writes the JSON-encoded request,
// decodes a single JSON response and closes the connection on every path.
// There is no pooling and no retry.
type UnixDialer struct {
	cfg UnixDialerConfig
}

// Ensure UnixDialer implements the Dialer interface
var _ Dialer = (*UnixDialer)(nil)

// NewUnixDialer creates a new Unix socket dialer. Zero fields of cfg take
// their value from DefaultUnixDialerConfig, except DialTimeout.
func NewUnixDialer(cfg UnixDialerConfig) *UnixDialer {
	if cfg.SocketPath == "" {
		cfg.SocketPath = DefaultUnixDialerConfig.SocketPath
	}
	if cfg.MaxResponseSize <= 0 {
		cfg.MaxResponseSize = DefaultUnixDialerConfig.MaxResponseSize
	}
	return &UnixDialer{cfg: cfg}
}

// SocketPath returns the socket the dialer connects to.
func (d *UnixDialer) SocketPath() string {
	return d.cfg.SocketPath
}

// Call performs one exchange with the daemon.
//
// Cancelling ctx, or reaching its deadline, aborts a pending write or read by
// expiring the connection deadline; the connection is closed and the error is
// a ConnectionFailure wrapping the context error.
func (d *UnixDialer) Call(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, newError(KindProtocolFailure, ErrNilRequest, "invalid request")
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, newError(KindProtocolFailure, err, "error marshalling request")
	}

	lg := log.FromContext(ctx).WithName("unix-dialer")

	dialer := net.Dialer{Timeout: d.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", d.cfg.SocketPath)
	if err != nil {
		if ctxErr := contextCause(ctx, err); ctxErr != nil {
			return nil, newError(KindConnectionFailure, ctxErr, "error dialing %s", d.cfg.SocketPath)
		}
		return nil, newError(KindConnectionFailure, err, "error dialing %s", d.cfg.SocketPath)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			lg.Debug("error closing connection", "error", err)
		}
	}()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, newError(KindConnectionFailure, err, "error setting deadline")
		}
	}
	// Expire the connection as soon as ctx is done so blocked I/O returns.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	// The request is written in full without half-closing the connection:
	// the daemon drops half-closed sockets before replying.
	if _, err := conn.Write(data); err != nil {
		return nil, d.exchangeError(ctx, err, "error sending request")
	}
	lg.Debug("request sent", "action", req.Action, "bytes", len(data))

	var res Response
	dec := json.NewDecoder(io.LimitReader(conn, d.cfg.MaxResponseSize))
	if err := dec.Decode(&res); err != nil {
		return nil, d.exchangeError(ctx, err, "error reading response")
	}

	return &res, nil
}

// exchangeError classifies a failure that happened on an open connection.
func (d *UnixDialer) exchangeError(ctx context.Context, err error, msg string) *Error {
	if ctxErr := contextCause(ctx, err); ctxErr != nil {
		return newError(KindConnectionFailure, ctxErr, "%s", msg)
	}

	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF):
		// Closed before the first byte of a response.
		return newError(KindConnectionFailure, err, "%s: connection closed by daemon", msg)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return newError(KindProtocolFailure, err, "%s: incomplete or oversized response (limit %d bytes)", msg, d.cfg.MaxResponseSize)
	case errors.As(err, &netErr):
		return newError(KindConnectionFailure, err, "%s", msg)
	default:
		return newError(KindProtocolFailure, err, "%s: malformed response", msg)
	}
}

// contextCause returns the context error behind err, if any. The connection
// deadline equals the context deadline and may fire before the context's own
// timer, so a timeout at or after the context deadline counts as
// context.DeadlineExceeded even while ctx.Err is still nil.
func contextCause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var netErr net.Error
	timedOut := errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
	if !timedOut {
		return nil
	}
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return context.DeadlineExceeded
	}
	return nil
}
