package rpc_test

import (
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/decimal-ipc/dscipc/pkg/rpc"
)

// daemonHandler produces the raw bytes written back for one request. A nil
// reply writes nothing. With hangUp set the daemon closes the connection
// right after replying instead of waiting for the client to leave.
type daemonHandler func(req rpc.Request) (reply []byte, hangUp bool)

// fakeDaemon serves the wallet daemon protocol on a temporary Unix socket:
// it reads one request per connection, writes the handler's reply and, like
// the real daemon, keeps the connection open until the client hangs up.
type fakeDaemon struct {
	path    string
	ln      net.Listener
	handler daemonHandler

	accepted atomic.Int64
	closed   atomic.Int64
	wg       sync.WaitGroup
}

func startFakeDaemon(t *testing.T, handler daemonHandler) *fakeDaemon {
	t.Helper()

	// Unix socket paths are limited in length, so avoid t.TempDir.
	dir, err := os.MkdirTemp("", "dscipc")
	require.NoError(t, err)
	path := filepath.Join(dir, "d.sock")

	ln, err := net.Listen("unix", path)
	require.NoError(t, err)

	d := &fakeDaemon{path: path, ln: ln, handler: handler}
	d.wg.Add(1)
	go d.serve()

	t.Cleanup(func() {
		_ = ln.Close()
		d.wg.Wait()
		_ = os.RemoveAll(dir)
	})
	return d
}

func (d *fakeDaemon) serve() {
	defer d.wg.Done()
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			return
		}
		d.accepted.Add(1)
		d.wg.Add(1)
		go d.handle(conn)
	}
}

func (d *fakeDaemon) handle(conn net.Conn) {
	defer d.wg.Done()
	defer conn.Close()

	var req rpc.Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		return
	}

	reply, hangUp := d.handler(req)
	if reply != nil {
		if _, err := conn.Write(reply); err != nil {
			return
		}
	}
	if hangUp {
		d.closed.Add(1)
		return
	}

	// Returns once the client hangs up.
	_, _ = io.Copy(io.Discard, conn)
	d.closed.Add(1)
}

func (d *fakeDaemon) dialer() *rpc.UnixDialer {
	cfg := rpc.DefaultUnixDialerConfig
	cfg.SocketPath = d.path
	return rpc.NewUnixDialer(cfg)
}

// jsonReply encodes a response envelope.
func jsonReply(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
