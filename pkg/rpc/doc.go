// Package rpc implements the client side of the Decimal wallet daemon
// protocol.
//
// The daemon listens on a local Unix socket and serves one request per
// connection. A request is a JSON object naming an action and carrying its
// payload; the response reports success with a result, or failure with an
// error message:
//
//	-> {"action": "get_balance", "payload": {"address": "0x...", "wallet_address": "0x...", "wallet_id": "..."}}
//	<- {"success": true, "result": {"balance": "12.5"}}
//	<- {"success": false, "error": "insufficient funds for transaction"}
//
// # Components
//
//   - Dialer / UnixDialer: one connection per call, bounded by the call
//     context and a response size limit.
//   - Client: a session bound to one wallet. It validates arguments, injects
//     the wallet address and id, sends the request and converts the result.
//   - Schema: the table of every action the daemon understands, with its
//     arguments, defaults and validation rules (actions.yaml).
//   - Error: a closed set of failure kinds, matchable with errors.Is against
//     ErrConnectionFailure, ErrProtocolFailure, ErrValidation,
//     ErrWalletBinding, ErrTransaction and ErrDecryptionFailed.
//
// # Sessions
//
// A Client starts Unbound. CreateWallet encrypts the mnemonic, registers it
// with the daemon and binds the session to the returned address. Every other
// action requires a bound session and fails locally otherwise:
//
//	client := rpc.NewClient(rpc.NewUnixDialer(rpc.DefaultUnixDialerConfig), cipher,
//	    rpc.WithLogger(logger),
//	    rpc.WithMetrics(rpc.NewMetrics()))
//
//	if _, err := client.CreateWallet(ctx, mnemonic); err != nil {
//	    return err
//	}
//
//	tx, err := client.SendDEL(ctx, "0x...", decimal.RequireFromString("1.5"))
//	switch {
//	case errors.Is(err, rpc.ErrTransaction):
//	    // rejected on chain
//	case errors.Is(err, rpc.ErrConnectionFailure):
//	    // daemon unreachable; the session stays usable
//	}
//
// # Results
//
// Results are decoded with json.Number for plain numbers. Amounts the daemon
// encodes as {"type":"BigNumber","hex":"0x..."} are converted to
// decimal.Decimal by package bignum. Failures reported by the daemon are
// classified by Classify.
package rpc
