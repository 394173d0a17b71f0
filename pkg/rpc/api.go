package rpc

import (
	"context"

	"github.com/shopspring/decimal"
)

// Daemon actions with typed helpers on Client. Every other action is
// reachable through Client.Call with its name from the schema.
const (
	IsWalletRegisteredAction = "is_wallet_registered"
	SendDELAction            = "send_del"
	BurnDELAction            = "burn_del"
	DelegateDELAction        = "delegate_del"
	GetBalanceAction         = "get_balance"
)

// CreateWalletResult is the result of wallet creation.
type CreateWalletResult struct {
	// Success is the daemon's own success flag.
	Success bool `json:"success"`
	// WalletID is the id the daemon stored the wallet under.
	WalletID string `json:"wallet_id"`
	// Address is the 0x-prefixed address of the created wallet.
	Address string `json:"address"`
}

// WalletRegistration reports whether the daemon holds a wallet for the
// session wallet id.
type WalletRegistration struct {
	Success    bool   `json:"success"`
	Registered bool   `json:"registered"`
	Message    string `json:"message"`
}

// TxResult summarizes a submitted transaction.
type TxResult struct {
	// Success is false when the daemon accepted the call but reported the
	// transaction as unsuccessful.
	Success bool `json:"success"`
	// TransactionHash is the hash of the submitted transaction.
	TransactionHash string `json:"transactionHash"`
	// TotalAmount is the delegated amount including hold bonuses; only set
	// by delegation.
	TotalAmount *decimal.Decimal `json:"totalAmount,omitempty"`
}

// BalanceResult holds an account balance in DEL.
type BalanceResult struct {
	Balance decimal.Decimal `json:"balance"`
}

// IsWalletRegistered asks the daemon whether it still holds the session
// wallet.
func (c *Client) IsWalletRegistered(ctx context.Context) (WalletRegistration, error) {
	var res WalletRegistration
	if err := c.CallInto(ctx, IsWalletRegisteredAction, nil, &res); err != nil {
		return WalletRegistration{}, err
	}
	return res, nil
}

// SendDEL transfers amount DEL from the bound wallet to the address to.
func (c *Client) SendDEL(ctx context.Context, to string, amount decimal.Decimal) (TxResult, error) {
	var res TxResult
	if err := c.CallInto(ctx, SendDELAction, map[string]any{
		"to":     to,
		"amount": amount,
	}, &res); err != nil {
		return TxResult{}, err
	}
	return res, nil
}

// BurnDEL burns amount DEL from the bound wallet. The amount must be
// positive.
func (c *Client) BurnDEL(ctx context.Context, amount decimal.Decimal) (TxResult, error) {
	var res TxResult
	if err := c.CallInto(ctx, BurnDELAction, map[string]any{
		"amount": amount,
	}, &res); err != nil {
		return TxResult{}, err
	}
	return res, nil
}

// DelegateDEL delegates amount DEL to validator. A positive days value puts
// the stake on hold for that many days.
func (c *Client) DelegateDEL(ctx context.Context, validator string, amount decimal.Decimal, days int) (TxResult, error) {
	var res TxResult
	if err := c.CallInto(ctx, DelegateDELAction, map[string]any{
		"validator": validator,
		"amount":    amount,
		"days":      days,
	}, &res); err != nil {
		return TxResult{}, err
	}
	return res, nil
}

// GetBalance returns the DEL balance of address.
func (c *Client) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	var res BalanceResult
	if err := c.CallInto(ctx, GetBalanceAction, map[string]any{
		"address": address,
	}, &res); err != nil {
		return decimal.Decimal{}, err
	}
	return res.Balance, nil
}
