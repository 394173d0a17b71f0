// Package bignum converts the wallet daemon's big-number encoding into
// decimal amounts.
//
// The daemon serializes chain amounts as {"type":"BigNumber","hex":"0x..."}
// holding an integer count of 10^-18 units. Normalize replaces every such node
// in a decoded JSON tree with a decimal.Decimal rounded to six places.
package bignum
