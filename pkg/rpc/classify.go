package rpc

import "strings"

// classificationRules map keywords of a daemon error message to error kinds.
// They are tried in order; the first match wins.
var classificationRules = []struct {
	keyword string
	kind    ErrorKind
}{
	{keyword: "transaction", kind: KindTransaction},
	{keyword: "wallet", kind: KindWalletBinding},
	{keyword: "validation", kind: KindValidation},
}

// Classify turns a failure reported by the daemon into a typed error.
//
// When the daemon supplies a machine-readable code naming a known kind, that
// kind is used. Otherwise the message is searched case-insensitively for the
// keywords "transaction", "wallet" and "validation", in that order. This is a
// heuristic: a message mentioning both a wallet and a transaction is a
// TransactionError. Messages matching nothing are a generic ProtocolFailure.
//
// The returned error's Message is the daemon's message unchanged.
func Classify(message, code string) *Error {
	if kind, ok := kindFromCode(code); ok {
		return newError(kind, nil, "%s", message)
	}

	lower := strings.ToLower(message)
	for _, rule := range classificationRules {
		if strings.Contains(lower, rule.keyword) {
			return newError(rule.kind, nil, "%s", message)
		}
	}

	return newError(KindProtocolFailure, nil, "%s", message)
}

func kindFromCode(code string) (ErrorKind, bool) {
	switch kind := ErrorKind(strings.ToLower(strings.TrimSpace(code))); kind {
	case KindConnectionFailure, KindProtocolFailure, KindValidation, KindWalletBinding, KindTransaction, KindDecryptionFailed:
		return kind, true
	default:
		return "", false
	}
}
