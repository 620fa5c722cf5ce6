// Package coexerr defines the closed error taxonomy the executor uses to
// decide, at each call site, whether to retry, drop an order, or fail the
// process. See spec.md §7 for the policy table this mirrors.
package coexerr

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Kind identifies which row of the §7 policy table an error belongs to.
type Kind int

const (
	// KindNetwork is a ChainClient transport failure. Caller retries with
	// back-off; propagated once the retry budget is exhausted.
	KindNetwork Kind = iota
	// KindProvider is a malformed RPC response. Fatal for the current block.
	KindProvider
	// KindContract is a reverted dry-call. The specific order is dropped.
	KindContract
	// KindDecode is a log that failed to decode under its declared schema.
	KindDecode
	// KindMarketMissing means a routing hop has no backing pool.
	KindMarketMissing
	// KindInsufficientFunds is a submit-step wallet-balance failure.
	KindInsufficientFunds
	// KindPendingChannelClosed means the reaper's channel is gone — fatal
	// for the process.
	KindPendingChannelClosed
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindProvider:
		return "provider"
	case KindContract:
		return "contract"
	case KindDecode:
		return "decode"
	case KindMarketMissing:
		return "market_missing"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindPendingChannelClosed:
		return "pending_channel_closed"
	default:
		return "unknown"
	}
}

// Error is the concrete error type carried through the executor. It wraps
// an underlying cause (if any) and classifies it by Kind so callers can
// switch on errors.As instead of string matching.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, msg string, err error) *Error {
	return &Error{Kind: k, Msg: msg, Err: err}
}

func Network(msg string, err error) error  { return newErr(KindNetwork, msg, err) }
func Provider(msg string, err error) error { return newErr(KindProvider, msg, err) }
func Contract(msg string, err error) error { return newErr(KindContract, msg, err) }
func Decode(msg string, err error) error   { return newErr(KindDecode, msg, err) }

// MarketDoesNotExistForPair reports a routing hop with no backing pool,
// carrying the unordered pair so callers can log it without re-deriving it.
type MarketDoesNotExistForPair struct {
	TokenA, TokenB common.Address
}

func (e *MarketDoesNotExistForPair) Error() string {
	return fmt.Sprintf("%s: market does not exist for pair (%s, %s)", KindMarketMissing, e.TokenA, e.TokenB)
}

func NewMarketDoesNotExistForPair(a, b common.Address) error {
	return &MarketDoesNotExistForPair{TokenA: a, TokenB: b}
}

// InsufficientWalletFunds is a fatal-for-the-submit error raised by the tx
// manager's submit step.
type InsufficientWalletFunds struct {
	Wallet common.Address
	Err    error
}

func (e *InsufficientWalletFunds) Error() string {
	return fmt.Sprintf("%s: insufficient wallet funds for %s: %v", KindInsufficientFunds, e.Wallet, e.Err)
}

func (e *InsufficientWalletFunds) Unwrap() error { return e.Err }

func NewInsufficientWalletFunds(wallet common.Address, err error) error {
	return &InsufficientWalletFunds{Wallet: wallet, Err: err}
}

// ErrPendingTxChannelClosed is returned by the reaper when its channel has
// been closed out from under it — fatal for the process per spec.md §7.
var ErrPendingTxChannelClosed = newErr(KindPendingChannelClosed, "pending tx channel closed", nil)

// Is reports whether err is (or wraps) a coexerr.Error of the given Kind.
func Is(err error, k Kind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == k
	}
	var mde *MarketDoesNotExistForPair
	if k == KindMarketMissing && errors.As(err, &mde) {
		return true
	}
	var iwf *InsufficientWalletFunds
	if k == KindInsufficientFunds && errors.As(err, &iwf) {
		return true
	}
	return false
}
