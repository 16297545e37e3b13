package errs

import (
	"fmt"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/withstack"

	"launchpad/internal/units"
)

// ErrorKind identifies a class of failure.
// Supports errors.Is against any error produced by this package.
type ErrorKind string

const (
	UserInput           = ErrorKind("invalid input")
	NoWallet            = ErrorKind("no wallet found for user")
	InsufficientBalance = ErrorKind("insufficient balance")
	ChainUnavailable    = ErrorKind("chain unavailable")
	RPCError            = ErrorKind("rpc error")
	PendingTimeout      = ErrorKind("transaction pending")
	Reverted            = ErrorKind("transaction reverted")
	NotApproved         = ErrorKind("position not approved for locker")
	NotFound            = ErrorKind("not found")
	InvalidTransition   = ErrorKind("invalid state transition")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error is a classified error carrying the operation that produced it.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	kind, ok := target.(ErrorKind)
	return ok && kind == e.Kind
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	return withstack.WithStackDepth(&Error{Kind: kind, Op: op, Err: err}, 1)
}

// New returns a classified error with a message instead of a cause.
func New(kind ErrorKind, op string, message string) error {
	return withstack.WithStackDepth(&Error{Kind: kind, Op: op, Err: errors.New(message)}, 1)
}

// Newf is New with formatting.
func Newf(kind ErrorKind, op string, format string, args ...interface{}) error {
	return withstack.WithStackDepth(&Error{Kind: kind, Op: op, Err: errors.Newf(format, args...)}, 1)
}

var kinds = []ErrorKind{
	UserInput, NoWallet, InsufficientBalance, ChainUnavailable, RPCError,
	PendingTimeout, Reverted, NotApproved, NotFound, InvalidTransition,
}

// KindOf returns the first ErrorKind found in the chain, or "".
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ""
}

// BalanceCheck names which balance requirement failed.
type BalanceCheck string

const (
	BalanceCheckGas          BalanceCheck = "gas"
	BalanceCheckGasLiquidity BalanceCheck = "gas+liquidity"
)

// InsufficientBalanceError reports the exact shortfall of a wallet, all values in wei.
type InsufficientBalanceError struct {
	Check     BalanceCheck
	Balance   *big.Int
	Required  *big.Int
	Gas       *big.Int
	Liquidity *big.Int
	Currency  string
}

// Shortfall is Required - Balance.
func (e *InsufficientBalanceError) Shortfall() *big.Int {
	return new(big.Int).Sub(e.Required, e.Balance)
}

func (e *InsufficientBalanceError) Error() string {
	if e.Check == BalanceCheckGas {
		return fmt.Sprintf("insufficient balance: need %s %s for gas fees, have %s (short %s)",
			units.FormatWei(e.Required), e.Currency, units.FormatWei(e.Balance), units.FormatWei(e.Shortfall()))
	}
	return fmt.Sprintf("insufficient balance: need %s %s for liquidity plus %s %s for gas (total %s), have %s (short %s)",
		units.FormatWei(e.Liquidity), e.Currency, units.FormatWei(e.Gas), e.Currency, units.FormatWei(e.Required),
		units.FormatWei(e.Balance), units.FormatWei(e.Shortfall()))
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == InsufficientBalance
}

// PendingTimeoutError is returned when a receipt was not observed in time.
// The transaction itself may still succeed.
type PendingTimeoutError struct {
	TxHash  string
	Timeout time.Duration
}

func (e *PendingTimeoutError) Error() string {
	return fmt.Sprintf("transaction %s not confirmed within %s", e.TxHash, e.Timeout)
}

func (e *PendingTimeoutError) Is(target error) bool {
	return target == PendingTimeout
}
