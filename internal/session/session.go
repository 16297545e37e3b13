// Package session keeps per-user wizard state between requests.
package session

import (
	"context"
	"encoding/json"
	"time"

	"launchpad/internal/errs"
	"launchpad/internal/model"
)

// DefaultTTL bounds how long an unconfirmed operation is kept.
const DefaultTTL = 30 * time.Minute

// Kind discriminates the payload variants. A user holds at most one payload per kind.
type Kind string

const (
	KindExecutePool  Kind = "execute_pool"
	KindLockPosition Kind = "lock_position"
	KindRenounce     Kind = "renounce"
)

// Payload is a tagged union: exactly the field named by Kind is set.
type Payload struct {
	Kind         Kind                   `json:"kind"`
	ExecutePool  *model.PreparedPool    `json:"execute_pool,omitempty"`
	LockPosition *model.LockAttempt     `json:"lock_position,omitempty"`
	Renounce     *model.RenounceAttempt `json:"renounce,omitempty"`
}

func ExecutePool(p model.PreparedPool) Payload {
	return Payload{Kind: KindExecutePool, ExecutePool: &p}
}

func LockPosition(a *model.LockAttempt) Payload {
	return Payload{Kind: KindLockPosition, LockPosition: a}
}

func Renounce(a *model.RenounceAttempt) Payload {
	return Payload{Kind: KindRenounce, Renounce: a}
}

// Validate checks that the variant matches Kind.
func (p Payload) Validate() error {
	set := 0
	for _, ok := range []bool{p.ExecutePool != nil, p.LockPosition != nil, p.Renounce != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return errs.Newf(errs.UserInput, "session payload", "%s payload must carry exactly one variant, got %d", p.Kind, set)
	}
	switch {
	case p.Kind == KindExecutePool && p.ExecutePool != nil,
		p.Kind == KindLockPosition && p.LockPosition != nil,
		p.Kind == KindRenounce && p.Renounce != nil:
		return nil
	}
	return errs.Newf(errs.UserInput, "session payload", "unknown or mismatched payload kind %q", p.Kind)
}

// clone deep-copies the variant so stored state is never shared with callers.
func (p Payload) clone() Payload {
	out := Payload{Kind: p.Kind}
	if p.ExecutePool != nil {
		v := *p.ExecutePool
		out.ExecutePool = &v
	}
	if p.LockPosition != nil {
		v := *p.LockPosition
		if v.Fee != nil {
			fee := *v.Fee
			v.Fee = &fee
		}
		out.LockPosition = &v
	}
	if p.Renounce != nil {
		v := *p.Renounce
		if v.Result != nil {
			result := *v.Result
			v.Result = &result
		}
		out.Renounce = &v
	}
	return out
}

// Decode parses and validates a stored payload.
func Decode(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, errs.Wrap(errs.UserInput, "decode session payload", err)
	}
	if err := p.Validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}

// Store holds payloads keyed by (user, kind). Missing or expired entries yield errs.NotFound.
type Store interface {
	Get(ctx context.Context, userID string, kind Kind) (Payload, error)
	Put(ctx context.Context, userID string, payload Payload) error
	Delete(ctx context.Context, userID string, kind Kind) error
	// Take returns and removes the payload so it can be consumed once.
	Take(ctx context.Context, userID string, kind Kind) (Payload, error)
}

func notFound(op, userID string, kind Kind) error {
	return errs.Newf(errs.NotFound, op, "no pending %s for user %s", kind, userID)
}
