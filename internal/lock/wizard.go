package lock

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"launchpad/internal/chain"
	"launchpad/internal/errs"
	"launchpad/internal/model"
	"launchpad/internal/session"
	"launchpad/internal/worker"
)

// storeTimeout bounds session writes made after a background confirmation.
const storeTimeout = 5 * time.Second

// Wizard walks a user through approve-then-lock, one attempt per user.
// Attempts live in the session store; receipt waits run on the worker.
type Wizard struct {
	lockers  map[string]*Locker
	wallets  chain.WalletSource
	sessions session.Store
	runner   *worker.Runner
	users    *xsync.Map[string, *sync.Mutex]
	logger   *zap.Logger
	now      func() time.Time
}

func NewWizard(lockers map[string]*Locker, wallets chain.WalletSource, sessions session.Store, runner *worker.Runner, logger *zap.Logger) *Wizard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wizard{
		lockers:  lockers,
		wallets:  wallets,
		sessions: sessions,
		runner:   runner,
		users:    xsync.NewMap[string, *sync.Mutex](),
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source used for attempt timestamps.
func (w *Wizard) WithClock(now func() time.Time) *Wizard {
	w.now = now
	return w
}

func taskKey(userID string) string {
	return userID + ":lock"
}

func (w *Wizard) lockUser(userID string) func() {
	mu, _ := w.users.LoadOrStore(userID, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}

func (w *Wizard) locker(network string) (*Locker, error) {
	l, ok := w.lockers[strings.ToLower(network)]
	if !ok {
		return nil, errs.Newf(errs.UserInput, "lock wizard", "unsupported network %q", network)
	}
	return l, nil
}

func (w *Wizard) load(ctx context.Context, userID string) (*model.LockAttempt, error) {
	payload, err := w.sessions.Get(ctx, userID, session.KindLockPosition)
	if err != nil {
		return nil, err
	}
	return payload.LockPosition, nil
}

func (w *Wizard) save(ctx context.Context, attempt *model.LockAttempt) error {
	return w.sessions.Put(ctx, attempt.UserID, session.LockPosition(attempt))
}

// Status returns the user's current attempt.
func (w *Wizard) Status(ctx context.Context, userID string) (*model.LockAttempt, error) {
	return w.load(ctx, userID)
}

// Start opens a new attempt for positionID, replacing any attempt that has not reached LOCK_SENT.
func (w *Wizard) Start(ctx context.Context, userID, network, positionID string) (*model.LockAttempt, error) {
	unlock := w.lockUser(userID)
	defer unlock()

	if _, err := w.locker(network); err != nil {
		return nil, err
	}
	if err := validatePositionID(positionID); err != nil {
		return nil, err
	}
	account, err := chain.ResolveAccount(ctx, w.wallets, userID)
	if err != nil {
		return nil, err
	}
	if current, err := w.load(ctx, userID); err == nil && current.State == model.LockSent {
		return nil, &model.InvalidTransitionError{From: current.State, To: model.LockSelectPosition}
	}
	w.runner.Cancel(taskKey(userID))

	attempt := &model.LockAttempt{
		ID:        uuid.NewString(),
		UserID:    userID,
		Network:   strings.ToLower(network),
		Wallet:    account.Address.Hex(),
		State:     model.LockSelectPosition,
		UpdatedAt: w.now(),
	}
	attempt.PositionID = strings.TrimSpace(positionID)
	if err := attempt.Transition(model.LockSelectDuration, w.now()); err != nil {
		return nil, err
	}
	return attempt, w.save(ctx, attempt)
}

// ChangePosition goes back from duration selection to pick another position.
func (w *Wizard) ChangePosition(ctx context.Context, userID, positionID string) (*model.LockAttempt, error) {
	unlock := w.lockUser(userID)
	defer unlock()

	attempt, err := w.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := validatePositionID(positionID); err != nil {
		return nil, err
	}
	if err := attempt.Transition(model.LockSelectPosition, w.now()); err != nil {
		return nil, err
	}
	attempt.PositionID = strings.TrimSpace(positionID)
	if err := attempt.Transition(model.LockSelectDuration, w.now()); err != nil {
		return nil, err
	}
	return attempt, w.save(ctx, attempt)
}

// SelectDuration records the lock duration and checks whether the locker is already approved.
func (w *Wizard) SelectDuration(ctx context.Context, userID string, days int) (*model.LockAttempt, error) {
	unlock := w.lockUser(userID)
	defer unlock()

	attempt, err := w.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := ValidateDuration(days); err != nil {
		return nil, err
	}
	locker, err := w.locker(attempt.Network)
	if err != nil {
		return nil, err
	}
	if err := attempt.Transition(model.LockCheckApproval, w.now()); err != nil {
		return nil, err
	}
	attempt.DurationDays = days

	approved, err := locker.IsApproved(ctx, common.HexToAddress(attempt.Wallet))
	switch {
	case err != nil:
		attempt.Error = err.Error()
		_ = attempt.Transition(model.LockFailed, w.now())
	case approved:
		w.readyToLock(ctx, locker, attempt)
	default:
		_ = attempt.Transition(model.LockApprovalRequired, w.now())
	}
	if saveErr := w.save(ctx, attempt); saveErr != nil {
		return nil, saveErr
	}
	return attempt, err
}

// Approve sends setApprovalForAll in the background.
func (w *Wizard) Approve(ctx context.Context, userID string) (*model.LockAttempt, error) {
	return w.sendApproval(ctx, userID)
}

// RetryApproval resends the approval of an attempt whose previous approval is still pending.
func (w *Wizard) RetryApproval(ctx context.Context, userID string) (*model.LockAttempt, error) {
	return w.sendApproval(ctx, userID)
}

func (w *Wizard) sendApproval(ctx context.Context, userID string) (*model.LockAttempt, error) {
	unlock := w.lockUser(userID)
	defer unlock()

	attempt, err := w.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	locker, err := w.locker(attempt.Network)
	if err != nil {
		return nil, err
	}
	account, err := chain.ResolveAccount(ctx, w.wallets, userID)
	if err != nil {
		return nil, err
	}
	if err := attempt.Transition(model.LockApproveSent, w.now()); err != nil {
		return nil, err
	}
	attempt.Error = ""
	if err := w.save(ctx, attempt); err != nil {
		return nil, err
	}

	attemptID := attempt.ID
	_, err = w.runner.Go(taskKey(userID), func(taskCtx context.Context) error {
		result, sendErr := locker.SendApproval(taskCtx, account)
		if errors.Is(sendErr, context.Canceled) {
			return sendErr
		}
		w.update(taskCtx, userID, attemptID, func(a *model.LockAttempt) {
			a.ApprovalTx = result.TxHash
			switch {
			case sendErr == nil:
				_ = a.Transition(model.LockApproveConfirmed, w.now())
				w.readyToLock(taskCtx, locker, a)
			case result.Status == model.StatusPending:
				a.Error = sendErr.Error()
				_ = a.Transition(model.LockApprovalPending, w.now())
			default:
				a.Error = sendErr.Error()
				_ = a.Transition(model.LockFailed, w.now())
			}
		})
		return sendErr
	})
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// RecheckApproval re-reads the approval of a pending attempt and moves on once it is confirmed.
func (w *Wizard) RecheckApproval(ctx context.Context, userID string) (*model.LockAttempt, error) {
	unlock := w.lockUser(userID)
	defer unlock()

	attempt, err := w.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if attempt.State != model.LockApprovalPending {
		return nil, &model.InvalidTransitionError{From: attempt.State, To: model.LockApproveConfirmed}
	}
	locker, err := w.locker(attempt.Network)
	if err != nil {
		return nil, err
	}
	approved, err := locker.IsApproved(ctx, common.HexToAddress(attempt.Wallet))
	if err != nil {
		return nil, err
	}
	if !approved {
		return attempt, nil
	}
	if err := attempt.Transition(model.LockApproveConfirmed, w.now()); err != nil {
		return nil, err
	}
	attempt.Error = ""
	w.readyToLock(ctx, locker, attempt)
	return attempt, w.save(ctx, attempt)
}

// ForceContinue skips waiting for a pending approval. The lock itself still refuses to build without approval.
func (w *Wizard) ForceContinue(ctx context.Context, userID string) (*model.LockAttempt, error) {
	unlock := w.lockUser(userID)
	defer unlock()

	attempt, err := w.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	locker, err := w.locker(attempt.Network)
	if err != nil {
		return nil, err
	}
	if attempt.State != model.LockApprovalPending {
		return nil, &model.InvalidTransitionError{From: attempt.State, To: model.LockConfirm}
	}
	attempt.Error = ""
	w.readyToLock(ctx, locker, attempt)
	return attempt, w.save(ctx, attempt)
}

// Confirm sends the lock transaction in the background.
func (w *Wizard) Confirm(ctx context.Context, userID string) (*model.LockAttempt, error) {
	unlock := w.lockUser(userID)
	defer unlock()

	attempt, err := w.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	locker, err := w.locker(attempt.Network)
	if err != nil {
		return nil, err
	}
	account, err := chain.ResolveAccount(ctx, w.wallets, userID)
	if err != nil {
		return nil, err
	}
	if err := attempt.Transition(model.LockSent, w.now()); err != nil {
		return nil, err
	}
	if err := w.save(ctx, attempt); err != nil {
		return nil, err
	}

	req := model.LockRequest{
		WalletAddress: attempt.Wallet,
		PositionID:    attempt.PositionID,
		DurationDays:  attempt.DurationDays,
	}
	attemptID := attempt.ID
	_, err = w.runner.Go(taskKey(userID), func(taskCtx context.Context) error {
		result, sendErr := locker.SendLock(taskCtx, account, req)
		w.update(taskCtx, userID, attemptID, func(a *model.LockAttempt) {
			a.LockTx = result.TxHash
			if !result.UnlockDate.IsZero() {
				a.UnlockDate = result.UnlockDate
			}
			if result.Fee.Wei != "" {
				fee := result.Fee
				a.Fee = &fee
			}
			if sendErr != nil {
				a.Error = result.Error
				if a.Error == "" {
					a.Error = sendErr.Error()
				}
				_ = a.Transition(model.LockFailed, w.now())
				return
			}
			_ = a.Transition(model.LockConfirmed, w.now())
		})
		return sendErr
	})
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// Cancel abandons the attempt and clears the session. A lock already sent cannot be cancelled.
func (w *Wizard) Cancel(ctx context.Context, userID string) (*model.LockAttempt, error) {
	unlock := w.lockUser(userID)
	defer unlock()

	attempt, err := w.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !attempt.State.Terminal() {
		if err := attempt.Transition(model.LockCancelled, w.now()); err != nil {
			return nil, err
		}
		w.runner.Cancel(taskKey(userID))
	}
	return attempt, w.sessions.Delete(ctx, userID, session.KindLockPosition)
}

// readyToLock quotes the fee and moves the attempt to LOCK_CONFIRM.
func (w *Wizard) readyToLock(ctx context.Context, locker *Locker, attempt *model.LockAttempt) {
	fee := locker.LockFee(ctx)
	attempt.Fee = &fee
	attempt.UnlockDate = time.Unix(model.LockRequest{DurationDays: attempt.DurationDays}.UnlockDate(w.now()), 0).UTC()
	_ = attempt.Transition(model.LockConfirm, w.now())
}

// update applies fn to the stored attempt if it is still the one the task was started for.
func (w *Wizard) update(ctx context.Context, userID, attemptID string, fn func(*model.LockAttempt)) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	unlock := w.lockUser(userID)
	defer unlock()

	attempt, err := w.load(ctx, userID)
	if err != nil || attempt.ID != attemptID {
		w.logger.Info("lock attempt gone, dropping background result", zap.String("user_id", userID), zap.String("attempt_id", attemptID))
		return
	}
	fn(attempt)
	if err := w.save(ctx, attempt); err != nil {
		w.logger.Error("save lock attempt failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func validatePositionID(positionID string) error {
	id, ok := new(big.Int).SetString(strings.TrimSpace(positionID), 10)
	if !ok || id.Sign() <= 0 {
		return errs.Newf(errs.UserInput, "lock wizard", "invalid position id %q", positionID)
	}
	return nil
}
