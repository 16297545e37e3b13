package pool

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"launchpad/internal/chain"
	"launchpad/internal/contracts"
	"launchpad/internal/errs"
	"launchpad/internal/model"
	"launchpad/internal/tickmath"
	"launchpad/internal/units"
)

// plan is one attempt's pool initialization parameters.
type plan struct {
	ticks        model.TickRange
	sqrtPriceX96 *big.Int
}

// execution carries the resolved request across the steps of Execute.
type execution struct {
	req       model.PoolCreationRequest
	account   chain.Account
	token     common.Address
	token0    common.Address
	token1    common.Address
	isToken0  bool
	tokenWei  *big.Int
	nativeWei *big.Int
	amount0   *big.Int
	amount1   *big.Int
}

// Execute creates the pool if needed and mints full-range liquidity in one multicall.
// Every outcome is returned as a result and appended to the pool history.
func (o *Orchestrator) Execute(ctx context.Context, req model.PoolCreationRequest) model.PoolCreationResult {
	result := o.execute(ctx, req)

	record := model.PoolRecord{
		ID:           o.newID(),
		UserID:       req.UserID,
		Network:      o.cfg.Network,
		TokenAddress: req.TokenAddress,
		PoolAddress:  result.PoolAddress,
		TokenAmount:  req.TokenAmount,
		NativeAmount: req.NativeAmount,
		Stage:        model.StageExecuted,
		Status:       result.Status,
		PositionID:   result.PositionID,
		TxHash:       result.TxHash,
		RetryUsed:    result.RetryUsed,
		Error:        result.Error,
		CreatedAt:    o.now().UTC(),
	}
	if common.IsHexAddress(req.TokenAddress) {
		record.TokenAddress = common.HexToAddress(req.TokenAddress).Hex()
	}
	o.record(ctx, record)

	fields := []zap.Field{
		zap.String("user_id", req.UserID),
		zap.String("status", string(result.Status)),
		zap.String("tx_hash", result.TxHash),
		zap.Bool("retry_used", result.RetryUsed),
	}
	if result.Succeeded() {
		o.logger.Info("pool created", append(fields, zap.String("pool", result.PoolAddress), zap.String("position_id", result.PositionID))...)
	} else {
		o.logger.Warn("pool creation failed", append(fields, zap.String("error", result.Error))...)
	}
	return result
}

func (o *Orchestrator) execute(ctx context.Context, req model.PoolCreationRequest) model.PoolCreationResult {
	token, err := o.validate(req)
	if err != nil {
		return failed(err, "")
	}
	account, err := o.account(ctx, req.UserID)
	if err != nil {
		return failed(err, "")
	}

	ex := execution{
		req:       req,
		account:   account,
		token:     token,
		tokenWei:  units.ToWei(req.TokenAmount, units.EtherDecimals),
		nativeWei: units.ToWei(req.NativeAmount, units.EtherDecimals),
	}
	ex.token0, ex.token1 = SortTokens(token, o.cfg.WrappedNative)
	ex.isToken0 = ex.token0 == token
	if ex.isToken0 {
		ex.amount0, ex.amount1 = ex.tokenWei, ex.nativeWei
	} else {
		ex.amount0, ex.amount1 = ex.nativeWei, ex.tokenWei
	}

	if err := o.ensureAllowance(ctx, ex); err != nil {
		return failed(err, "")
	}

	poolAddr, err := o.factory.GetPool(ctx, ex.token0, ex.token1, tickmath.FeeTier)
	if err != nil {
		return failed(err, "")
	}
	exists := poolAddr != (common.Address{})

	first := plan{
		ticks:        tickmath.ComputeTicks(tickmath.FeeTier),
		sqrtPriceX96: tickmath.SqrtPriceX96(tickmath.PriceFromAmounts(ex.amount0, ex.amount1)),
	}
	sub, err := o.submit(ctx, ex, exists, first)

	retryUsed := false
	if err != nil && retryable(err) {
		o.logger.Warn("pool creation failed on tick or liquidity, retrying with full range at 1:1",
			zap.String("user_id", req.UserID), zap.Error(err))
		retryUsed = true
		fallback := plan{
			ticks:        tickmath.FullRange(tickmath.TickSpacing(tickmath.FeeTier)),
			sqrtPriceX96: new(big.Int).Set(tickmath.Q96),
		}
		retrySub, retryErr := o.submit(ctx, ex, exists, fallback)
		if retryErr != nil {
			combined := errors.Wrapf(retryErr, "initial attempt: %v; retry", err)
			res := failed(combined, hashOf(retrySub))
			res.RetryUsed = true
			return res
		}
		sub, err = retrySub, nil
	}
	if err != nil {
		return failed(err, hashOf(sub))
	}

	result := model.PoolCreationResult{TxHash: sub.Hash.Hex(), RetryUsed: retryUsed}
	if !sub.Succeeded() {
		reason := chain.RevertReason(ctx, o.gw, ex.account.Address, sub.Tx, sub.Receipt.BlockNumber)
		msg := "tx " + result.TxHash
		if reason != "" {
			msg += ": " + reason
		}
		result.Status = model.StatusFailed
		result.Cause = errs.New(errs.Reverted, "create pool", msg)
		result.Error = result.Cause.Error()
		return result
	}

	result.Status = model.StatusSuccess
	if id, ok := contracts.ExtractPositionID(sub.Receipt.Logs, o.cfg.PositionManager); ok {
		result.PositionID = id.String()
	} else {
		o.logger.Warn("position id not found in receipt logs", zap.String("tx_hash", result.TxHash))
	}

	if final, err := o.factory.GetPool(ctx, ex.token0, ex.token1, tickmath.FeeTier); err == nil && final != (common.Address{}) {
		result.PoolAddress = final.Hex()
	} else if exists {
		result.PoolAddress = poolAddr.Hex()
	}
	return result
}

// ensureAllowance approves twice the token amount to the position manager when the allowance is short.
func (o *Orchestrator) ensureAllowance(ctx context.Context, ex execution) error {
	erc20, err := contracts.NewERC20(ex.token, o.gw)
	if err != nil {
		return err
	}
	allowance, err := erc20.Allowance(ctx, ex.account.Address, o.cfg.PositionManager)
	if err != nil {
		return err
	}
	if allowance.Cmp(ex.tokenWei) >= 0 {
		return nil
	}

	amount := new(big.Int).Mul(ex.tokenWei, big.NewInt(2))
	sub, err := o.submitter.Submit(ctx, ex.account, func(ctx context.Context) (*types.Transaction, error) {
		return chain.BuildTransaction(ctx, erc20.Contract, "approve", []interface{}{o.cfg.PositionManager, amount}, chain.Overrides{
			From:       ex.account.Address,
			GasLimit:   ApproveGasLimit,
			NonceRetry: o.cfg.NonceRetry,
		})
	}, o.cfg.ApprovalTimeout)
	if err != nil {
		return errors.Wrap(err, "token approval")
	}
	if !sub.Succeeded() {
		return errs.Newf(errs.Reverted, "token approval", "approval transaction %s reverted", sub.Hash.Hex())
	}
	o.logger.Info("token approved for position manager",
		zap.String("token", ex.token.Hex()),
		zap.String("amount", amount.String()),
		zap.String("tx_hash", sub.Hash.Hex()),
	)
	return nil
}

// submit builds the multicall for p and sends it with a fresh nonce.
func (o *Orchestrator) submit(ctx context.Context, ex execution, exists bool, p plan) (*chain.Submission, error) {
	calls := make([][]byte, 0, 2)
	if !exists {
		create, err := o.manager.Pack("createAndInitializePoolIfNecessary",
			ex.token0, ex.token1, big.NewInt(int64(tickmath.FeeTier)), p.sqrtPriceX96)
		if err != nil {
			return nil, err
		}
		calls = append(calls, create)
	}

	mint, err := o.manager.Pack("mint", contracts.MintParams{
		Token0:         ex.token0,
		Token1:         ex.token1,
		Fee:            big.NewInt(int64(tickmath.FeeTier)),
		TickLower:      big.NewInt(int64(p.ticks.MinTick)),
		TickUpper:      big.NewInt(int64(p.ticks.MaxTick)),
		Amount0Desired: ex.amount0,
		Amount1Desired: ex.amount1,
		Amount0Min:     new(big.Int),
		Amount1Min:     new(big.Int),
		Recipient:      ex.account.Address,
		Deadline:       big.NewInt(o.now().Add(MintDeadline).Unix()),
	})
	if err != nil {
		return nil, err
	}
	calls = append(calls, mint)

	value := new(big.Int)
	if !ex.isToken0 {
		value = ex.nativeWei
	}

	return o.submitter.Submit(ctx, ex.account, func(ctx context.Context) (*types.Transaction, error) {
		return chain.BuildTransaction(ctx, o.manager.Contract, "multicall", []interface{}{calls}, chain.Overrides{
			From:       ex.account.Address,
			Value:      value,
			GasLimit:   ExecuteGasLimit,
			DynamicFee: true,
			NonceRetry: o.cfg.NonceRetry,
		})
	}, o.cfg.ReceiptTimeout)
}

// retryable matches failures mentioning ticks or liquidity. Pending transactions are never retried.
func retryable(err error) bool {
	if errors.Is(err, errs.PendingTimeout) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "tick") || strings.Contains(msg, "liquidity")
}

func failed(err error, txHash string) model.PoolCreationResult {
	status := model.StatusFailed
	if errors.Is(err, errs.PendingTimeout) {
		status = model.StatusPending
	}
	return model.PoolCreationResult{
		Status: status,
		TxHash: txHash,
		Error:  fmt.Sprint(err),
		Cause:  err,
	}
}

func hashOf(sub *chain.Submission) string {
	if sub == nil {
		return ""
	}
	return sub.Hash.Hex()
}
