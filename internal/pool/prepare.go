package pool

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"launchpad/internal/errs"
	"launchpad/internal/model"
	"launchpad/internal/tickmath"
	"launchpad/internal/units"
)

func newRecordID() string {
	return uuid.NewString()
}

// Prepare validates a pool creation and quotes its cost without touching chain state.
func (o *Orchestrator) Prepare(ctx context.Context, req model.PoolCreationRequest) (model.PreparedPool, error) {
	token, err := o.validate(req)
	if err != nil {
		return model.PreparedPool{}, err
	}
	account, err := o.account(ctx, req.UserID)
	if err != nil {
		return model.PreparedPool{}, err
	}

	token0, token1 := SortTokens(token, o.cfg.WrappedNative)
	isToken0 := token0 == token
	amount0, amount1 := req.NativeAmount, req.TokenAmount
	if isToken0 {
		amount0, amount1 = req.TokenAmount, req.NativeAmount
	}

	poolAddr, err := o.factory.GetPool(ctx, token0, token1, tickmath.FeeTier)
	if err != nil {
		return model.PreparedPool{}, err
	}
	exists := poolAddr != (common.Address{})

	gasPrice, err := o.gw.GasPrice(ctx)
	if err != nil {
		return model.PreparedPool{}, err
	}
	balance, err := o.gw.Balance(ctx, account.Address)
	if err != nil {
		return model.PreparedPool{}, err
	}

	nativeWei := units.ToWei(req.NativeAmount, units.EtherDecimals)
	gasCost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(PrepareGasLimit))
	totalCost := new(big.Int).Add(gasCost, nativeWei)
	if err := checkBalance(balance, gasCost, nativeWei, o.cfg.NativeSymbol); err != nil {
		o.logger.Info("prepare rejected",
			zap.String("user_id", req.UserID),
			zap.String("balance", units.FormatWei(balance)),
			zap.String("required", units.FormatWei(totalCost)),
		)
		return model.PreparedPool{}, err
	}

	prepared := model.PreparedPool{
		Network:         o.cfg.Network,
		From:            account.Address.Hex(),
		TokenAddress:    token.Hex(),
		WrappedNative:   o.cfg.WrappedNative.Hex(),
		Token0:          token0.Hex(),
		Token1:          token1.Hex(),
		IsToken0:        isToken0,
		Amount0:         amount0,
		Amount1:         amount1,
		TokenAmount:     req.TokenAmount,
		NativeAmount:    req.NativeAmount,
		Fee:             tickmath.FeeTier,
		PoolExists:      exists,
		GasPriceWei:     gasPrice.String(),
		GasLimit:        PrepareGasLimit,
		TransactionCost: units.FromWei(gasCost, units.EtherDecimals),
		TotalCost:       units.FromWei(totalCost, units.EtherDecimals),
		CurrentBalance:  units.FromWei(balance, units.EtherDecimals),
		NativeSymbol:    o.cfg.NativeSymbol,
	}
	if exists {
		prepared.PoolAddress = poolAddr.Hex()
	}

	o.record(ctx, model.PoolRecord{
		ID:           o.newID(),
		UserID:       req.UserID,
		Network:      o.cfg.Network,
		TokenAddress: token.Hex(),
		PoolAddress:  prepared.PoolAddress,
		TokenAmount:  req.TokenAmount,
		NativeAmount: req.NativeAmount,
		Stage:        model.StagePrepared,
		CreatedAt:    o.now().UTC(),
	})

	o.logger.Info("pool prepared",
		zap.String("user_id", req.UserID),
		zap.String("token", token.Hex()),
		zap.Bool("pool_exists", exists),
		zap.Bool("is_token0", isToken0),
	)
	return prepared, nil
}

// checkBalance reports the gas-only shortfall before the gas plus liquidity shortfall.
func checkBalance(balance, gasCost, nativeWei *big.Int, currency string) error {
	if balance.Cmp(gasCost) < 0 {
		return &errs.InsufficientBalanceError{
			Check:    errs.BalanceCheckGas,
			Balance:  balance,
			Required: gasCost,
			Gas:      gasCost,
			Currency: currency,
		}
	}
	total := new(big.Int).Add(gasCost, nativeWei)
	if balance.Cmp(total) < 0 {
		return &errs.InsufficientBalanceError{
			Check:     errs.BalanceCheckGasLiquidity,
			Balance:   balance,
			Required:  total,
			Gas:       gasCost,
			Liquidity: nativeWei,
			Currency:  currency,
		}
	}
	return nil
}
