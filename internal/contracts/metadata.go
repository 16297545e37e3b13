package contracts

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"launchpad/internal/chain"
	"launchpad/internal/model"
	"launchpad/internal/units"
)

// FallbackSymbol is the degraded symbol: the first six characters of the checksummed address.
func FallbackSymbol(token common.Address) model.Symbol {
	return model.Symbol{Value: token.Hex()[:6], Degraded: true}
}

// FetchSymbol reads symbol() as string, then as bytes32, falling back to an address prefix. It never fails.
func FetchSymbol(ctx context.Context, gw chain.Gateway, token common.Address, logger *zap.Logger) model.Symbol {
	if logger == nil {
		logger = zap.NewNop()
	}
	if value, ok := readText(ctx, gw, token, "symbol", logger); ok {
		return model.Symbol{Value: value}
	}
	return FallbackSymbol(token)
}

// FetchSymbols resolves both symbols of a pair concurrently.
func FetchSymbols(ctx context.Context, gw chain.Gateway, token0, token1 common.Address, logger *zap.Logger) (model.Symbol, model.Symbol) {
	var sym0, sym1 model.Symbol
	var g errgroup.Group
	g.Go(func() error {
		sym0 = FetchSymbol(ctx, gw, token0, logger)
		return nil
	})
	g.Go(func() error {
		sym1 = FetchSymbol(ctx, gw, token1, logger)
		return nil
	})
	_ = g.Wait()
	return sym0, sym1
}

// FetchTokenMeta loads name, symbol and holder balance best-effort. Missing fields stay empty.
func FetchTokenMeta(ctx context.Context, gw chain.Gateway, token, holder common.Address, logger *zap.Logger) model.TokenMeta {
	if logger == nil {
		logger = zap.NewNop()
	}
	meta := model.TokenMeta{Address: token.Hex()}
	if name, ok := readText(ctx, gw, token, "name", logger); ok {
		meta.Name = name
	}
	if symbol, ok := readText(ctx, gw, token, "symbol", logger); ok {
		meta.Symbol = symbol
	}

	erc20, err := NewERC20(token, gw)
	if err != nil {
		return meta
	}
	if balance, err := erc20.BalanceOf(ctx, holder); err == nil {
		meta.Balance = units.FormatWei(balance)
	} else {
		logger.Debug("balanceOf call failed", zap.String("token", token.Hex()), zap.Error(err))
	}
	return meta
}

func readText(ctx context.Context, gw chain.Gateway, token common.Address, method string, logger *zap.Logger) (string, bool) {
	stringABI, err := ERC20ABI()
	if err != nil {
		return "", false
	}
	bytes32ABI, err := ERC20Bytes32ABI()
	if err != nil {
		return "", false
	}

	call := func(parsed abi.ABI) ([]interface{}, error) {
		return chain.NewContract(token, parsed, gw).Call(ctx, method)
	}

	if values, err := call(stringABI); err == nil {
		if text, ok := values[0].(string); ok && strings.TrimSpace(text) != "" {
			return text, true
		}
	}
	values, err := call(bytes32ABI)
	if err != nil {
		logger.Debug(method+" call failed", zap.String("token", token.Hex()), zap.Error(err))
		return "", false
	}
	if text, ok := bytes32ToString(values[0]); ok {
		if text = strings.Trim(text, "\x00 "); text != "" {
			return text, true
		}
	}
	return "", false
}
