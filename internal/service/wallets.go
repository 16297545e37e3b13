package service

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"launchpad/internal/chain"
	"launchpad/internal/errs"
	"launchpad/internal/model"
	"launchpad/internal/units"
)

// WalletBalance is a wallet's native balance on one network.
type WalletBalance struct {
	Address string `json:"address"`
	Network string `json:"network"`
	Wei     string `json:"wei"`
	Amount  string `json:"amount"`
	Symbol  string `json:"symbol"`
}

// CreateWallet generates a signing wallet for the user. An existing wallet is returned unchanged
// with created=false and without its private key.
func (s *Service) CreateWallet(ctx context.Context, userID string) (model.Wallet, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return model.Wallet{}, false, errs.New(errs.UserInput, "create wallet", "user id is required")
	}
	existing, err := s.store.GetWallet(ctx, userID)
	switch {
	case err == nil:
		return public(existing), false, nil
	case errs.KindOf(err) != errs.NotFound:
		return model.Wallet{}, false, err
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return model.Wallet{}, false, errors.Wrap(err, "generate key")
	}
	wallet := model.Wallet{
		UserID:     userID,
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.SaveWallet(ctx, wallet); err != nil {
		return model.Wallet{}, false, err
	}
	return wallet, true, nil
}

// ImportWallet stores privateKey as the user's wallet, replacing any previous one.
func (s *Service) ImportWallet(ctx context.Context, userID, privateKey string) (model.Wallet, error) {
	const op = "import wallet"
	if strings.TrimSpace(userID) == "" {
		return model.Wallet{}, errs.New(errs.UserInput, op, "user id is required")
	}
	address, err := chain.AddressOf(privateKey)
	if err != nil {
		return model.Wallet{}, errs.Wrap(errs.UserInput, op, err)
	}
	wallet := model.Wallet{
		UserID:     userID,
		Address:    address.Hex(),
		PrivateKey: strings.TrimSpace(privateKey),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.SaveWallet(ctx, wallet); err != nil {
		return model.Wallet{}, err
	}
	return public(wallet), nil
}

// Wallet returns the user's wallet without its private key.
func (s *Service) Wallet(ctx context.Context, userID string) (model.Wallet, error) {
	wallet, err := s.store.GetWallet(ctx, userID)
	if err != nil {
		if errs.KindOf(err) == errs.NotFound {
			return model.Wallet{}, errs.Wrap(errs.NoWallet, "wallet", err)
		}
		return model.Wallet{}, err
	}
	return public(wallet), nil
}

// Balance reads the native balance of the user's wallet on network.
func (s *Service) Balance(ctx context.Context, userID, network string) (WalletBalance, error) {
	n, err := s.Network(network)
	if err != nil {
		return WalletBalance{}, err
	}
	account, err := s.account(ctx, userID)
	if err != nil {
		return WalletBalance{}, err
	}
	wei, err := n.Gateway.Balance(ctx, account.Address)
	if err != nil {
		return WalletBalance{}, err
	}
	return WalletBalance{
		Address: account.Address.Hex(),
		Network: n.Config.Name,
		Wei:     wei.String(),
		Amount:  units.FormatWei(wei),
		Symbol:  n.Config.NativeSymbol,
	}, nil
}

func public(wallet model.Wallet) model.Wallet {
	wallet.PrivateKey = ""
	return wallet
}
