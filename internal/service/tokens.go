package service

import (
	"context"
	"strings"

	"launchpad/internal/errs"
	"launchpad/internal/model"
)

// RecordToken stores a token deployment reported by the build pipeline.
func (s *Service) RecordToken(ctx context.Context, token model.TokenRecord) (model.TokenRecord, error) {
	const op = "record token"
	if strings.TrimSpace(token.UserID) == "" {
		return model.TokenRecord{}, errs.New(errs.UserInput, op, "user id is required")
	}
	address, err := parseAddress(op, "contract", token.ContractAddress)
	if err != nil {
		return model.TokenRecord{}, err
	}
	network := strings.ToLower(strings.TrimSpace(token.Network))
	if _, ok := s.cfg.Networks[network]; !ok {
		return model.TokenRecord{}, errs.Newf(errs.UserInput, op, "unsupported network %q", token.Network)
	}
	if token.BuyTax < 0 || token.BuyTax > 10_000 || token.SellTax < 0 || token.SellTax > 10_000 {
		return model.TokenRecord{}, errs.New(errs.UserInput, op, "taxes are basis points between 0 and 10000")
	}

	token.ContractAddress = address.Hex()
	token.Network = network
	if token.CreatedAt.IsZero() {
		token.CreatedAt = s.now().UTC()
	}
	if err := s.store.SaveToken(ctx, token); err != nil {
		return model.TokenRecord{}, err
	}
	return token, nil
}

// Tokens lists the user's recorded deployments.
func (s *Service) Tokens(ctx context.Context, userID string) ([]model.TokenRecord, error) {
	return s.store.ListTokens(ctx, userID)
}
