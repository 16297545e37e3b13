// Package jsonfile is a single-node Store on plain files under a data directory.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samber/lo"

	"launchpad/internal/errs"
	"launchpad/internal/model"
	"launchpad/internal/storage"
)

const (
	walletsFile = "wallets.json"
	tokensFile  = "tokens.jsonl"
	poolsFile   = "pools.jsonl"
)

// Store keeps wallets in one JSON object keyed by user and appends tokens and pool records as JSON lines.
type Store struct {
	dir string

	mu      sync.Mutex
	wallets map[string]model.Wallet

	tokens *jsonlFile
	pools  *jsonlFile
}

// Open loads (or initialises) the store in dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{
		dir:     dir,
		wallets: make(map[string]model.Wallet),
		tokens:  newJSONLFile(filepath.Join(dir, tokensFile)),
		pools:   newJSONLFile(filepath.Join(dir, poolsFile)),
	}

	data, err := os.ReadFile(filepath.Join(dir, walletsFile))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read wallets: %w", err)
	case len(strings.TrimSpace(string(data))) > 0:
		if err := json.Unmarshal(data, &s.wallets); err != nil {
			return nil, fmt.Errorf("decode wallets: %w", err)
		}
	}
	return s, nil
}

func (s *Store) GetWallet(_ context.Context, userID string) (model.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wallet, ok := s.wallets[userID]
	if !ok {
		return model.Wallet{}, errs.Newf(errs.NotFound, "get wallet", "no wallet for user %s", userID)
	}
	return wallet, nil
}

// SaveWallet replaces the user's wallet and rewrites the wallet file atomically.
func (s *Store) SaveWallet(_ context.Context, wallet model.Wallet) error {
	if wallet.UserID == "" {
		return errs.New(errs.UserInput, "save wallet", "user id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := lo.Assign(s.wallets, map[string]model.Wallet{wallet.UserID: wallet})
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallets: %w", err)
	}
	tmp := filepath.Join(s.dir, walletsFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write wallets: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, walletsFile)); err != nil {
		return fmt.Errorf("replace wallets: %w", err)
	}
	s.wallets = next
	return nil
}

func (s *Store) AppendPoolRecord(_ context.Context, record model.PoolRecord) error {
	return s.pools.appendRecords(record)
}

func (s *Store) ListPoolRecords(_ context.Context, userID string) ([]model.PoolRecord, error) {
	var records []model.PoolRecord
	err := s.pools.scan(func(line []byte) error {
		var record model.PoolRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return fmt.Errorf("decode pool record: %w", err)
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Filter(records, func(r model.PoolRecord, _ int) bool { return r.UserID == userID }), nil
}

func (s *Store) SaveToken(_ context.Context, token model.TokenRecord) error {
	if token.UserID == "" || token.ContractAddress == "" {
		return errs.New(errs.UserInput, "save token", "user id and contract address are required")
	}
	return s.tokens.appendRecords(token)
}

// ListTokens returns the user's tokens, the latest record per contract address.
func (s *Store) ListTokens(_ context.Context, userID string) ([]model.TokenRecord, error) {
	var tokens []model.TokenRecord
	err := s.tokens.scan(func(line []byte) error {
		var token model.TokenRecord
		if err := json.Unmarshal(line, &token); err != nil {
			return fmt.Errorf("decode token record: %w", err)
		}
		if token.UserID == userID {
			tokens = append(tokens, token)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	latest := lo.Reverse(lo.UniqBy(lo.Reverse(tokens), func(t model.TokenRecord) string {
		return strings.ToLower(t.ContractAddress)
	}))
	return latest, nil
}

func (s *Store) Close() error {
	return nil
}

var _ storage.Store = (*Store)(nil)
