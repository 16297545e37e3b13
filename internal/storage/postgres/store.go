package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"launchpad/internal/errs"
	"launchpad/internal/model"
	"launchpad/internal/storage"
)

//go:embed schema.sql
var schema string

// Store provides Postgres persistence for wallets, tokens and pool history.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// EnsureSchema creates missing tables. It is safe to run on every start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) GetWallet(ctx context.Context, userID string) (model.Wallet, error) {
	wallet := model.Wallet{UserID: userID}
	row := s.pool.QueryRow(ctx, `SELECT address, private_key, created_at FROM wallets WHERE user_id=$1`, userID)
	if err := row.Scan(&wallet.Address, &wallet.PrivateKey, &wallet.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Wallet{}, errs.Newf(errs.NotFound, "get wallet", "no wallet for user %s", userID)
		}
		return model.Wallet{}, err
	}
	return wallet, nil
}

// SaveWallet upserts the user's wallet.
func (s *Store) SaveWallet(ctx context.Context, wallet model.Wallet) error {
	if wallet.UserID == "" {
		return errs.New(errs.UserInput, "save wallet", "user id is required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wallets (user_id, address, private_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO UPDATE
		SET address = EXCLUDED.address, private_key = EXCLUDED.private_key, updated_at = now()
	`, wallet.UserID, wallet.Address, wallet.PrivateKey, wallet.CreatedAt)
	return err
}

// AppendPoolRecord inserts one history row. Rows are never updated.
func (s *Store) AppendPoolRecord(ctx context.Context, record model.PoolRecord) error {
	return s.AppendPoolRecords(ctx, []model.PoolRecord{record})
}

// AppendPoolRecords inserts history rows in one batch.
func (s *Store) AppendPoolRecords(ctx context.Context, records []model.PoolRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO pool_records (
				id, user_id, network, token_address, pool_address, token_amount, native_amount,
				stage, status, position_id, tx_hash, retry_used, error, created_at
			) VALUES ($1,$2,$3,$4,$5,$6::numeric,$7::numeric,$8,$9,$10,$11,$12,$13,$14)
			ON CONFLICT (id) DO NOTHING
		`,
			r.ID,
			r.UserID,
			r.Network,
			r.TokenAddress,
			r.PoolAddress,
			r.TokenAmount.String(),
			r.NativeAmount.String(),
			string(r.Stage),
			string(r.Status),
			r.PositionID,
			r.TxHash,
			r.RetryUsed,
			r.Error,
			r.CreatedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListPoolRecords(ctx context.Context, userID string) ([]model.PoolRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, network, token_address, pool_address, token_amount::text, native_amount::text,
			stage, status, position_id, tx_hash, retry_used, error, created_at
		FROM pool_records WHERE user_id=$1 ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.PoolRecord{}
	for rows.Next() {
		r := model.PoolRecord{UserID: userID}
		var tokenAmount, nativeAmount, stage, status string
		if err := rows.Scan(&r.ID, &r.Network, &r.TokenAddress, &r.PoolAddress, &tokenAmount, &nativeAmount,
			&stage, &status, &r.PositionID, &r.TxHash, &r.RetryUsed, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		if r.TokenAmount, err = decimal.NewFromString(tokenAmount); err != nil {
			return nil, fmt.Errorf("decode token amount: %w", err)
		}
		if r.NativeAmount, err = decimal.NewFromString(nativeAmount); err != nil {
			return nil, fmt.Errorf("decode native amount: %w", err)
		}
		r.Stage = model.PoolStage(stage)
		r.Status = model.ResultStatus(status)
		records = append(records, r)
	}
	return records, rows.Err()
}

// SaveToken upserts a deployed token by (user, network, address).
func (s *Store) SaveToken(ctx context.Context, t model.TokenRecord) error {
	if t.UserID == "" || t.ContractAddress == "" {
		return errs.New(errs.UserInput, "save token", "user id and contract address are required")
	}
	features := t.Features
	if features == nil {
		features = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tokens (
			user_id, contract_address, network, name, symbol, total_supply,
			buy_tax, sell_tax, tax_wallet, features, tx_hash, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (user_id, network, contract_address) DO UPDATE SET
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			total_supply = EXCLUDED.total_supply,
			buy_tax = EXCLUDED.buy_tax,
			sell_tax = EXCLUDED.sell_tax,
			tax_wallet = EXCLUDED.tax_wallet,
			features = EXCLUDED.features,
			tx_hash = EXCLUDED.tx_hash
	`,
		t.UserID, t.ContractAddress, t.Network, t.Name, t.Symbol, t.TotalSupply,
		t.BuyTax, t.SellTax, t.TaxWallet, features, t.TxHash, t.CreatedAt,
	)
	return err
}

func (s *Store) ListTokens(ctx context.Context, userID string) ([]model.TokenRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT contract_address, network, name, symbol, total_supply, buy_tax, sell_tax,
			tax_wallet, features, tx_hash, created_at
		FROM tokens WHERE user_id=$1 ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := []model.TokenRecord{}
	for rows.Next() {
		t := model.TokenRecord{UserID: userID}
		if err := rows.Scan(&t.ContractAddress, &t.Network, &t.Name, &t.Symbol, &t.TotalSupply, &t.BuyTax,
			&t.SellTax, &t.TaxWallet, &t.Features, &t.TxHash, &t.CreatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

var _ storage.Store = (*Store)(nil)
