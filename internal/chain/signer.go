package chain

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer turns an unsigned transaction into raw signed bytes.
type Signer interface {
	Sign(tx *types.Transaction, chainID *big.Int, privateKey string) ([]byte, error)
}

// KeySigner signs with a hex encoded secp256k1 key.
type KeySigner struct{}

func (KeySigner) Sign(tx *types.Transaction, chainID *big.Int, privateKey string) ([]byte, error) {
	key, err := ParsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, errors.Wrap(err, "sign transaction")
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "encode transaction")
	}
	return raw, nil
}

// ParsePrivateKey accepts a hex key with or without 0x prefix.
func ParsePrivateKey(privateKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKey), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "parse private key")
	}
	return key, nil
}

// AddressOf derives the address controlled by privateKey.
func AddressOf(privateKey string) (common.Address, error) {
	key, err := ParsePrivateKey(privateKey)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}
