package chain

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/puzpuzpuz/xsync/v4"
)

// WalletLocks serializes nonce allocation and submission per wallet.
type WalletLocks struct {
	locks *xsync.Map[common.Address, *sync.Mutex]
}

func NewWalletLocks() *WalletLocks {
	return &WalletLocks{locks: xsync.NewMap[common.Address, *sync.Mutex]()}
}

// Lock blocks until account is free and returns the matching unlock func.
func (w *WalletLocks) Lock(account common.Address) func() {
	mu, _ := w.locks.LoadOrStore(account, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}
