package eravm

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/exp/maps"
)

// createPrefix is keccak256("zksyncCreate"), the domain separator of the
// deterministic create address scheme.
var createPrefix = func() [32]byte {
	return keccak256([]byte("zksyncCreate"))
}()

// AddressIterator predicts the deploy addresses of the native create scheme.
// Addresses depend only on the caller and its per-caller nonce, so a failed
// deploy that does not increment the nonce yields the same address again.
type AddressIterator struct {
	nonces map[common.Address]uint64
}

// NewAddressIterator creates an iterator with all nonces at zero.
func NewAddressIterator() *AddressIterator {
	return &AddressIterator{nonces: map[common.Address]uint64{}}
}

// Next returns the deploy address for the caller's current nonce,
// incrementing the nonce afterwards if requested.
func (i *AddressIterator) Next(caller common.Address, incrementNonce bool) common.Address {
	var nonceWord [32]byte
	binary.BigEndian.PutUint64(nonceWord[24:], i.nonces[caller])

	hash := keccak256(createPrefix[:], padAddress(caller), nonceWord[:])

	if incrementNonce {
		i.IncrementNonce(caller)
	}
	return common.BytesToAddress(hash[12:])
}

// IncrementNonce bumps the caller's nonce. Called by deployers only after a
// deploy is confirmed successful.
func (i *AddressIterator) IncrementNonce(caller common.Address) {
	i.nonces[caller]++
}

// Nonce returns the caller's current nonce.
func (i *AddressIterator) Nonce(caller common.Address) uint64 {
	return i.nonces[caller]
}

// Clone returns an independent copy.
func (i *AddressIterator) Clone() *AddressIterator {
	return &AddressIterator{nonces: maps.Clone(i.nonces)}
}
