package evm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/exp/maps"
)

// AddressIterator predicts create addresses with the RLP scheme of the
// plain EVM. The start nonce is configurable since some environments begin
// account nonces at one.
type AddressIterator struct {
	nonces     map[common.Address]uint64
	startNonce uint64
}

// NewAddressIterator creates an iterator with every nonce at the given
// start value.
func NewAddressIterator(startNonce uint64) *AddressIterator {
	return &AddressIterator{nonces: map[common.Address]uint64{}, startNonce: startNonce}
}

// Next returns the deploy address for the caller's current nonce,
// incrementing the nonce afterwards if requested.
func (i *AddressIterator) Next(caller common.Address, incrementNonce bool) common.Address {
	address := crypto.CreateAddress(caller, i.Nonce(caller))
	if incrementNonce {
		i.IncrementNonce(caller)
	}
	return address
}

// IncrementNonce bumps the caller's nonce. Called only after a deploy is
// confirmed successful.
func (i *AddressIterator) IncrementNonce(caller common.Address) {
	i.nonces[caller] = i.Nonce(caller) + 1
}

// Nonce returns the caller's current nonce.
func (i *AddressIterator) Nonce(caller common.Address) uint64 {
	if nonce, found := i.nonces[caller]; found {
		return nonce
	}
	return i.startNonce
}

// Clone returns an independent copy.
func (i *AddressIterator) Clone() *AddressIterator {
	return &AddressIterator{nonces: maps.Clone(i.nonces), startNonce: i.startNonce}
}
