// Package eravm implements the zk-stack execution backends: native
// execution of zk-stack bytecode and the EVM-interpreter path running EVM
// bytecode through the interpreter system contract.
// The opcode interpreter itself is an opaque engine obtained from the
// emulator registry; this package owns the contract-state model, the system
// bootstrap, and the deployment protocol around it.
package eravm

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

// Well-known addresses of the zk-stack system space. Everything below
// AddressUnrestrictedSpace belongs to the system and is excluded from the
// storage-emptiness check used by balance-neutrality assertions.
const (
	AddressEcrecover = 0x0001
	AddressSha256    = 0x0002
	AddressEcadd     = 0x0006
	AddressEcmul     = 0x0007

	AddressBootloader         = 0x8001
	AddressAccountCodeStorage = 0x8002
	AddressNonceHolder        = 0x8003
	AddressKnownCodesStorage  = 0x8004
	AddressImmutableSimulator = 0x8005
	AddressContractDeployer   = 0x8006
	AddressForceDeployer      = 0x8007
	AddressL1Messenger        = 0x8008
	AddressMsgValueSimulator  = 0x8009
	AddressBaseToken          = 0x800a
	AddressSystemContext      = 0x800b
	AddressEventWriter        = 0x800d
	AddressKeccak256          = 0x8010
	AddressCodeOracle         = 0x8012
	AddressEVMGasManager      = 0x8013

	// AddressUnrestrictedSpace is the first address available to user code.
	AddressUnrestrictedSpace = 1 << 16
)

// SystemAddress turns a small well-known address constant into a full
// 20-byte address.
func SystemAddress(value uint64) common.Address {
	var address common.Address
	binary.BigEndian.PutUint64(address[12:], value)
	return address
}

// keccak256 hashes the concatenation of the given chunks.
func keccak256(chunks ...[]byte) [32]byte {
	hasher := sha3.NewLegacyKeccak256()
	for _, chunk := range chunks {
		hasher.Write(chunk)
	}
	var hash [32]byte
	hasher.Sum(hash[:0])
	return hash
}

// padAddress left-pads an address to a 32-byte word.
func padAddress(address common.Address) []byte {
	word := make([]byte, 32)
	copy(word[12:], address[:])
	return word
}

// wordBytes returns the 32-byte big-endian encoding of the given word.
func wordBytes(word *uint256.Int) []byte {
	bytes := word.Bytes32()
	return bytes[:]
}
