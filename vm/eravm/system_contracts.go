package eravm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Build is a single pre-built contract artifact: the bytecode plus the
// versioned code hash under which the execution engine knows it. Builds are
// produced by the compiler front-end, which is outside this module.
type Build struct {
	Bytecode []byte
	CodeHash uint256.Int
}

// DeployedSystemContract pairs a build with the fixed system address it is
// installed at.
type DeployedSystemContract struct {
	Address common.Address
	Build   Build
}

// SystemContracts bundles everything the bootstrap installs before the first
// test: the default account abstraction, the EVM interpreter, the minimal
// proxy used to front interpreter-run contracts, and the contracts pinned to
// the reserved address space.
type SystemContracts struct {
	DefaultAccount Build
	EVMInterpreter Build
	MinimalProxy   Build
	Deployed       []DeployedSystemContract
}

// SystemContractAddresses is the canonical set of addresses the bundle must
// cover, in install order.
func SystemContractAddresses() []common.Address {
	values := []uint64{
		AddressEcrecover,
		AddressSha256,
		AddressEcadd,
		AddressEcmul,
		AddressEventWriter,
		AddressKeccak256,
		AddressCodeOracle,
		AddressAccountCodeStorage,
		AddressNonceHolder,
		AddressKnownCodesStorage,
		AddressImmutableSimulator,
		AddressContractDeployer,
		AddressL1Messenger,
		AddressMsgValueSimulator,
		AddressSystemContext,
		AddressBaseToken,
		AddressEVMGasManager,
	}
	addresses := make([]common.Address, 0, len(values))
	for _, value := range values {
		addresses = append(addresses, SystemAddress(value))
	}
	return addresses
}

// Validate checks that the bundle covers every required system address and
// carries the two mandatory builds.
func (c *SystemContracts) Validate() error {
	if c.DefaultAccount.Bytecode == nil {
		return fmt.Errorf("missing default account build")
	}
	if c.EVMInterpreter.Bytecode == nil {
		return fmt.Errorf("missing EVM interpreter build")
	}
	installed := map[common.Address]bool{}
	for _, contract := range c.Deployed {
		installed[contract.Address] = true
	}
	for _, address := range SystemContractAddresses() {
		if !installed[address] {
			return fmt.Errorf("missing system contract at %s", address.Hex())
		}
	}
	return nil
}
