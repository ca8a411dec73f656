// Package script models executable test cases: contract instances, scripted
// inputs, and their sequential execution against a backend.
package script

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Instance is one contract participating in a case. The code hash addresses
// the build on the zk-stack backends, the code is the init code used on the
// plain EVM backend. The address is assigned exactly once, by the first
// successful deploy.
type Instance struct {
	Name     string
	CodeHash uint256.Int
	Code     []byte

	address *common.Address
}

// NewInstance creates an undeployed instance.
func NewInstance(name string, codeHash *uint256.Int, code []byte) *Instance {
	return &Instance{Name: name, CodeHash: *codeHash, Code: code}
}

// Address returns the deployed address, or an error when the instance has
// not been deployed yet.
func (i *Instance) Address() (common.Address, error) {
	if i.address == nil {
		return common.Address{}, fmt.Errorf("instance %q is not deployed", i.Name)
	}
	return *i.address, nil
}

// Clone returns an undeployed copy of the instance. Code and hash are
// shared, the address is reset.
func (i *Instance) Clone() *Instance {
	return &Instance{Name: i.Name, CodeHash: i.CodeHash, Code: i.Code}
}

// SetAddress records the deployed address. Only the first successful deploy
// may set it.
func (i *Instance) SetAddress(address common.Address) error {
	if i.address != nil {
		return fmt.Errorf("instance %q is already deployed at %s", i.Name, i.address.Hex())
	}
	i.address = &address
	return nil
}

// IsDeployed reports whether the instance has an address.
func (i *Instance) IsDeployed() bool {
	return i.address != nil
}

// Calldata is the raw payload of a call.
type Calldata []byte

// AddSelector prepends a 4-byte method selector.
func (c *Calldata) AddSelector(selector uint32) {
	var bytes [4]byte
	binary.BigEndian.PutUint32(bytes[:], selector)
	*c = append(bytes[:], *c...)
}
