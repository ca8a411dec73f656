// Package vm defines the contract-state model shared by all execution
// backends: storage keys, execution results, and the launch options used by
// deployers to drive the system-call conventions of the zk-stack backends.
package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/crosstest-vm/crosstest/output"
)

// StorageKey addresses a single storage word: the owning contract and the
// 256-bit slot within its storage space.
type StorageKey struct {
	Address common.Address
	Key     uint256.Int
}

// NewStorageKey is a shortcut constructor.
func NewStorageKey(address common.Address, key *uint256.Int) StorageKey {
	return StorageKey{Address: address, Key: *key}
}

// ExecutionResult is the outcome of one VM call. Counters not supported by a
// backend are zero. Instances are treated as immutable once produced.
type ExecutionResult struct {
	Output output.Output
	Cycles uint64
	Ergs   uint64
	Gas    uint64
}

// NewExecutionResult is a shortcut constructor.
func NewExecutionResult(out output.Output, cycles, ergs, gas uint64) ExecutionResult {
	return ExecutionResult{Output: out, Cycles: cycles, Ergs: ergs, Gas: gas}
}

// LaunchOptions describes the manual-call ABI of the zk-stack backends.
// A nil *LaunchOptions means the default launch: the emulator derives the
// call frame from the entry address and calldata alone. The R3..R5 registers
// carry the value-transfer simulation parameters of system calls.
type LaunchOptions struct {
	IsConstructor bool
	IsSystemCall  bool
	R3            *uint256.Int
	R4            *uint256.Int
	R5            *uint256.Int
}

// ConstructorCall is the launch used for direct constructor invocations.
func ConstructorCall() *LaunchOptions {
	return &LaunchOptions{IsConstructor: true}
}

// SystemCall is the launch used for calls into privileged system contracts.
func SystemCall() *LaunchOptions {
	return &LaunchOptions{IsSystemCall: true}
}

// SystemCallWithValue is the launch used when a nonzero value is routed
// through the value-transfer simulator: r3 carries the value, r4 the true
// target, and r5 the system-call marker bit.
func SystemCallWithValue(value, target *uint256.Int) *LaunchOptions {
	return &LaunchOptions{
		IsSystemCall: true,
		R3:           value,
		R4:           target,
		R5:           uint256.NewInt(uint64(SystemCallBit)),
	}
}

// SystemCallBit is the marker placed in the r5 register of a simulated
// value transfer.
const SystemCallBit = 1
