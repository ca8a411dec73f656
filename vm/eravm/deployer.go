package eravm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/crosstest-vm/crosstest/vm"
)

// Deployer installs contracts into a VM ahead of or during a test case. The
// two implementations differ in fidelity: DirectDeployer bypasses the
// deployer system contract and registers the code itself, while
// SystemContractDeployer goes through the real protocol.
type Deployer interface {
	// DeployCode deploys a native contract identified by its versioned code
	// hash. The bytecode must already be known to the VM.
	DeployCode(testName string, caller common.Address, codeHash *uint256.Int, constructorCalldata []byte, value *uint256.Int, v *VM) (vm.ExecutionResult, error)

	// DeployEVM deploys a contract from EVM init code to be run on the
	// interpreter.
	DeployEVM(testName string, caller common.Address, initCode, constructorCalldata []byte, value *uint256.Int, v *VM) (vm.ExecutionResult, error)
}
