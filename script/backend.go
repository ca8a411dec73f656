package script

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/crosstest-vm/crosstest/vm"
	"github.com/crosstest-vm/crosstest/vm/eravm"
	"github.com/crosstest-vm/crosstest/vm/evm"
)

// Backend is the uniform surface a case script drives. Each execution
// backend adapts its own state model behind it.
type Backend interface {
	// Deploy installs the instance's contract and returns the deploy
	// output, whose first word is the contract address on success.
	Deploy(testName string, caller common.Address, instance *Instance, constructorCalldata []byte, value *uint256.Int) (vm.ExecutionResult, error)

	// Execute runs a call against a deployed contract.
	Execute(testName string, entry, caller common.Address, value *uint256.Int, calldata []byte) (vm.ExecutionResult, error)

	// PopulateStorage applies pre-run storage writes.
	PopulateStorage(values map[vm.StorageKey]common.Hash)

	// IsStorageEmpty reports whether all non-system storage is zero.
	IsStorageEmpty() bool

	// GetBalance returns an account balance.
	GetBalance(address common.Address) *uint256.Int
}

// EraVMBackend adapts the zk-stack state model. With Interpreter set, calls
// and deployments go through the EVM interpreter contract instead of the
// native path.
type EraVMBackend struct {
	VM          *eravm.VM
	Deployer    eravm.Deployer
	Interpreter bool
}

func (b *EraVMBackend) Deploy(testName string, caller common.Address, instance *Instance, constructorCalldata []byte, value *uint256.Int) (vm.ExecutionResult, error) {
	if b.Interpreter {
		return b.Deployer.DeployEVM(testName, caller, instance.Code, constructorCalldata, value, b.VM)
	}
	return b.Deployer.DeployCode(testName, caller, &instance.CodeHash, constructorCalldata, value, b.VM)
}

func (b *EraVMBackend) Execute(testName string, entry, caller common.Address, value *uint256.Int, calldata []byte) (vm.ExecutionResult, error) {
	if b.Interpreter {
		return b.VM.ExecuteEVMInterpreter(testName, entry, caller, value, calldata, nil)
	}
	return b.VM.Execute(testName, entry, caller, value, calldata, nil)
}

func (b *EraVMBackend) PopulateStorage(values map[vm.StorageKey]common.Hash) {
	b.VM.PopulateStorage(values)
}

func (b *EraVMBackend) IsStorageEmpty() bool {
	return b.VM.IsStorageEmpty()
}

func (b *EraVMBackend) GetBalance(address common.Address) *uint256.Int {
	return b.VM.GetBalance(address)
}

// EVMBackend adapts the standalone EVM.
type EVMBackend struct {
	VM *evm.VM
}

func (b *EVMBackend) Deploy(testName string, caller common.Address, instance *Instance, constructorCalldata []byte, value *uint256.Int) (vm.ExecutionResult, error) {
	initCode := make([]byte, 0, len(instance.Code)+len(constructorCalldata))
	initCode = append(initCode, instance.Code...)
	initCode = append(initCode, constructorCalldata...)
	return b.VM.Deploy(testName, caller, initCode, value)
}

func (b *EVMBackend) Execute(testName string, entry, caller common.Address, value *uint256.Int, calldata []byte) (vm.ExecutionResult, error) {
	return b.VM.Execute(testName, entry, caller, value, calldata)
}

func (b *EVMBackend) PopulateStorage(values map[vm.StorageKey]common.Hash) {
	b.VM.PopulateStorage(values)
}

func (b *EVMBackend) IsStorageEmpty() bool {
	return b.VM.IsStorageEmpty()
}

func (b *EVMBackend) GetBalance(address common.Address) *uint256.Int {
	return b.VM.GetBalance(address)
}
