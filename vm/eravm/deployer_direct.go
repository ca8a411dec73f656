package eravm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/crosstest-vm/crosstest/output"
	"github.com/crosstest-vm/crosstest/vm"
)

// DirectDeployer installs contracts without going through the deployer
// system contract: it predicts the address itself, registers the code, runs
// the constructor through the manual-call ABI, and writes the returned
// immutables into the immutable simulator. Fast path for tests that do not
// exercise the deployment protocol itself.
type DirectDeployer struct {
	addresses *AddressIterator
}

// NewDirectDeployer creates a deployer with a fresh address iterator.
func NewDirectDeployer() *DirectDeployer {
	return &DirectDeployer{addresses: NewAddressIterator()}
}

// immutableArguments is the ABI shape of a constructor's return data: an
// array of (index, value) pairs.
var immutableArguments = func() abi.Arguments {
	typ, err := abi.NewType("tuple[]", "", []abi.ArgumentMarshaling{
		{Name: "index", Type: "uint256"},
		{Name: "value", Type: "bytes32"},
	})
	if err != nil {
		panic(fmt.Sprintf("invalid immutable ABI type: %v", err))
	}
	return abi.Arguments{{Type: typ}}
}()

type immutableRecord struct {
	Index *big.Int `abi:"index"`
	Value [32]byte `abi:"value"`
}

func (d *DirectDeployer) DeployCode(testName string, caller common.Address, codeHash *uint256.Int, constructorCalldata []byte, value *uint256.Int, v *VM) (vm.ExecutionResult, error) {
	address := d.addresses.Next(caller, false)

	if err := v.AddDeployedContract(address, codeHash, nil); err != nil {
		return vm.ExecutionResult{}, err
	}
	if value != nil {
		v.MintEther(address, value)
	}

	result, err := v.Execute(testName, address, caller, value, constructorCalldata, vm.ConstructorCall())
	if err != nil {
		return vm.ExecutionResult{}, err
	}

	if result.Output.Exception {
		if value != nil {
			v.BurnEther(address, value)
		}
		v.RemoveDeployedContract(address)
		return result, nil
	}

	d.addresses.IncrementNonce(caller)

	if err := setImmutables(address, result.Output.ReturnData, v); err != nil {
		return vm.ExecutionResult{}, err
	}

	result.Output = output.New(
		[]output.Value{output.CertainAddress(address)},
		false,
		result.Output.Events,
	)
	return result, nil
}

// DeployEVM is not supported by the direct deployer: interpreter-run
// contracts must be installed through the deployment protocol.
func (d *DirectDeployer) DeployEVM(testName string, caller common.Address, initCode, constructorCalldata []byte, value *uint256.Int, v *VM) (vm.ExecutionResult, error) {
	return vm.ExecutionResult{}, fmt.Errorf("direct deployer cannot deploy EVM contracts")
}

// setImmutables decodes the (index, value) pairs a constructor returns and
// writes each into the immutable simulator, at the slot derived from the
// contract address and the immutable index.
func setImmutables(address common.Address, returnData []output.Value, v *VM) error {
	blob := make([]byte, 0, len(returnData)*output.WordLength)
	for _, value := range returnData {
		word, certain := value.Word()
		if !certain {
			return fmt.Errorf("constructor return data contains a non-concrete word")
		}
		blob = append(blob, wordBytes(&word)...)
	}

	decoded, err := immutableArguments.Unpack(blob)
	if err != nil {
		return fmt.Errorf("failed to decode immutables: %w", err)
	}
	records := *abi.ConvertType(decoded[0], new([]immutableRecord)).(*[]immutableRecord)

	values := make(map[vm.StorageKey]common.Hash, len(records))
	for _, record := range records {
		key := immutableSlot(address, record.Index)
		values[vm.NewStorageKey(SystemAddress(AddressImmutableSimulator), key)] = common.Hash(record.Value)
	}
	v.PopulateStorage(values)
	return nil
}

// immutableSlot derives the storage slot of one immutable: the inner hash
// addresses the per-contract mapping at position zero, the outer hash indexes
// into it.
func immutableSlot(address common.Address, index *big.Int) *uint256.Int {
	zero := make([]byte, 32)
	inner := keccak256(padAddress(address), zero)

	indexWord := uint256.MustFromBig(index)
	outer := keccak256(wordBytes(indexWord), inner[:])
	return new(uint256.Int).SetBytes(outer[:])
}
