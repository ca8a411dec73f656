package eravm

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/crosstest-vm/crosstest/vm"
)

// Method selectors of the deployer system contract.
const (
	createSelector    = 0x9c4d535b // create(bytes32,bytes32,bytes)
	createEVMSelector = 0xff311601 // createEVM(bytes)
)

// SystemContractDeployer deploys through the real protocol: it calls the
// deployer system contract, which predicts the address, bumps the nonce and
// emits the deployment events itself. Used when a test exercises the
// deployment semantics rather than just needing a contract in place.
type SystemContractDeployer struct{}

// NewSystemContractDeployer creates the deployer. It is stateless: all
// deployment state lives in the system contracts.
func NewSystemContractDeployer() *SystemContractDeployer {
	return &SystemContractDeployer{}
}

func (d *SystemContractDeployer) DeployCode(testName string, caller common.Address, codeHash *uint256.Int, constructorCalldata []byte, value *uint256.Int, v *VM) (vm.ExecutionResult, error) {
	calldata := make([]byte, 0, 4+4*wordLength+len(constructorCalldata))
	calldata = appendSelector(calldata, createSelector)
	calldata = append(calldata, make([]byte, wordLength)...) // zero salt
	calldata = append(calldata, wordBytes(codeHash)...)
	calldata = appendWordUint64(calldata, 3*wordLength) // constructor calldata offset
	calldata = appendWordUint64(calldata, uint64(len(constructorCalldata)))
	calldata = append(calldata, constructorCalldata...)

	return d.call(testName, caller, calldata, value, v)
}

func (d *SystemContractDeployer) DeployEVM(testName string, caller common.Address, initCode, constructorCalldata []byte, value *uint256.Int, v *VM) (vm.ExecutionResult, error) {
	code := make([]byte, 0, len(initCode)+len(constructorCalldata))
	code = append(code, initCode...)
	code = append(code, constructorCalldata...)

	calldata := make([]byte, 0, 4+2*wordLength+len(code))
	calldata = appendSelector(calldata, createEVMSelector)
	calldata = appendWordUint64(calldata, wordLength) // init code offset
	calldata = appendWordUint64(calldata, uint64(len(code)))
	calldata = append(calldata, code...)

	return d.call(testName, caller, calldata, value, v)
}

// call routes the encoded deployment request to the deployer system
// contract. With the value simulator enabled a nonzero value enters through
// the simulator contract with the true target in the registers; otherwise
// the value is minted at the deployer directly and passed in the context.
func (d *SystemContractDeployer) call(testName string, caller common.Address, calldata []byte, value *uint256.Int, v *VM) (vm.ExecutionResult, error) {
	entry := SystemAddress(AddressContractDeployer)
	launch := vm.SystemCall()
	contextValue := value

	if value != nil {
		if v.UsesValueSimulator() {
			v.MintEther(caller, value)
			target := new(uint256.Int).SetBytes(entry.Bytes())
			launch = vm.SystemCallWithValue(value, target)
			entry = SystemAddress(AddressMsgValueSimulator)
			contextValue = nil
		} else {
			v.MintEther(SystemAddress(AddressContractDeployer), value)
		}
	}

	return v.Execute(testName, entry, caller, contextValue, calldata, launch)
}

const wordLength = 32

func appendSelector(calldata []byte, selector uint32) []byte {
	var bytes [4]byte
	binary.BigEndian.PutUint32(bytes[:], selector)
	return append(calldata, bytes[:]...)
}

func appendWordUint64(calldata []byte, value uint64) []byte {
	var word [32]byte
	binary.BigEndian.PutUint64(word[24:], value)
	return append(calldata, word[:]...)
}
