package eravm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"
	"golang.org/x/exp/maps"

	"github.com/crosstest-vm/crosstest/vm"
)

// InterpreterGasOverhead is the extra amount of gas consumed by every call
// routed through the EVM interpreter contract. The interpreter reports the
// gas left in the first return word; the overhead is added uniformly to the
// derived gas usage on every interpreter run.
const InterpreterGasOverhead = 2500

// Storage layout of the EvmGasManager contract used to prime an interpreter
// call frame.
const (
	evmGasManagerStackFrameSlot = 2
	interpreterFrameGas         = 1 << 24
)

// VM is the contract-state model shared by the native backend and the
// EVM-interpreter backend. The opcode interpretation itself is delegated to
// an Emulator from the registry; the VM owns the storage, the known and
// deployed contract maps, and the system bootstrap.
//
// A VM value is not safe for concurrent use. The intended pattern is one
// fully bootstrapped base instance per process, cloned per work unit.
type VM struct {
	emulator vm.Emulator

	knownContracts        map[uint256.Int][]byte
	deployedContracts     map[common.Address][]byte
	publishedEVMBytecodes map[uint256.Int][]uint256.Int
	storage               map[vm.StorageKey]common.Hash

	defaultAccountCodeHash uint256.Int
	evmInterpreterCodeHash uint256.Int

	useValueSimulator bool
}

// Config carries everything needed to bootstrap a base VM instance.
type Config struct {
	// Emulator is the registry name of the execution engine.
	Emulator string
	// EmulatorConfig is passed to the emulator factory, may be nil.
	EmulatorConfig any
	// SystemContracts is the pre-built system contract bundle supplied by
	// the compiler collaborators.
	SystemContracts SystemContracts
	// Target selects the block-context flavor.
	Target ContextTarget
	// UseValueSimulator routes nonzero-value calls through the value
	// transfer simulator contract instead of minting at the entry address.
	UseValueSimulator bool
}

// New creates and bootstraps a base VM instance: it seeds the system context
// storage and installs the system contracts.
func New(cfg Config) (*VM, error) {
	emulator, err := vm.NewEmulator(cfg.Emulator, cfg.EmulatorConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create emulator: %w", err)
	}

	v := &VM{
		emulator:              emulator,
		knownContracts:        map[uint256.Int][]byte{},
		deployedContracts:     map[common.Address][]byte{},
		publishedEVMBytecodes: map[uint256.Int][]uint256.Int{},
		storage:               createSystemContextStorage(cfg.Target),
		useValueSimulator:     cfg.UseValueSimulator,
	}

	bundle := cfg.SystemContracts
	v.defaultAccountCodeHash = bundle.DefaultAccount.CodeHash
	v.evmInterpreterCodeHash = bundle.EVMInterpreter.CodeHash

	v.AddKnownContract(bundle.DefaultAccount.Bytecode, &bundle.DefaultAccount.CodeHash)
	v.AddKnownContract(bundle.EVMInterpreter.Bytecode, &bundle.EVMInterpreter.CodeHash)
	if bundle.MinimalProxy.Bytecode != nil {
		v.AddKnownContract(bundle.MinimalProxy.Bytecode, &bundle.MinimalProxy.CodeHash)
	}

	for _, contract := range bundle.Deployed {
		if err := v.AddDeployedContract(contract.Address, &contract.Build.CodeHash, contract.Build.Bytecode); err != nil {
			return nil, fmt.Errorf("failed to install system contract at %s: %w", contract.Address.Hex(), err)
		}
	}

	return v, nil
}

// Clone returns an independent copy of the VM sharing the emulator and the
// immutable bytecode slices.
func (v *VM) Clone() *VM {
	clone := *v
	clone.knownContracts = maps.Clone(v.knownContracts)
	clone.deployedContracts = maps.Clone(v.deployedContracts)
	clone.publishedEVMBytecodes = maps.Clone(v.publishedEVMBytecodes)
	clone.storage = maps.Clone(v.storage)
	return &clone
}

// CloneWithContracts clones the VM and makes the given contracts known for a
// single test run.
func (v *VM) CloneWithContracts(contracts map[uint256.Int][]byte) *VM {
	clone := v.Clone()
	for hash, bytecode := range contracts {
		h := hash
		clone.AddKnownContract(bytecode, &h)
	}
	return clone
}

// UsesValueSimulator reports whether nonzero-value calls go through the
// value-transfer simulator. Deployers use this to pick their call strategy.
func (v *VM) UsesValueSimulator() bool {
	return v.useValueSimulator
}

// Execute runs a single transaction against the VM state and merges the
// resulting state back. When opts is nil the launch is derived from the
// value: under the value simulator a nonzero value is minted to the caller
// and the call is redirected through the simulator contract; otherwise the
// value is minted at the entry address and passed in the context register.
func (v *VM) Execute(testName string, entry, caller common.Address, value *uint256.Int, calldata []byte, opts *vm.LaunchOptions) (vm.ExecutionResult, error) {
	contextValue := value
	if opts == nil {
		switch {
		case v.useValueSimulator && value != nil:
			v.MintEther(caller, value)
			target := new(uint256.Int).SetBytes(entry.Bytes())
			opts = vm.SystemCallWithValue(value, target)
			entry = SystemAddress(AddressMsgValueSimulator)
			contextValue = nil
		case value != nil:
			v.MintEther(entry, value)
		}
	}

	snapshot, err := v.emulator.Run(vm.EmulationInput{
		TestName:               testName,
		Entry:                  entry,
		Caller:                 caller,
		ContextValue:           contextValue,
		Calldata:               calldata,
		Launch:                 opts,
		DeployedContracts:      v.deployedContracts,
		KnownContracts:         v.knownContracts,
		PublishedEVMBytecodes:  v.publishedEVMBytecodes,
		Storage:                v.storage,
		DefaultAccountCodeHash: v.defaultAccountCodeHash,
		EVMInterpreterCodeHash: v.evmInterpreterCodeHash,
	})
	if err != nil {
		return vm.ExecutionResult{}, fmt.Errorf("emulator failure: %w", err)
	}

	for address, bytecode := range snapshot.DeployedContracts {
		if _, found := v.deployedContracts[address]; found {
			continue
		}
		v.deployedContracts[address] = bytecode
	}
	for hash, preimage := range snapshot.PublishedEVMBytecodes {
		if _, found := v.publishedEVMBytecodes[hash]; found {
			continue
		}
		v.publishedEVMBytecodes[hash] = preimage
	}
	if snapshot.Storage != nil {
		v.storage = snapshot.Storage
	}

	return snapshot.Result, nil
}

// ExecuteEVMInterpreter runs a call through the pre-installed EVM
// interpreter contract. The interpreter prepends the remaining gas to the
// return data; it is stripped here and converted into the gas counter of the
// result, including the fixed per-call overhead.
func (v *VM) ExecuteEVMInterpreter(testName string, entry, caller common.Address, value *uint256.Int, calldata []byte, opts *vm.LaunchOptions) (vm.ExecutionResult, error) {
	gasManager := SystemAddress(AddressEVMGasManager)

	// Prime a single interpreter stack frame: frame count 1, the first
	// frame non-static with 2^24 gas to pass.
	v.storage[vm.NewStorageKey(gasManager, uint256.NewInt(evmGasManagerStackFrameSlot))] = valueHash(uint256.NewInt(1))

	var frameSlot [32]byte
	frameSlot[31] = evmGasManagerStackFrameSlot
	firstFrame := keccak256(frameSlot[:])
	firstFrameKey := new(uint256.Int).SetBytes(firstFrame[:])
	v.storage[vm.NewStorageKey(gasManager, firstFrameKey)] = common.Hash{}
	v.storage[vm.NewStorageKey(gasManager, new(uint256.Int).AddUint64(firstFrameKey, 1))] = valueHash(uint256.NewInt(interpreterFrameGas))

	result, err := v.Execute(testName, entry, caller, value, calldata, opts)
	if err != nil {
		return vm.ExecutionResult{}, err
	}
	if len(result.Output.ReturnData) == 0 {
		return vm.ExecutionResult{}, fmt.Errorf("interpreter return data is empty")
	}

	gasLeftWord, certain := result.Output.ReturnData[0].Word()
	if !certain {
		return vm.ExecutionResult{}, fmt.Errorf("interpreter gas counter is not a concrete word")
	}
	result.Output.ReturnData = result.Output.ReturnData[1:]
	result.Gas = interpreterFrameGas - gasLeftWord.Uint64() + InterpreterGasOverhead

	return result, nil
}

// IsStorageEmpty reports whether every storage value outside the reserved
// system address range is zero.
func (v *VM) IsStorageEmpty() bool {
	boundary := SystemAddress(AddressUnrestrictedSpace)
	for key, value := range v.storage {
		if key.Address.Cmp(boundary) < 0 {
			continue
		}
		if value != (common.Hash{}) {
			return false
		}
	}
	return true
}

// MintEther adds the given amount to the balance of the address. Needed for
// payable call simulation.
func (v *VM) MintEther(address common.Address, amount *uint256.Int) {
	key := balanceStorageKey(address)
	current := v.storage[key]
	balance := new(uint256.Int).SetBytes(current[:])
	balance.Add(balance, amount)
	v.storage[key] = valueHash(balance)
}

// BurnEther removes the given amount from the balance of the address.
func (v *VM) BurnEther(address common.Address, amount *uint256.Int) {
	key := balanceStorageKey(address)
	current := v.storage[key]
	balance := new(uint256.Int).SetBytes(current[:])
	balance.Sub(balance, amount)
	v.storage[key] = valueHash(balance)
}

// GetBalance returns the balance of the address.
func (v *VM) GetBalance(address common.Address) *uint256.Int {
	balance := v.storage[balanceStorageKey(address)]
	return new(uint256.Int).SetBytes(balance[:])
}

// PopulateStorage writes the given values into the storage.
func (v *VM) PopulateStorage(values map[vm.StorageKey]common.Hash) {
	for key, value := range values {
		v.storage[key] = value
	}
}

// StorageValue reads a single storage word.
func (v *VM) StorageValue(key vm.StorageKey) common.Hash {
	return v.storage[key]
}

// AddKnownContract registers a bytecode under its hash and marks it in the
// known-codes system contract.
func (v *VM) AddKnownContract(bytecode []byte, codeHash *uint256.Int) {
	v.storage[vm.NewStorageKey(SystemAddress(AddressKnownCodesStorage), codeHash)] = valueHash(uint256.NewInt(1))
	v.knownContracts[*codeHash] = bytecode
}

// AddDeployedContract sets a contract as deployed at the address and records
// its code hash in the account-code-storage system contract. If bytecode is
// nil the known-contracts map must already hold the code. It is an error to
// deploy over an occupied address.
func (v *VM) AddDeployedContract(address common.Address, codeHash *uint256.Int, bytecode []byte) error {
	if _, found := v.deployedContracts[address]; found {
		return fmt.Errorf("contract already deployed at %s", address.Hex())
	}
	if bytecode == nil {
		known, found := v.knownContracts[*codeHash]
		if !found {
			return fmt.Errorf("code hash %s not found in known contracts", codeHash.Hex())
		}
		bytecode = known
	}
	v.storage[vm.NewStorageKey(SystemAddress(AddressAccountCodeStorage), new(uint256.Int).SetBytes(address.Bytes()))] = valueHash(codeHash)
	v.deployedContracts[address] = bytecode
	return nil
}

// RemoveDeployedContract removes a deployed contract, undoing a failed
// deploy.
func (v *VM) RemoveDeployedContract(address common.Address) {
	delete(v.storage, vm.NewStorageKey(SystemAddress(AddressAccountCodeStorage), new(uint256.Int).SetBytes(address.Bytes())))
	delete(v.deployedContracts, address)
}

// IsDeployed reports whether a contract is deployed at the address.
func (v *VM) IsDeployed(address common.Address) bool {
	_, found := v.deployedContracts[address]
	return found
}

// ContractSize returns the bytecode size of a known contract, used for the
// deploy-size benchmark counter.
func (v *VM) ContractSize(codeHash *uint256.Int) uint64 {
	return uint64(len(v.knownContracts[*codeHash]))
}

// balanceKeyCache memoizes the derived balance slots: every mint, burn and
// balance read keccaks the same per-address preimage.
var balanceKeyCache, _ = lru.New[common.Address, uint256.Int](4096)

// balanceStorageKey derives the balance slot of an address in the base token
// contract: keccak of the padded address followed by a zero word.
func balanceStorageKey(address common.Address) vm.StorageKey {
	if key, found := balanceKeyCache.Get(address); found {
		return vm.StorageKey{Address: SystemAddress(AddressBaseToken), Key: key}
	}
	zero := make([]byte, 32)
	hash := keccak256(padAddress(address), zero)
	key := new(uint256.Int).SetBytes(hash[:])
	balanceKeyCache.Add(address, *key)
	return vm.StorageKey{Address: SystemAddress(AddressBaseToken), Key: *key}
}
