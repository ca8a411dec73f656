package evm

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	geth "github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"

	"github.com/crosstest-vm/crosstest/output"
	"github.com/crosstest-vm/crosstest/vm"
)

// VM is the standalone EVM backend. It drives the go-ethereum interpreter
// through its call and create entry points against an in-memory state
// database. A VM value is not safe for concurrent use; clone per work unit.
type VM struct {
	db        *StateDB
	revision  Revision
	addresses *AddressIterator
}

// New creates a VM for the given revision with the rich accounts funded.
// The start nonce seeds the address iterator for callers whose accounts
// begin above zero.
func New(revision Revision, startNonce uint64) *VM {
	db := NewStateDB()
	for _, address := range vm.RichAddresses() {
		db.AddBalance(address, vm.RichBalance, 0)
	}
	return &VM{
		db:        db,
		revision:  revision,
		addresses: NewAddressIterator(startNonce),
	}
}

// Clone returns an independent copy of the VM.
func (v *VM) Clone() *VM {
	return &VM{
		db:        v.db.Copy(),
		revision:  v.revision,
		addresses: v.addresses.Clone(),
	}
}

// Revision returns the fork rule set the VM runs under.
func (v *VM) Revision() Revision {
	return v.revision
}

// Execute runs a call transaction. A nonzero value is minted to the caller
// first so the transfer inside the interpreter can succeed.
func (v *VM) Execute(testName string, entry, caller common.Address, value *uint256.Int, calldata []byte) (vm.ExecutionResult, error) {
	if value == nil {
		value = uint256.NewInt(0)
	} else {
		v.MintEther(caller, value)
	}

	evm, rules := v.newEVM()
	v.db.BeginTransaction()
	v.db.Prepare(rules, caller, evm.Context.Coinbase, &entry, geth.ActivePrecompiles(rules), nil)

	ret, gasLeft, err := evm.Call(geth.AccountRef(caller), entry, calldata, BlockGasLimit, value)
	out, convErr := convertResult(ret, err, v.db.Logs())
	if convErr != nil {
		return vm.ExecutionResult{}, convErr
	}
	return vm.NewExecutionResult(out, 0, 0, BlockGasLimit-gasLeft), nil
}

// Deploy runs a create transaction from the given init code. The resulting
// address must match the iterator's prediction; the nonce advances only on
// success. The output mirrors a deploy call: one word holding the address.
func (v *VM) Deploy(testName string, caller common.Address, initCode []byte, value *uint256.Int) (vm.ExecutionResult, error) {
	if value == nil {
		value = uint256.NewInt(0)
	} else {
		v.MintEther(caller, value)
	}

	predicted := v.addresses.Next(caller, false)
	v.db.SetNonce(caller, v.addresses.Nonce(caller))

	evm, rules := v.newEVM()
	v.db.BeginTransaction()
	v.db.Prepare(rules, caller, evm.Context.Coinbase, nil, geth.ActivePrecompiles(rules), nil)

	ret, address, gasLeft, err := evm.Create(geth.AccountRef(caller), initCode, BlockGasLimit, value)
	out, convErr := convertResult(ret, err, v.db.Logs())
	if convErr != nil {
		return vm.ExecutionResult{}, convErr
	}

	if out.Exception {
		// The create entry point bumps the caller nonce before running the
		// init code; roll it back so the next attempt predicts the same
		// address.
		v.db.SetNonce(caller, v.addresses.Nonce(caller))
		return vm.NewExecutionResult(out, 0, 0, BlockGasLimit-gasLeft), nil
	}

	if address != predicted {
		return vm.ExecutionResult{}, fmt.Errorf("deployed to %s, predicted %s", address.Hex(), predicted.Hex())
	}
	v.addresses.IncrementNonce(caller)

	out = output.New([]output.Value{output.CertainAddress(address)}, false, out.Events)
	return vm.NewExecutionResult(out, 0, 0, BlockGasLimit-gasLeft), nil
}

// MintEther adds the given amount to the balance of the address.
func (v *VM) MintEther(address common.Address, amount *uint256.Int) {
	v.db.AddBalance(address, amount, 0)
}

// BurnEther removes the given amount from the balance of the address.
func (v *VM) BurnEther(address common.Address, amount *uint256.Int) {
	v.db.SubBalance(address, amount, 0)
}

// GetBalance returns the balance of the address.
func (v *VM) GetBalance(address common.Address) *uint256.Int {
	return v.db.GetBalance(address)
}

// PopulateStorage writes the given values into the storage.
func (v *VM) PopulateStorage(values map[vm.StorageKey]common.Hash) {
	for key, value := range values {
		v.db.SetState(key.Address, common.Hash(key.Key.Bytes32()), value)
	}
}

// IsStorageEmpty reports whether every storage value outside the precompile
// range is zero.
func (v *VM) IsStorageEmpty() bool {
	boundary := common.BytesToAddress([]byte{0xff})
	for address, slots := range v.db.storage {
		if address.Cmp(boundary) <= 0 {
			continue
		}
		for _, value := range slots {
			if value != (common.Hash{}) {
				return false
			}
		}
	}
	return true
}

// AddressIterator exposes the iterator for address prediction in test
// scripts.
func (v *VM) AddressIterator() *AddressIterator {
	return v.addresses
}

// newEVM builds a fresh go-ethereum EVM over the current state with the
// deterministic block context of this backend.
func (v *VM) newEVM() (*geth.EVM, params.Rules) {
	chainConfig := makeChainConfig(v.revision)

	blockCtx := geth.BlockContext{
		CanTransfer: func(db geth.StateDB, addr common.Address, value *uint256.Int) bool {
			return db.GetBalance(addr).Cmp(value) >= 0
		},
		Transfer: func(db geth.StateDB, sender, recipient common.Address, value *uint256.Int) {
			db.SubBalance(sender, value, 0)
			db.AddBalance(recipient, value, 0)
		},
		GetHash:     BlockHash,
		Coinbase:    common.HexToAddress(coinbase),
		BlockNumber: big.NewInt(CurrentBlockNumber),
		Time:        CurrentBlockNumber * BlockTimestampStep,
		GasLimit:    BlockGasLimit,
		BaseFee:     big.NewInt(BaseFee),
		BlobBaseFee: big.NewInt(1),
		Difficulty:  common.HexToHash(blockDifficultyPreParis).Big(),
	}
	if v.revision >= RevisionParis {
		random := common.HexToHash(blockDifficultyPostParis)
		blockCtx.Random = &random
		blockCtx.Difficulty = big.NewInt(0)
	}

	txCtx := geth.TxContext{
		Origin:   common.Address{},
		GasPrice: big.NewInt(GasPrice),
	}

	evm := geth.NewEVM(blockCtx, txCtx, v.db, &chainConfig, geth.Config{})
	rules := chainConfig.Rules(blockCtx.BlockNumber, blockCtx.Random != nil, blockCtx.Time)
	return evm, rules
}

// convertResult maps the interpreter outcome onto the comparable output
// model: reverts and code-level failures become exceptions, anything else is
// an internal error.
func convertResult(ret []byte, err error, logs []*types.Log) (output.Output, error) {
	if err == nil {
		return output.FromWords(ret, false, convertLogs(logs)), nil
	}
	if errors.Is(err, geth.ErrExecutionReverted) {
		return output.FromWords(ret, true, nil), nil
	}

	switch {
	case errors.Is(err, geth.ErrOutOfGas),
		errors.Is(err, geth.ErrCodeStoreOutOfGas),
		errors.Is(err, geth.ErrDepth),
		errors.Is(err, geth.ErrInsufficientBalance),
		errors.Is(err, geth.ErrContractAddressCollision),
		errors.Is(err, geth.ErrMaxCodeSizeExceeded),
		errors.Is(err, geth.ErrMaxInitCodeSizeExceeded),
		errors.Is(err, geth.ErrInvalidJump),
		errors.Is(err, geth.ErrWriteProtection),
		errors.Is(err, geth.ErrReturnDataOutOfBounds),
		errors.Is(err, geth.ErrGasUintOverflow),
		errors.Is(err, geth.ErrInvalidCode):
		return output.New(nil, true, nil), nil
	}

	var stackOverflow *geth.ErrStackOverflow
	var stackUnderflow *geth.ErrStackUnderflow
	var invalidOpCode *geth.ErrInvalidOpCode
	if errors.As(err, &stackOverflow) || errors.As(err, &stackUnderflow) || errors.As(err, &invalidOpCode) {
		return output.New(nil, true, nil), nil
	}

	return output.Output{}, fmt.Errorf("internal EVM error: %w", err)
}

// convertLogs turns interpreter logs into comparable events: topics and
// 32-byte data chunks become certain words.
func convertLogs(logs []*types.Log) []output.Event {
	events := make([]output.Event, 0, len(logs))
	for _, log := range logs {
		topics := make([]output.Value, 0, len(log.Topics))
		for _, topic := range log.Topics {
			topics = append(topics, output.CertainBytes32(topic))
		}
		events = append(events, output.NewEvent(log.Address, topics, output.FromWords(log.Data, false, nil).ReturnData))
	}
	return events
}
