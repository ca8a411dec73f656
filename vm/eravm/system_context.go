package eravm

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/crosstest-vm/crosstest/vm"
)

// ContextTarget selects the block-context flavor seeded into the system
// context contract: the native zk-stack constants or the Ethereum-like
// constants used when running the EVM interpreter on top of it.
type ContextTarget int

const (
	TargetNative ContextTarget = iota
	TargetEVMInterpreter
)

// Storage slot layout of the system context contract.
const (
	systemContextChainIDPosition            = 0
	systemContextOriginPosition             = 1
	systemContextGasPricePosition           = 2
	systemContextBlockGasLimitPosition      = 3
	systemContextCoinbasePosition           = 4
	systemContextDifficultyPosition         = 5
	systemContextBaseFeePosition            = 6
	systemContextBlockHashPosition          = 8
	systemContextVirtualL2BlockInfoPosition = 268
	systemContextVirtualBlockUpgradePos     = 269
)

// Block-context constants shared by all tests.
const (
	ChainIDNative         = 280
	ChainIDEVM            = 1
	GasPrice              = 3000000000
	BlockGasLimitNative   = 1 << 30
	BlockGasLimitEVM      = 20000000
	BaseFee               = 7
	InitialBlockNumber    = 1
	CurrentBlockNumber    = 2
	BlockTimestampNative  = 0xdeadbeef
	BlockTimestampEVMStep = 15
)

const (
	txOrigin       = "0x0000000000000000000000009292929292929292929292929292929292929292"
	coinbaseNative = "0x0000000000000000000000000000000000008001"
	coinbaseEVM    = "0x7878787878787878787878787878787878787878"

	blockDifficultyPostParis = "0x0000000000000000000000000000000000000000000000000008e1bc9bf04000"
	blockDifficultyPreParis  = "0x000000000000000000000000000000000000000000000000000000000bebc200"

	zeroBlockHash = "0x3737373737373737373737373737373737373737373737373737373737373737"
)

// BlockHash returns the deterministic hash of a historical block: the zero
// block hash plus the block index.
func BlockHash(index uint64) common.Hash {
	hash := uint256.MustFromHex(zeroBlockHash)
	hash.AddUint64(hash, index)
	return common.Hash(hash.Bytes32())
}

// createSystemContextStorage returns the storage pre-seeded into the system
// context contract before any test runs.
func createSystemContextStorage(target ContextTarget) map[vm.StorageKey]common.Hash {
	chainID := uint64(ChainIDNative)
	coinbase := coinbaseNative
	blockTimestamp := uint64(BlockTimestampNative)
	blockGasLimit := uint64(BlockGasLimitNative)
	if target == TargetEVMInterpreter {
		chainID = ChainIDEVM
		coinbase = coinbaseEVM
		blockTimestamp = BlockTimestampEVMStep
		blockGasLimit = BlockGasLimitEVM
	}

	contextAddress := SystemAddress(AddressSystemContext)
	slot := func(position uint64) vm.StorageKey {
		return vm.NewStorageKey(contextAddress, uint256.NewInt(position))
	}

	storage := map[vm.StorageKey]common.Hash{
		slot(systemContextChainIDPosition):        valueHash(uint256.NewInt(chainID)),
		slot(systemContextOriginPosition):         common.HexToHash(txOrigin),
		slot(systemContextGasPricePosition):       valueHash(uint256.NewInt(GasPrice)),
		slot(systemContextBlockGasLimitPosition):  valueHash(uint256.NewInt(blockGasLimit)),
		slot(systemContextCoinbasePosition):       common.HexToHash(coinbase),
		slot(systemContextDifficultyPosition):     common.HexToHash(blockDifficultyPostParis),
		slot(systemContextBaseFeePosition):        valueHash(uint256.NewInt(BaseFee)),
		slot(systemContextVirtualBlockUpgradePos): valueHash(uint256.NewInt(CurrentBlockNumber)),
	}

	// The virtual L2 block info packs the block number and timestamp into
	// one word: number in the upper half, timestamp in the lower half.
	var blockInfo [32]byte
	binary.BigEndian.PutUint64(blockInfo[8:16], CurrentBlockNumber)
	binary.BigEndian.PutUint64(blockInfo[24:32], blockTimestamp)
	storage[slot(systemContextVirtualL2BlockInfoPosition)] = common.Hash(blockInfo)

	// Historical block hashes live in the mapping at the block-hash slot.
	for index := uint64(0); index < CurrentBlockNumber; index++ {
		var position [32]byte
		binary.BigEndian.PutUint64(position[24:], systemContextBlockHashPosition)
		var indexWord [32]byte
		binary.BigEndian.PutUint64(indexWord[24:], index)
		key := keccak256(indexWord[:], position[:])
		storage[vm.NewStorageKey(contextAddress, new(uint256.Int).SetBytes(key[:]))] = BlockHash(index)
	}

	if target == TargetEVMInterpreter {
		for _, address := range vm.RichAddresses() {
			storage[balanceStorageKey(address)] = valueHash(vm.RichBalance)
		}
		// Fund the ecrecover precompile with 1 wei to match the behavior of
		// upstream Solidity tests.
		storage[balanceStorageKey(SystemAddress(AddressEcrecover))] = valueHash(uint256.NewInt(1))
	}

	return storage
}

func valueHash(value *uint256.Int) common.Hash {
	return common.Hash(value.Bytes32())
}
