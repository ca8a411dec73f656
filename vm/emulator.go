package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

//go:generate mockgen -source emulator.go -destination emulator_mock.go -package vm

// Emulator is an opaque engine capable of executing zk-stack bytecode over
// the shared contract-state model. The harness never interprets opcodes
// itself: it prepares the state, hands it to an emulator, and merges the
// returned snapshot back. Emulators are required to be stateless with
// respect to the harness: all state travels through EmulationInput and
// EmulationSnapshot. Implementations must be safe for concurrent use.
type Emulator interface {
	// Run executes a single call and returns the resulting snapshot. The
	// error is non-nil only if the emulator itself failed to process the
	// input; a contract-level revert or panic is reported through the
	// snapshot's output instead.
	Run(input EmulationInput) (EmulationSnapshot, error)
}

// EmulationInput carries one call and a read-only view of the pre-state.
// Emulators must not mutate the maps they receive.
type EmulationInput struct {
	TestName     string
	Entry        common.Address
	Caller       common.Address
	ContextValue *uint256.Int
	Calldata     []byte
	Launch       *LaunchOptions

	DeployedContracts     map[common.Address][]byte
	KnownContracts        map[uint256.Int][]byte
	PublishedEVMBytecodes map[uint256.Int][]uint256.Int
	Storage               map[StorageKey]common.Hash

	DefaultAccountCodeHash uint256.Int
	EVMInterpreterCodeHash uint256.Int
}

// EmulationSnapshot is the post-state of a single emulated call.
type EmulationSnapshot struct {
	Result ExecutionResult

	// Storage is the complete post-state storage, replacing the harness view.
	Storage map[StorageKey]common.Hash
	// DeployedContracts holds contracts deployed during the call; entries
	// for already-deployed addresses are ignored on merge.
	DeployedContracts map[common.Address][]byte
	// PublishedEVMBytecodes holds bytecode blobs published during the call.
	PublishedEVMBytecodes map[uint256.Int][]uint256.Int
}
