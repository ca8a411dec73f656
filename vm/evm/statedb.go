package evm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/stateless"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/trie/utils"
	"github.com/holiman/uint256"
	"golang.org/x/exp/maps"
)

type account struct {
	balance        uint256.Int
	nonce          uint64
	code           []byte
	selfdestructed bool
}

// StateDB is an in-memory implementation of the go-ethereum StateDB
// interface. It holds the whole world state in plain maps and supports
// snapshots through deep copies, which is affordable at the state sizes the
// tests produce.
type StateDB struct {
	accounts  map[common.Address]*account
	storage   map[common.Address]map[common.Hash]common.Hash
	committed map[common.Address]map[common.Hash]common.Hash
	transient map[common.Address]map[common.Hash]common.Hash

	accessedAddresses map[common.Address]bool
	accessedSlots     map[common.Address]map[common.Hash]bool
	createdContracts  map[common.Address]bool

	logs      []*types.Log
	refund    uint64
	snapshots []*StateDB
}

// NewStateDB creates an empty world state.
func NewStateDB() *StateDB {
	return &StateDB{
		accounts:          map[common.Address]*account{},
		storage:           map[common.Address]map[common.Hash]common.Hash{},
		committed:         map[common.Address]map[common.Hash]common.Hash{},
		transient:         map[common.Address]map[common.Hash]common.Hash{},
		accessedAddresses: map[common.Address]bool{},
		accessedSlots:     map[common.Address]map[common.Hash]bool{},
		createdContracts:  map[common.Address]bool{},
	}
}

func (s *StateDB) getOrCreateAccount(addr common.Address) *account {
	if a, found := s.accounts[addr]; found {
		return a
	}
	a := &account{}
	s.accounts[addr] = a
	return a
}

// Copy returns an independent deep copy of the state. The snapshot stack is
// not carried over.
func (s *StateDB) Copy() *StateDB {
	copyStorage := func(in map[common.Address]map[common.Hash]common.Hash) map[common.Address]map[common.Hash]common.Hash {
		out := make(map[common.Address]map[common.Hash]common.Hash, len(in))
		for addr, slots := range in {
			out[addr] = maps.Clone(slots)
		}
		return out
	}

	clone := NewStateDB()
	for addr, a := range s.accounts {
		copied := *a
		clone.accounts[addr] = &copied
	}
	clone.storage = copyStorage(s.storage)
	clone.committed = copyStorage(s.committed)
	clone.transient = copyStorage(s.transient)
	clone.accessedAddresses = maps.Clone(s.accessedAddresses)
	for addr, slots := range s.accessedSlots {
		clone.accessedSlots[addr] = maps.Clone(slots)
	}
	clone.createdContracts = maps.Clone(s.createdContracts)
	clone.logs = append([]*types.Log{}, s.logs...)
	clone.refund = s.refund
	return clone
}

// BeginTransaction resets the per-transaction state: the committed storage
// baseline, transient storage, access lists, logs, refunds and snapshots.
func (s *StateDB) BeginTransaction() {
	s.committed = map[common.Address]map[common.Hash]common.Hash{}
	for addr, slots := range s.storage {
		s.committed[addr] = maps.Clone(slots)
	}
	s.transient = map[common.Address]map[common.Hash]common.Hash{}
	s.accessedAddresses = map[common.Address]bool{}
	s.accessedSlots = map[common.Address]map[common.Hash]bool{}
	s.createdContracts = map[common.Address]bool{}
	s.logs = nil
	s.refund = 0
	s.snapshots = nil
}

// Logs returns the logs emitted since the last BeginTransaction.
func (s *StateDB) Logs() []*types.Log {
	return s.logs
}

func (s *StateDB) CreateAccount(addr common.Address) {
	s.getOrCreateAccount(addr)
}

func (s *StateDB) CreateContract(addr common.Address) {
	s.createdContracts[addr] = true
}

func (s *StateDB) SubBalance(addr common.Address, diff *uint256.Int, _ tracing.BalanceChangeReason) {
	a := s.getOrCreateAccount(addr)
	a.balance.Sub(&a.balance, diff)
}

func (s *StateDB) AddBalance(addr common.Address, diff *uint256.Int, _ tracing.BalanceChangeReason) {
	a := s.getOrCreateAccount(addr)
	a.balance.Add(&a.balance, diff)
}

func (s *StateDB) GetBalance(addr common.Address) *uint256.Int {
	if a, found := s.accounts[addr]; found {
		return new(uint256.Int).Set(&a.balance)
	}
	return uint256.NewInt(0)
}

func (s *StateDB) GetNonce(addr common.Address) uint64 {
	if a, found := s.accounts[addr]; found {
		return a.nonce
	}
	return 0
}

func (s *StateDB) SetNonce(addr common.Address, nonce uint64) {
	s.getOrCreateAccount(addr).nonce = nonce
}

func (s *StateDB) GetCodeHash(addr common.Address) common.Hash {
	a, found := s.accounts[addr]
	if !found {
		return common.Hash{}
	}
	if len(a.code) == 0 {
		return types.EmptyCodeHash
	}
	return crypto.Keccak256Hash(a.code)
}

func (s *StateDB) GetCode(addr common.Address) []byte {
	if a, found := s.accounts[addr]; found {
		return a.code
	}
	return nil
}

func (s *StateDB) SetCode(addr common.Address, code []byte) {
	s.getOrCreateAccount(addr).code = code
}

func (s *StateDB) GetCodeSize(addr common.Address) int {
	return len(s.GetCode(addr))
}

func (s *StateDB) AddRefund(value uint64) {
	s.refund += value
}

func (s *StateDB) SubRefund(value uint64) {
	s.refund -= value
}

func (s *StateDB) GetRefund() uint64 {
	return s.refund
}

func (s *StateDB) GetCommittedState(addr common.Address, key common.Hash) common.Hash {
	return s.committed[addr][key]
}

func (s *StateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	return s.storage[addr][key]
}

func (s *StateDB) SetState(addr common.Address, key, value common.Hash) {
	slots, found := s.storage[addr]
	if !found {
		slots = map[common.Hash]common.Hash{}
		s.storage[addr] = slots
	}
	slots[key] = value
}

func (s *StateDB) GetStorageRoot(addr common.Address) common.Hash {
	// Only consulted by the create collision check; an empty root makes a
	// fresh address always usable.
	return common.Hash{}
}

func (s *StateDB) GetTransientState(addr common.Address, key common.Hash) common.Hash {
	return s.transient[addr][key]
}

func (s *StateDB) SetTransientState(addr common.Address, key, value common.Hash) {
	slots, found := s.transient[addr]
	if !found {
		slots = map[common.Hash]common.Hash{}
		s.transient[addr] = slots
	}
	slots[key] = value
}

func (s *StateDB) SelfDestruct(addr common.Address) {
	a := s.getOrCreateAccount(addr)
	a.balance.Clear()
	a.selfdestructed = true
}

func (s *StateDB) HasSelfDestructed(addr common.Address) bool {
	if a, found := s.accounts[addr]; found {
		return a.selfdestructed
	}
	return false
}

func (s *StateDB) Selfdestruct6780(addr common.Address) {
	if s.createdContracts[addr] {
		s.SelfDestruct(addr)
	}
}

func (s *StateDB) Exist(addr common.Address) bool {
	_, found := s.accounts[addr]
	return found
}

func (s *StateDB) Empty(addr common.Address) bool {
	a, found := s.accounts[addr]
	return !found || (a.balance.IsZero() && a.nonce == 0 && len(a.code) == 0)
}

func (s *StateDB) AddressInAccessList(addr common.Address) bool {
	return s.accessedAddresses[addr]
}

func (s *StateDB) SlotInAccessList(addr common.Address, slot common.Hash) (addressOk, slotOk bool) {
	return s.accessedAddresses[addr], s.accessedSlots[addr][slot]
}

func (s *StateDB) AddAddressToAccessList(addr common.Address) {
	s.accessedAddresses[addr] = true
}

func (s *StateDB) AddSlotToAccessList(addr common.Address, slot common.Hash) {
	s.AddAddressToAccessList(addr)
	slots, found := s.accessedSlots[addr]
	if !found {
		slots = map[common.Hash]bool{}
		s.accessedSlots[addr] = slots
	}
	slots[slot] = true
}

func (s *StateDB) Prepare(rules params.Rules, sender, coinbase common.Address, dest *common.Address, precompiles []common.Address, txAccesses types.AccessList) {
	if rules.IsBerlin {
		s.AddAddressToAccessList(sender)
		if dest != nil {
			s.AddAddressToAccessList(*dest)
		}
		for _, addr := range precompiles {
			s.AddAddressToAccessList(addr)
		}
		for _, el := range txAccesses {
			s.AddAddressToAccessList(el.Address)
			for _, key := range el.StorageKeys {
				s.AddSlotToAccessList(el.Address, key)
			}
		}
		if rules.IsShanghai {
			s.AddAddressToAccessList(coinbase)
		}
	}
}

func (s *StateDB) Snapshot() int {
	s.snapshots = append(s.snapshots, s.Copy())
	return len(s.snapshots) - 1
}

func (s *StateDB) RevertToSnapshot(id int) {
	backup := s.snapshots[id]
	s.accounts = backup.accounts
	s.storage = backup.storage
	s.committed = backup.committed
	s.transient = backup.transient
	s.accessedAddresses = backup.accessedAddresses
	s.accessedSlots = backup.accessedSlots
	s.createdContracts = backup.createdContracts
	s.logs = backup.logs
	s.refund = backup.refund
	s.snapshots = s.snapshots[:id]
}

func (s *StateDB) AddLog(log *types.Log) {
	s.logs = append(s.logs, log)
}

func (s *StateDB) AddPreimage(common.Hash, []byte) {
	// ignored: preimages are not inspected by any test
}

func (s *StateDB) PointCache() *utils.PointCache {
	// see https://eips.ethereum.org/EIPS/eip-4762
	panic("should not be needed by revisions up to Cancun")
}

func (s *StateDB) Witness() *stateless.Witness {
	// not relevant for revisions up to Cancun
	return nil
}
