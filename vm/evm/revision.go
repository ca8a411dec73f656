// Package evm implements the standalone EVM backend on top of the
// go-ethereum interpreter, with its own in-memory state database and
// deterministic block context.
package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

// Revision selects the fork rule set a test runs under.
type Revision int

const (
	RevisionIstanbul Revision = iota
	RevisionBerlin
	RevisionLondon
	RevisionParis
	RevisionShanghai
	RevisionCancun
)

func (r Revision) String() string {
	switch r {
	case RevisionIstanbul:
		return "Istanbul"
	case RevisionBerlin:
		return "Berlin"
	case RevisionLondon:
		return "London"
	case RevisionParis:
		return "Paris"
	case RevisionShanghai:
		return "Shanghai"
	case RevisionCancun:
		return "Cancun"
	}
	return fmt.Sprintf("Revision(%d)", r)
}

// ParseRevision resolves a fork name from the command line. The match is
// case-insensitive.
func ParseRevision(name string) (Revision, error) {
	for r := RevisionIstanbul; r <= RevisionCancun; r++ {
		if strings.EqualFold(r.String(), name) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown revision %q", name)
}

// Block-context constants shared by all tests on this backend.
const (
	ChainID            = 1
	BlockGasLimit      = 20_000_000
	BaseFee            = 7
	GasPrice           = 3_000_000_000
	CurrentBlockNumber = 2
	BlockTimestampStep = 15

	coinbase                 = "0x7878787878787878787878787878787878787878"
	blockDifficultyPreParis  = "0x000000000000000000000000000000000000000000000000000000000bebc200"
	blockDifficultyPostParis = "0x0000000000000000000000000000000000000000000000000008e1bc9bf04000"
	zeroBlockHash            = "0x3737373737373737373737373737373737373737373737373737373737373737"
)

// BlockHash returns the deterministic hash of a historical block: the zero
// block hash plus the block number.
func BlockHash(number uint64) common.Hash {
	hash := uint256.MustFromHex(zeroBlockHash)
	hash.AddUint64(hash, number)
	return common.Hash(hash.Bytes32())
}

// makeChainConfig returns a chain config with every fork up to and including
// the revision enabled from genesis.
func makeChainConfig(revision Revision) params.ChainConfig {
	config := *params.AllEthashProtocolChanges
	config.ChainID = big.NewInt(ChainID)
	config.ByzantiumBlock = big.NewInt(0)
	config.IstanbulBlock = big.NewInt(0)
	config.BerlinBlock = nil
	config.LondonBlock = nil
	config.MergeNetsplitBlock = nil
	config.TerminalTotalDifficulty = nil
	config.ShanghaiTime = nil
	config.CancunTime = nil

	if revision >= RevisionBerlin {
		config.BerlinBlock = big.NewInt(0)
	}
	if revision >= RevisionLondon {
		config.LondonBlock = big.NewInt(0)
	}
	if revision >= RevisionParis {
		config.MergeNetsplitBlock = big.NewInt(0)
		config.TerminalTotalDifficulty = big.NewInt(0)
	}
	if revision >= RevisionShanghai {
		config.ShanghaiTime = new(uint64)
	}
	if revision >= RevisionCancun {
		config.CancunTime = new(uint64)
	}
	return config
}
