package eravm

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/holiman/uint256"
)

// HashBytecode computes the versioned code hash under which the execution
// engine knows a bytecode: a sha256 digest whose leading word is replaced by
// the version marker 1.0 and the bytecode length in 32-byte words. The word
// count must be odd and fit 16 bits.
func HashBytecode(code []byte) (uint256.Int, error) {
	var hash uint256.Int
	if len(code) == 0 || len(code)%wordLength != 0 {
		return hash, fmt.Errorf("bytecode length %d is not a positive multiple of %d", len(code), wordLength)
	}
	words := len(code) / wordLength
	if words%2 == 0 {
		return hash, fmt.Errorf("bytecode length of %d words is even", words)
	}
	if words > math.MaxUint16 {
		return hash, fmt.Errorf("bytecode length of %d words exceeds the hash format", words)
	}

	digest := sha256.Sum256(code)
	digest[0] = 1
	digest[1] = 0
	binary.BigEndian.PutUint16(digest[2:4], uint16(words))
	hash.SetBytes(digest[:])
	return hash, nil
}

// NewBuild wraps a bytecode together with its versioned hash.
func NewBuild(code []byte) (Build, error) {
	hash, err := HashBytecode(code)
	if err != nil {
		return Build{}, err
	}
	return Build{Bytecode: code, CodeHash: hash}, nil
}

// LoadSystemContracts reads a pre-built system contract bundle from a
// directory. The bundle consists of DefaultAccount.zbin, EvmInterpreter.zbin
// and MinimalProxy.zbin plus one <address>.zbin per reserved system address.
func LoadSystemContracts(dir string) (*SystemContracts, error) {
	load := func(name string) (Build, error) {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return Build{}, fmt.Errorf("failed to read system contract %s: %w", name, err)
		}
		build, err := NewBuild(data)
		if err != nil {
			return Build{}, fmt.Errorf("invalid system contract %s: %w", name, err)
		}
		return build, nil
	}

	contracts := &SystemContracts{}
	var err error
	if contracts.DefaultAccount, err = load("DefaultAccount.zbin"); err != nil {
		return nil, err
	}
	if contracts.EVMInterpreter, err = load("EvmInterpreter.zbin"); err != nil {
		return nil, err
	}
	if contracts.MinimalProxy, err = load("MinimalProxy.zbin"); err != nil {
		return nil, err
	}
	for _, address := range SystemContractAddresses() {
		build, err := load(address.Hex() + ".zbin")
		if err != nil {
			return nil, err
		}
		contracts.Deployed = append(contracts.Deployed, DeployedSystemContract{
			Address: address,
			Build:   build,
		})
	}

	if err := contracts.Validate(); err != nil {
		return nil, err
	}
	return contracts, nil
}
