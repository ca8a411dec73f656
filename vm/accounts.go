package vm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// RichBalance is the balance pre-funded to the rich test accounts on every
// backend.
var RichBalance = new(uint256.Int).Lsh(uint256.NewInt(1), 100)

// RichAddresses returns the accounts pre-funded for testing. The set is
// identical across backends so value-bearing cases behave the same
// everywhere.
func RichAddresses() []common.Address {
	addresses := make([]common.Address, 0, 10)
	for i := 0; i <= 9; i++ {
		address := common.HexToAddress(fmt.Sprintf("0x121212121212121212121212121212000000%d012", i))
		addresses = append(addresses, address)
	}
	return addresses
}
