// Package output defines the observable result of a single contract
// invocation and the structural equality used to compare an observed result
// against an expected one. Expected values may be wildcards, so the
// comparison is intentionally asymmetric-friendly: a wildcard matches any
// concrete word, and two wildcards always match.
package output

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Value is a single 256-bit word of return data, an event topic, or an event
// value. It is either a certain word or the wildcard used in expectations.
type Value struct {
	word    uint256.Int
	certain bool
}

// Uncertain is the wildcard value. It matches any certain value.
var Uncertain = Value{}

// Certain wraps a concrete 256-bit word.
func Certain(word *uint256.Int) Value {
	return Value{word: *word, certain: true}
}

// CertainUint64 is a shortcut for small literals, mostly used in tests and
// expected outputs.
func CertainUint64(value uint64) Value {
	return Value{word: *uint256.NewInt(value), certain: true}
}

// CertainAddress wraps an address left-padded to a 256-bit word.
func CertainAddress(address common.Address) Value {
	var word uint256.Int
	word.SetBytes(address.Bytes())
	return Value{word: word, certain: true}
}

// CertainBytes32 wraps a 32-byte big-endian word.
func CertainBytes32(data [32]byte) Value {
	var word uint256.Int
	word.SetBytes32(data[:])
	return Value{word: word, certain: true}
}

// Word returns the wrapped word and whether the value is certain. The word
// is zero for the wildcard.
func (v Value) Word() (uint256.Int, bool) {
	return v.word, v.certain
}

// IsCertain reports whether the value carries a concrete word.
func (v Value) IsCertain() bool {
	return v.certain
}

// Match implements the wildcard comparison rule: values match if either side
// is the wildcard or both words are equal.
func (v Value) Match(o Value) bool {
	if !v.certain || !o.certain {
		return true
	}
	return v.word == o.word
}

func (v Value) String() string {
	if !v.certain {
		return "*"
	}
	return fmt.Sprintf("0x%064x", &v.word)
}

// matchValues compares two value lists element-wise with the wildcard rule.
// Lists of different lengths never match.
func matchValues(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Match(b[i]) {
			return false
		}
	}
	return true
}
