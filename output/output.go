package output

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// WordLength is the length of a single return-data word in bytes.
const WordLength = 32

// Output is the observable result of one VM invocation: the return data
// split into 256-bit words, the exception flag, and the emitted events.
type Output struct {
	ReturnData []Value
	Exception  bool
	Events     []Event
}

// New constructs an output from its parts.
func New(returnData []Value, exception bool, events []Event) Output {
	return Output{ReturnData: returnData, Exception: exception, Events: events}
}

// FromWords chunks raw return data into 32-byte big-endian words, padding a
// short trailing chunk with zero bytes on the right.
func FromWords(data []byte, exception bool, events []Event) Output {
	values := make([]Value, 0, (len(data)+WordLength-1)/WordLength)
	for offset := 0; offset < len(data); offset += WordLength {
		var word [WordLength]byte
		copy(word[:], data[offset:])
		values = append(values, CertainBytes32(word))
	}
	return Output{ReturnData: values, Exception: exception, Events: events}
}

// FromUint is a single-word success output.
func FromUint(value uint64) Output {
	return Output{ReturnData: []Value{CertainUint64(value)}}
}

// FromBool is a single-word success output encoding a boolean as 0 or 1.
func FromBool(value bool) Output {
	if value {
		return FromUint(1)
	}
	return FromUint(0)
}

// FromWord is a single-word success output.
func FromWord(word *uint256.Int) Output {
	return Output{ReturnData: []Value{Certain(word)}}
}

// Match reports whether two outputs are considered equal under the wildcard
// rule. Exception flags must be equal, return data and event lists must have
// equal lengths, and elements compare with Value.Match and Event.Match.
func (o Output) Match(other Output) bool {
	if o.Exception != other.Exception {
		return false
	}
	if len(o.Events) != len(other.Events) {
		return false
	}
	if !matchValues(o.ReturnData, other.ReturnData) {
		return false
	}
	for i := range o.Events {
		if !o.Events[i].Match(other.Events[i]) {
			return false
		}
	}
	return true
}

func (o Output) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "output{exception: %t, data: %v", o.Exception, o.ReturnData)
	if len(o.Events) > 0 {
		fmt.Fprintf(&sb, ", events: %v", o.Events)
	}
	sb.WriteString("}")
	return sb.String()
}
