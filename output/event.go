package output

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Event is one emitted log entry. The address is optional: expectations that
// do not pin the emitter leave it nil, and such events match logs from any
// address.
type Event struct {
	Address *common.Address
	Topics  []Value
	Values  []Value
}

// NewEvent constructs an event with a pinned emitter address.
func NewEvent(address common.Address, topics, values []Value) Event {
	return Event{Address: &address, Topics: topics, Values: values}
}

// NewAnonymousEvent constructs an event without a pinned emitter address.
func NewAnonymousEvent(topics, values []Value) Event {
	return Event{Topics: topics, Values: values}
}

// Match reports whether two events are considered equal. Addresses are only
// compared when both sides specify one. Topic and value lists must have
// equal lengths and compare element-wise with the wildcard rule.
func (e Event) Match(o Event) bool {
	if e.Address != nil && o.Address != nil && *e.Address != *o.Address {
		return false
	}
	return matchValues(e.Topics, o.Topics) && matchValues(e.Values, o.Values)
}

func (e Event) String() string {
	var sb strings.Builder
	sb.WriteString("event{")
	if e.Address != nil {
		fmt.Fprintf(&sb, "address: %s, ", e.Address.Hex())
	}
	fmt.Fprintf(&sb, "topics: %v, values: %v}", e.Topics, e.Values)
	return sb.String()
}
