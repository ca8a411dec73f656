package output

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestValue_WildcardMatchesAnything(t *testing.T) {
	five := CertainUint64(5)

	if !Uncertain.Match(five) {
		t.Errorf("wildcard should match a certain value")
	}
	if !five.Match(Uncertain) {
		t.Errorf("a certain value should match the wildcard")
	}
	if !Uncertain.Match(Uncertain) {
		t.Errorf("two wildcards should match")
	}
}

func TestValue_CertainValuesCompareByWord(t *testing.T) {
	if !CertainUint64(5).Match(CertainUint64(5)) {
		t.Errorf("equal words should match")
	}
	if CertainUint64(5).Match(CertainUint64(6)) {
		t.Errorf("different words should not match")
	}
}

func TestValue_WordReportsCertainty(t *testing.T) {
	word, certain := CertainUint64(42).Word()
	if !certain || word.Uint64() != 42 {
		t.Errorf("want certain 42, got %v (certain=%t)", &word, certain)
	}
	if _, certain := Uncertain.Word(); certain {
		t.Errorf("the wildcard must not report a certain word")
	}
}

func TestOutput_MatchFollowsTheWildcardRule(t *testing.T) {
	tests := map[string]struct {
		a, b  Output
		match bool
	}{
		"certain-vs-wildcard": {
			a:     New([]Value{CertainUint64(5)}, false, nil),
			b:     New([]Value{Uncertain}, false, nil),
			match: true,
		},
		"certain-mismatch": {
			a:     New([]Value{CertainUint64(5)}, false, nil),
			b:     New([]Value{CertainUint64(6)}, false, nil),
			match: false,
		},
		"exception-mismatch-beats-data": {
			a:     New([]Value{Uncertain}, true, nil),
			b:     New([]Value{Uncertain}, false, nil),
			match: false,
		},
		"length-mismatch": {
			a:     New([]Value{CertainUint64(1), CertainUint64(2)}, false, nil),
			b:     New([]Value{CertainUint64(1)}, false, nil),
			match: false,
		},
		"event-count-mismatch": {
			a:     New(nil, false, []Event{NewAnonymousEvent(nil, nil)}),
			b:     New(nil, false, nil),
			match: false,
		},
		"empty": {
			a:     Output{},
			b:     Output{},
			match: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if want, got := test.match, test.a.Match(test.b); want != got {
				t.Errorf("match is broken, want %t, got %t", want, got)
			}
			// The rule is symmetric.
			if want, got := test.match, test.b.Match(test.a); want != got {
				t.Errorf("match is not symmetric, want %t, got %t", want, got)
			}
		})
	}
}

func TestEvent_AddressComparedOnlyWhenBothPresent(t *testing.T) {
	a := common.HexToAddress("0x0102030405060708090a0b0c0d0e0f1011121314")
	b := common.HexToAddress("0x1414131211100f0e0d0c0b0a090807060504030201")

	pinnedA := NewEvent(a, nil, nil)
	pinnedB := NewEvent(b, nil, nil)
	anonymous := NewAnonymousEvent(nil, nil)

	if pinnedA.Match(pinnedB) {
		t.Errorf("events pinned to different addresses should not match")
	}
	if !pinnedA.Match(anonymous) || !anonymous.Match(pinnedB) {
		t.Errorf("an unpinned event should match any emitter")
	}
}

func TestEvent_TopicAndValueListsRequireEqualLengths(t *testing.T) {
	one := NewAnonymousEvent([]Value{CertainUint64(1)}, nil)
	two := NewAnonymousEvent([]Value{CertainUint64(1), CertainUint64(2)}, nil)
	if one.Match(two) {
		t.Errorf("topic lists of different lengths should not match")
	}

	short := NewAnonymousEvent(nil, []Value{Uncertain})
	long := NewAnonymousEvent(nil, []Value{Uncertain, Uncertain})
	if short.Match(long) {
		t.Errorf("value lists of different lengths should not match, even for wildcards")
	}
}

func TestOutput_FromWordsPadsTheTrailingChunk(t *testing.T) {
	data := make([]byte, 33)
	data[31] = 0x01
	data[32] = 0xab

	got := FromWords(data, false, nil)
	if len(got.ReturnData) != 2 {
		t.Fatalf("want 2 words, got %d", len(got.ReturnData))
	}

	want := uint256.NewInt(1)
	if word, _ := got.ReturnData[0].Word(); word != *want {
		t.Errorf("first word is broken, want %v, got %v", want, &word)
	}

	var padded uint256.Int
	padded.SetBytes([]byte{0xab})
	padded.Lsh(&padded, 31*8)
	if word, _ := got.ReturnData[1].Word(); word != padded {
		t.Errorf("trailing word should be right-padded, want %v, got %v", &padded, &word)
	}
}

func TestOutput_FromBool(t *testing.T) {
	if !FromBool(true).Match(FromUint(1)) || !FromBool(false).Match(FromUint(0)) {
		t.Errorf("boolean outputs should encode as single 0/1 words")
	}
}
