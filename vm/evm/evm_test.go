package evm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/crosstest-vm/crosstest/output"
	"github.com/crosstest-vm/crosstest/vm"
)

var (
	// Runtime code returning the word 42.
	//
	//	PUSH1 42; PUSH1 0; MSTORE; PUSH1 32; PUSH1 0; RETURN
	returnFortyTwo = common.Hex2Bytes("602a60005260206000f3")

	// Init code deploying returnFortyTwo via CODECOPY. The runtime starts
	// at offset 12, right after the init sequence.
	//
	//	PUSH1 10; PUSH1 12; PUSH1 0; CODECOPY; PUSH1 10; PUSH1 0; RETURN
	deployFortyTwo = common.Hex2Bytes("600a600c600039600a6000f3602a60005260206000f3")

	// Init code that always reverts.
	//
	//	PUSH1 0; PUSH1 0; REVERT
	revertingInit = common.Hex2Bytes("60006000fd")

	// Runtime code emitting one LOG0 with the word 42 as data.
	//
	//	PUSH1 42; PUSH1 0; MSTORE; PUSH1 32; PUSH1 0; LOG0; STOP
	logFortyTwo = common.Hex2Bytes("602a60005260206000a000")
)

func TestVM_DeployAndCall(t *testing.T) {
	caller := vm.RichAddresses()[0]

	for revision := RevisionIstanbul; revision <= RevisionCancun; revision++ {
		t.Run(revision.String(), func(t *testing.T) {
			v := New(revision, 0)
			predicted := crypto.CreateAddress(caller, 0)

			result, err := v.Deploy("deploy", caller, deployFortyTwo, nil)
			if err != nil {
				t.Fatalf("deploy failed: %v", err)
			}
			want := output.New([]output.Value{output.CertainAddress(predicted)}, false, nil)
			if !want.Match(result.Output) {
				t.Fatalf("unexpected deploy output, wanted %v, got %v", want, result.Output)
			}

			result, err = v.Execute("call", predicted, caller, nil, nil)
			if err != nil {
				t.Fatalf("call failed: %v", err)
			}
			if want := output.FromUint(42); !want.Match(result.Output) {
				t.Errorf("unexpected call output, wanted %v, got %v", want, result.Output)
			}
			if result.Gas == 0 || result.Gas >= BlockGasLimit {
				t.Errorf("implausible gas usage %d", result.Gas)
			}
		})
	}
}

func TestVM_ConstructorRevertKeepsAddressFree(t *testing.T) {
	caller := vm.RichAddresses()[0]
	v := New(RevisionCancun, 0)
	predicted := crypto.CreateAddress(caller, 0)

	result, err := v.Deploy("revert", caller, revertingInit, nil)
	if err != nil {
		t.Fatalf("deploy failed: %v", err)
	}
	if !result.Output.Exception {
		t.Fatalf("constructor revert not reported")
	}

	// The failed deploy must not consume the address.
	result, err = v.Deploy("retry", caller, deployFortyTwo, nil)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	want := output.New([]output.Value{output.CertainAddress(predicted)}, false, nil)
	if !want.Match(result.Output) {
		t.Errorf("failed deploy advanced the address, wanted %v, got %v", want, result.Output)
	}
}

func TestVM_StartNonceShiftsPrediction(t *testing.T) {
	caller := vm.RichAddresses()[0]
	v := New(RevisionCancun, 1)

	result, err := v.Deploy("deploy", caller, deployFortyTwo, nil)
	if err != nil {
		t.Fatalf("deploy failed: %v", err)
	}
	want := output.New([]output.Value{output.CertainAddress(crypto.CreateAddress(caller, 1))}, false, nil)
	if !want.Match(result.Output) {
		t.Errorf("unexpected deploy output, wanted %v, got %v", want, result.Output)
	}
}

func TestVM_LogsBecomeEvents(t *testing.T) {
	caller := vm.RichAddresses()[0]
	v := New(RevisionCancun, 0)
	address := crypto.CreateAddress(caller, 0)
	v.db.SetCode(address, logFortyTwo)

	result, err := v.Execute("log", address, caller, nil, nil)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}

	if want, got := 1, len(result.Output.Events); want != got {
		t.Fatalf("unexpected event count, wanted %d, got %d", want, got)
	}
	wantEvent := output.NewEvent(address, nil, []output.Value{output.CertainUint64(42)})
	if !wantEvent.Match(result.Output.Events[0]) {
		t.Errorf("unexpected event, wanted %v, got %v", wantEvent, result.Output.Events[0])
	}
}

func TestVM_ValueTransfer(t *testing.T) {
	caller := common.HexToAddress("0x4200000000000000000000000000000000000001")
	target := common.HexToAddress("0x4200000000000000000000000000000000000002")
	v := New(RevisionCancun, 0)
	value := uint256.NewInt(12345)

	result, err := v.Execute("transfer", target, caller, value, nil)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if result.Output.Exception {
		t.Fatalf("plain transfer raised an exception")
	}
	if want, got := value, v.GetBalance(target); !want.Eq(got) {
		t.Errorf("unexpected target balance, wanted %v, got %v", want, got)
	}
	if want, got := uint256.NewInt(0), v.GetBalance(caller); !want.Eq(got) {
		t.Errorf("unexpected caller balance, wanted %v, got %v", want, got)
	}
}

func TestVM_StorageEmptiness(t *testing.T) {
	v := New(RevisionCancun, 0)
	if !v.IsStorageEmpty() {
		t.Fatalf("fresh state reported as non-empty")
	}

	key := vm.NewStorageKey(common.HexToAddress("0x4200000000000000000000000000000000000001"), uint256.NewInt(1))
	v.PopulateStorage(map[vm.StorageKey]common.Hash{key: common.Hash(uint256.NewInt(7).Bytes32())})
	if v.IsStorageEmpty() {
		t.Errorf("storage write not detected")
	}

	v.PopulateStorage(map[vm.StorageKey]common.Hash{key: {}})
	if !v.IsStorageEmpty() {
		t.Errorf("zeroed storage reported as non-empty")
	}
}

func TestVM_CloneIsIndependent(t *testing.T) {
	caller := vm.RichAddresses()[0]
	base := New(RevisionCancun, 0)

	clone := base.Clone()
	if _, err := clone.Deploy("deploy", caller, deployFortyTwo, nil); err != nil {
		t.Fatalf("deploy on clone failed: %v", err)
	}

	if want, got := uint64(0), base.AddressIterator().Nonce(caller); want != got {
		t.Errorf("clone deploy advanced the base iterator, got nonce %d", got)
	}
	address := crypto.CreateAddress(caller, 0)
	if base.db.GetCodeSize(address) != 0 {
		t.Errorf("clone deploy leaked code into the base state")
	}
}
