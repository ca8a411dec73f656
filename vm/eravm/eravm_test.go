package eravm

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/mock/gomock"

	"github.com/crosstest-vm/crosstest/output"
	"github.com/crosstest-vm/crosstest/vm"
)

// fakeEmulator records the last input and answers with a scripted snapshot.
type fakeEmulator struct {
	lastInput vm.EmulationInput
	run       func(vm.EmulationInput) (vm.EmulationSnapshot, error)
}

func (e *fakeEmulator) Run(input vm.EmulationInput) (vm.EmulationSnapshot, error) {
	e.lastInput = input
	if e.run == nil {
		return vm.EmulationSnapshot{}, nil
	}
	return e.run(input)
}

func init() {
	vm.MustRegisterEmulatorFactory("fake", func(config any) (vm.Emulator, error) {
		emulator, ok := config.(vm.Emulator)
		if !ok {
			return nil, fmt.Errorf("fake emulator factory needs an Emulator config")
		}
		return emulator, nil
	})
}

func newTestVM(t *testing.T, fake *fakeEmulator, useValueSimulator bool) *VM {
	t.Helper()
	v, err := New(Config{
		Emulator:       "fake",
		EmulatorConfig: fake,
		SystemContracts: SystemContracts{
			DefaultAccount: Build{Bytecode: []byte{0x01}, CodeHash: *uint256.NewInt(0x0101)},
			EVMInterpreter: Build{Bytecode: []byte{0x02}, CodeHash: *uint256.NewInt(0x0202)},
		},
		Target:            TargetNative,
		UseValueSimulator: useValueSimulator,
	})
	if err != nil {
		t.Fatalf("failed to create VM: %v", err)
	}
	return v
}

func TestVM_Execute_DrivesTheEmulatorInterface(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := vm.NewMockEmulator(ctrl)

	entry := common.HexToAddress("0x4242424242424242424242424242424242424242")
	caller := common.HexToAddress("0x1000000000000000000000000000000000000000")

	mock.EXPECT().Run(gomock.Any()).DoAndReturn(
		func(input vm.EmulationInput) (vm.EmulationSnapshot, error) {
			if want, got := entry, input.Entry; want != got {
				t.Errorf("unexpected entry, wanted %v, got %v", want, got)
			}
			if want, got := caller, input.Caller; want != got {
				t.Errorf("unexpected caller, wanted %v, got %v", want, got)
			}
			if want, got := uint256.NewInt(0x0101), &input.DefaultAccountCodeHash; !want.Eq(got) {
				t.Errorf("unexpected default account hash, wanted %v, got %v", want, got)
			}
			return vm.EmulationSnapshot{
				Result: vm.NewExecutionResult(output.FromUint(7), 1, 2, 3),
			}, nil
		})

	v, err := New(Config{
		Emulator:       "fake",
		EmulatorConfig: mock,
		SystemContracts: SystemContracts{
			DefaultAccount: Build{Bytecode: []byte{0x01}, CodeHash: *uint256.NewInt(0x0101)},
			EVMInterpreter: Build{Bytecode: []byte{0x02}, CodeHash: *uint256.NewInt(0x0202)},
		},
		Target: TargetNative,
	})
	if err != nil {
		t.Fatalf("failed to create VM: %v", err)
	}

	result, err := v.Execute("test", entry, caller, nil, []byte{0xaa}, nil)
	if err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	if want, got := output.FromUint(7), result.Output; !want.Match(got) {
		t.Errorf("unexpected output, wanted %v, got %v", want, got)
	}
	if want, got := uint64(3), result.Gas; want != got {
		t.Errorf("unexpected gas, wanted %d, got %d", want, got)
	}
}

func TestVM_MintBurnAndBalance(t *testing.T) {
	v := newTestVM(t, &fakeEmulator{}, false)
	address := common.HexToAddress("0x1212121212121212121212121212120000000012")

	v.MintEther(address, uint256.NewInt(100))
	v.BurnEther(address, uint256.NewInt(40))

	if want, got := uint256.NewInt(60), v.GetBalance(address); !want.Eq(got) {
		t.Errorf("unexpected balance, wanted %v, got %v", want, got)
	}
	if want, got := SystemAddress(AddressBaseToken), balanceStorageKey(address).Address; want != got {
		t.Errorf("balance slot stored under %v, wanted %v", got, want)
	}
}

func TestVM_StorageEmptyIgnoresSystemSpace(t *testing.T) {
	v := newTestVM(t, &fakeEmulator{}, false)
	if !v.IsStorageEmpty() {
		t.Fatalf("freshly bootstrapped storage reported as non-empty")
	}

	user := common.HexToAddress("0x1212121212121212121212121212120000000012")
	v.PopulateStorage(map[vm.StorageKey]common.Hash{
		vm.NewStorageKey(user, uint256.NewInt(1)): valueHash(uint256.NewInt(7)),
	})
	if v.IsStorageEmpty() {
		t.Errorf("user-space storage write not detected")
	}

	v.PopulateStorage(map[vm.StorageKey]common.Hash{
		vm.NewStorageKey(user, uint256.NewInt(1)): {},
	})
	if !v.IsStorageEmpty() {
		t.Errorf("zeroed user-space storage reported as non-empty")
	}
}

func TestVM_ExecuteMergesOnlyNewContracts(t *testing.T) {
	existing := SystemAddress(AddressContractDeployer + AddressUnrestrictedSpace)
	fresh := common.HexToAddress("0x6381cafc226492c599fcbc68b7869ed7abb696ef")

	fake := &fakeEmulator{}
	fake.run = func(input vm.EmulationInput) (vm.EmulationSnapshot, error) {
		return vm.EmulationSnapshot{
			DeployedContracts: map[common.Address][]byte{
				existing: {0xff},
				fresh:    {0xaa},
			},
			Storage: input.Storage,
		}, nil
	}

	v := newTestVM(t, fake, false)
	if err := v.AddDeployedContract(existing, uint256.NewInt(0x0101), nil); err != nil {
		t.Fatalf("failed to pre-deploy contract: %v", err)
	}

	if _, err := v.Execute("merge", existing, common.Address{}, nil, nil, vm.SystemCall()); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if want, got := []byte{0x01}, v.deployedContracts[existing]; string(want) != string(got) {
		t.Errorf("pre-existing contract was overwritten, wanted %x, got %x", want, got)
	}
	if want, got := []byte{0xaa}, v.deployedContracts[fresh]; string(want) != string(got) {
		t.Errorf("new contract not merged, wanted %x, got %x", want, got)
	}
}

func TestVM_ExecuteRoutesValueThroughSimulator(t *testing.T) {
	fake := &fakeEmulator{}
	v := newTestVM(t, fake, true)

	caller := common.HexToAddress("0x1212121212121212121212121212120000000012")
	target := common.HexToAddress("0x6381cafc226492c599fcbc68b7869ed7abb696ef")
	value := uint256.NewInt(1000)

	if _, err := v.Execute("value", target, caller, value, nil, nil); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	input := fake.lastInput
	if want, got := SystemAddress(AddressMsgValueSimulator), input.Entry; want != got {
		t.Errorf("call not routed through the value simulator, entry %v", got)
	}
	if input.ContextValue != nil {
		t.Errorf("context value must be empty in register mode, got %v", input.ContextValue)
	}
	if input.Launch == nil {
		t.Fatalf("missing launch options")
	}
	if want, got := value, input.Launch.R3; !want.Eq(got) {
		t.Errorf("unexpected r3 value, wanted %v, got %v", want, got)
	}
	if want, got := new(uint256.Int).SetBytes(target.Bytes()), input.Launch.R4; !want.Eq(got) {
		t.Errorf("unexpected r4 target, wanted %v, got %v", want, got)
	}
	if want, got := uint256.NewInt(vm.SystemCallBit), input.Launch.R5; !want.Eq(got) {
		t.Errorf("unexpected r5 marker, wanted %v, got %v", want, got)
	}
	if want, got := value, v.GetBalance(caller); !want.Eq(got) {
		t.Errorf("value not minted to the caller, wanted %v, got %v", want, got)
	}
}

func TestVM_ExecuteMintsAtEntryWithoutSimulator(t *testing.T) {
	fake := &fakeEmulator{}
	v := newTestVM(t, fake, false)

	target := common.HexToAddress("0x6381cafc226492c599fcbc68b7869ed7abb696ef")
	value := uint256.NewInt(1000)

	if _, err := v.Execute("value", target, common.Address{}, value, nil, nil); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if want, got := target, fake.lastInput.Entry; want != got {
		t.Errorf("unexpected entry, wanted %v, got %v", want, got)
	}
	if want, got := value, fake.lastInput.ContextValue; !want.Eq(got) {
		t.Errorf("unexpected context value, wanted %v, got %v", want, got)
	}
	if want, got := value, v.GetBalance(target); !want.Eq(got) {
		t.Errorf("value not minted at the entry, wanted %v, got %v", want, got)
	}
}

func TestVM_ExecuteEVMInterpreterAccountsGas(t *testing.T) {
	gasLeft := uint64(interpreterFrameGas - 12345)

	fake := &fakeEmulator{}
	fake.run = func(input vm.EmulationInput) (vm.EmulationSnapshot, error) {
		return vm.EmulationSnapshot{
			Result: vm.NewExecutionResult(output.New([]output.Value{
				output.CertainUint64(gasLeft),
				output.CertainUint64(0x2a),
			}, false, nil), 0, 0, 0),
		}, nil
	}

	v := newTestVM(t, fake, false)
	target := common.HexToAddress("0x6381cafc226492c599fcbc68b7869ed7abb696ef")

	result, err := v.ExecuteEVMInterpreter("gas", target, common.Address{}, nil, nil, vm.SystemCall())
	if err != nil {
		t.Fatalf("interpreter execution failed: %v", err)
	}

	if want, got := uint64(12345)+InterpreterGasOverhead, result.Gas; want != got {
		t.Errorf("unexpected gas, wanted %d, got %d", want, got)
	}
	if want, got := 1, len(result.Output.ReturnData); want != got {
		t.Fatalf("gas word not stripped from the return data, got %d words", got)
	}
	word, _ := result.Output.ReturnData[0].Word()
	if want, got := uint256.NewInt(0x2a), &word; !want.Eq(got) {
		t.Errorf("unexpected return word, wanted %v, got %v", want, got)
	}

	// The gas manager must have been primed with a single non-static frame.
	gasManager := SystemAddress(AddressEVMGasManager)
	storage := fake.lastInput.Storage
	if want, got := valueHash(uint256.NewInt(1)), storage[vm.NewStorageKey(gasManager, uint256.NewInt(evmGasManagerStackFrameSlot))]; want != got {
		t.Errorf("frame counter not primed, wanted %v, got %v", want, got)
	}
	firstFrame := uint256.MustFromHex("0x405787fa12a823e0f2b7631cc41b3ba8828b3321ca811111fa75cd3aa3bb5ace")
	if got := storage[vm.NewStorageKey(gasManager, firstFrame)]; got != (common.Hash{}) {
		t.Errorf("first frame must be non-static, got %v", got)
	}
	passGas := new(uint256.Int).AddUint64(firstFrame, 1)
	if want, got := valueHash(uint256.NewInt(interpreterFrameGas)), storage[vm.NewStorageKey(gasManager, passGas)]; want != got {
		t.Errorf("unexpected pass gas, wanted %v, got %v", want, got)
	}
}

func TestVM_ExecuteEVMInterpreterRejectsEmptyReturnData(t *testing.T) {
	v := newTestVM(t, &fakeEmulator{}, false)
	if _, err := v.ExecuteEVMInterpreter("gas", common.Address{}, common.Address{}, nil, nil, nil); err == nil {
		t.Errorf("expected an error for empty interpreter return data")
	}
}

func TestVM_CloneIsIndependent(t *testing.T) {
	v := newTestVM(t, &fakeEmulator{}, false)
	address := common.HexToAddress("0x1212121212121212121212121212120000000012")

	clone := v.Clone()
	clone.MintEther(address, uint256.NewInt(100))
	if err := clone.AddDeployedContract(address, uint256.NewInt(0x0101), nil); err != nil {
		t.Fatalf("failed to deploy on the clone: %v", err)
	}

	if want, got := uint256.NewInt(0), v.GetBalance(address); !want.Eq(got) {
		t.Errorf("clone mint leaked into the original, got balance %v", got)
	}
	if v.IsDeployed(address) {
		t.Errorf("clone deploy leaked into the original")
	}
}

func TestVM_AddDeployedContractRejectsConflicts(t *testing.T) {
	v := newTestVM(t, &fakeEmulator{}, false)
	address := common.HexToAddress("0x1212121212121212121212121212120000000012")

	if err := v.AddDeployedContract(address, uint256.NewInt(0x0101), nil); err != nil {
		t.Fatalf("first deploy failed: %v", err)
	}
	if err := v.AddDeployedContract(address, uint256.NewInt(0x0101), nil); err == nil {
		t.Errorf("expected an error for a duplicate deploy")
	}
	if err := v.AddDeployedContract(common.Address{0x01}, uint256.NewInt(0xdead), nil); err == nil {
		t.Errorf("expected an error for an unknown code hash")
	}
}
