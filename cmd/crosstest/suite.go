package main

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/crosstest-vm/crosstest/output"
	"github.com/crosstest-vm/crosstest/scheduler"
	"github.com/crosstest-vm/crosstest/script"
	"github.com/crosstest-vm/crosstest/vm"
)

// The built-in suite consists of hand-assembled EVM bytecodes, so it is
// restricted to the backends accepting EVM code.
var suiteModes = []string{modeEVM, modeEVMInterpreter}

var (
	// Deploys a runtime returning 42: the init code copies the 10 trailing
	// bytes (PUSH1 42 PUSH1 0 MSTORE PUSH1 32 PUSH1 0 RETURN) and returns
	// them as the contract code.
	deployFortyTwo = common.Hex2Bytes("600a600c600039600a6000f3" + "602a60005260206000f3")

	// Init code that always reverts with empty data.
	revertingInit = common.Hex2Bytes("60006000fd")

	// Emits LOG0 carrying the word 42, wrapped in its init code.
	deployLogFortyTwo = common.Hex2Bytes("600b600c600039600b6000f3" + "602a60005260206000a000")
)

// anyAddress is the deploy expectation for contracts whose address depends
// on the backend's address derivation.
func anyAddress() output.Output {
	return output.New([]output.Value{output.Uncertain}, false, nil)
}

func instances(builds ...*script.Instance) map[string]*script.Instance {
	result := make(map[string]*script.Instance, len(builds))
	for _, instance := range builds {
		result[instance.Name] = instance
	}
	return result
}

// builtinSuite returns the smoke tests shipped with the binary. They assert
// the cross-backend contract of the harness itself: deployment, calls,
// reverts, events, and the pre-funded account model.
func builtinSuite() []scheduler.Test {
	caller := vm.RichAddresses()[0]

	simple := func(string) (*scheduler.Artifact, error) {
		return &scheduler.Artifact{
			Instances: instances(script.NewInstance("Main", uint256.NewInt(0), deployFortyTwo)),
			Cases: []*script.Case{{
				Name: "default",
				Steps: []script.Step{
					&script.DeployStep{Instance: "Main", Caller: caller, Expected: anyAddress()},
					&script.RuntimeStep{Name: "call", Instance: "Main", Caller: caller, Expected: output.FromUint(42)},
				},
			}},
		}, nil
	}

	constructorRevert := func(string) (*scheduler.Artifact, error) {
		return &scheduler.Artifact{
			Instances: instances(script.NewInstance("Reverting", uint256.NewInt(0), revertingInit)),
			Cases: []*script.Case{{
				Name: "default",
				Steps: []script.Step{
					&script.DeployStep{
						Instance: "Reverting",
						Caller:   caller,
						Expected: output.New(nil, true, nil),
					},
				},
			}},
		}, nil
	}

	events := func(string) (*scheduler.Artifact, error) {
		return &scheduler.Artifact{
			Instances: instances(script.NewInstance("Logger", uint256.NewInt(0), deployLogFortyTwo)),
			Cases: []*script.Case{{
				Name: "default",
				Steps: []script.Step{
					&script.DeployStep{Instance: "Logger", Caller: caller, Expected: anyAddress()},
					&script.RuntimeStep{
						Name:     "log",
						Instance: "Logger",
						Caller:   caller,
						Expected: output.New(nil, false, []output.Event{
							output.NewAnonymousEvent(nil, []output.Value{output.CertainUint64(42)}),
						}),
					},
				},
			}},
		}, nil
	}

	accounts := func(string) (*scheduler.Artifact, error) {
		return &scheduler.Artifact{
			Cases: []*script.Case{{
				Name: "default",
				Steps: []script.Step{
					&script.StorageEmptyStep{Expected: true},
					&script.BalanceStep{Address: vm.RichAddresses()[1], Expected: vm.RichBalance},
				},
			}},
		}, nil
	}

	return []scheduler.Test{
		{Name: "builtin/simple/return_forty_two", Modes: suiteModes, Build: simple},
		{Name: "builtin/deploy/constructor_revert", Modes: suiteModes, Build: constructorRevert},
		{Name: "builtin/events/log_forty_two", Modes: suiteModes, Build: events},
		{Name: "builtin/state/accounts", Modes: suiteModes, Build: accounts},
	}
}
