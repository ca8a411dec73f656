package script

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/crosstest-vm/crosstest/output"
	"github.com/crosstest-vm/crosstest/summary"
	"github.com/crosstest-vm/crosstest/vm"
)

// Context carries everything one case run shares: the backend, the outcome
// sink, and the instance registry.
type Context struct {
	Backend   Backend
	Summary   *summary.Summary
	Instances map[string]*Instance

	Group      *string
	Mode       string
	NamePrefix string
}

func (c *Context) description(stepName string, index int) summary.TestDescription {
	return summary.TestDescription{
		Group: c.Group,
		Mode:  c.Mode,
		Name:  fmt.Sprintf("%s[%s:%d]", c.NamePrefix, stepName, index),
	}
}

func (c *Context) instance(name string) (*Instance, error) {
	instance, found := c.Instances[name]
	if !found {
		return nil, fmt.Errorf("unknown instance %q", name)
	}
	return instance, nil
}

// Step is one scripted input of a case. Every step reports exactly one
// outcome to the summary.
type Step interface {
	Run(ctx *Context, index int)
}

// DeployStep deploys an instance's contract and checks the deploy output.
type DeployStep struct {
	Instance string
	Caller   common.Address
	Calldata Calldata
	Value    *uint256.Int
	Storage  map[vm.StorageKey]common.Hash
	Expected output.Output
}

func (s *DeployStep) Run(ctx *Context, index int) {
	test := ctx.description("#deployer:"+s.Instance, index)

	instance, err := ctx.instance(s.Instance)
	if err != nil {
		ctx.Summary.Invalid(test, err)
		return
	}

	ctx.Backend.PopulateStorage(s.Storage)
	result, err := ctx.Backend.Deploy(test.Name, s.Caller, instance, s.Calldata, s.Value)
	if err != nil {
		ctx.Summary.Invalid(test, err)
		return
	}

	if !s.Expected.Match(result.Output) {
		ctx.Summary.Failed(test, s.Expected, result.Output, s.Calldata)
		return
	}

	if !result.Output.Exception && !instance.IsDeployed() {
		if address, ok := deployedAddress(result.Output); ok {
			if err := instance.SetAddress(address); err != nil {
				ctx.Summary.Invalid(test, err)
				return
			}
		}
	}

	ctx.Summary.PassedDeploy(test, uint64(len(instance.Code)), result.Cycles, result.Ergs, result.Gas)
}

// deployedAddress extracts the contract address from a deploy output.
func deployedAddress(out output.Output) (common.Address, bool) {
	if len(out.ReturnData) == 0 {
		return common.Address{}, false
	}
	word, certain := out.ReturnData[0].Word()
	if !certain {
		return common.Address{}, false
	}
	return common.Address(word.Bytes20()), true
}

// RuntimeStep calls a deployed instance and checks the output.
type RuntimeStep struct {
	Name     string
	Instance string
	Caller   common.Address
	Calldata Calldata
	Value    *uint256.Int
	Storage  map[vm.StorageKey]common.Hash
	Expected output.Output
}

func (s *RuntimeStep) Run(ctx *Context, index int) {
	test := ctx.description(s.Name, index)

	instance, err := ctx.instance(s.Instance)
	if err != nil {
		ctx.Summary.Invalid(test, err)
		return
	}
	entry, err := instance.Address()
	if err != nil {
		ctx.Summary.Invalid(test, err)
		return
	}

	ctx.Backend.PopulateStorage(s.Storage)
	result, err := ctx.Backend.Execute(test.Name, entry, s.Caller, s.Value, s.Calldata)
	if err != nil {
		ctx.Summary.Invalid(test, err)
		return
	}

	if !s.Expected.Match(result.Output) {
		ctx.Summary.Failed(test, s.Expected, result.Output, s.Calldata)
		return
	}
	ctx.Summary.PassedRuntime(test, result.Cycles, result.Ergs, result.Gas)
}

// StorageEmptyStep asserts the storage-emptiness of the whole state.
type StorageEmptyStep struct {
	Expected bool
}

func (s *StorageEmptyStep) Run(ctx *Context, index int) {
	test := ctx.description("#storage_empty_check", index)

	found := ctx.Backend.IsStorageEmpty()
	if found != s.Expected {
		ctx.Summary.Failed(test, output.FromBool(s.Expected), output.FromBool(found), nil)
		return
	}
	ctx.Summary.PassedSpecial(test)
}

// BalanceStep asserts an account balance.
type BalanceStep struct {
	Address  common.Address
	Expected *uint256.Int
}

func (s *BalanceStep) Run(ctx *Context, index int) {
	test := ctx.description("#balance_check", index)

	found := ctx.Backend.GetBalance(s.Address)
	if !s.Expected.Eq(found) {
		ctx.Summary.Failed(test, output.FromWord(s.Expected), output.FromWord(found), s.Address.Bytes())
		return
	}
	ctx.Summary.PassedSpecial(test)
}
