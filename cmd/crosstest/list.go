package main

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"

	"github.com/crosstest-vm/crosstest/vm"
)

var ListCmd = cli.Command{
	Action: doList,
	Name:   "list",
	Usage:  "List all registered execution emulators",
}

func doList(*cli.Context) error {
	names := maps.Keys(vm.GetAllRegisteredEmulators())
	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
