package vm

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
)

// This file provides a registry for Emulator implementations.
//
// The registry is intended to be used by all clients that need an execution
// engine for the zk-stack backends. For an implementation to be available it
// needs to be registered; typically this registration is part of the init
// code of the package providing the implementation. Thus, by importing the
// implementation package, emulators become available in this registry.

// EmulatorFactory is the type of a function creating a new Emulator using an
// implementation-specific configuration.
type EmulatorFactory func(config any) (Emulator, error)

var (
	emulatorRegistryLock sync.Mutex
	emulatorRegistry     = map[string]EmulatorFactory{}
)

// NewEmulator performs a lookup for the given name (case-insensitive) in the
// registry and creates a new Emulator using the given optional configuration.
// An error is returned if no factory was registered under the name.
func NewEmulator(name string, config ...any) (Emulator, error) {
	if len(config) > 1 {
		return nil, fmt.Errorf("invalid configuration: too many arguments")
	}
	factory := GetEmulatorFactory(name)
	if factory == nil {
		return nil, fmt.Errorf("emulator not found: %s", name)
	}
	c := any(nil)
	if len(config) > 0 {
		c = config[0]
	}
	return factory(c)
}

// GetEmulatorFactory performs a lookup for the given name (case-insensitive)
// in the registry. The result is nil if nothing was registered under the name.
func GetEmulatorFactory(name string) EmulatorFactory {
	emulatorRegistryLock.Lock()
	defer emulatorRegistryLock.Unlock()
	return emulatorRegistry[strings.ToLower(name)]
}

// GetAllRegisteredEmulators obtains the names of all registered factories.
func GetAllRegisteredEmulators() map[string]EmulatorFactory {
	emulatorRegistryLock.Lock()
	defer emulatorRegistryLock.Unlock()
	return maps.Clone(emulatorRegistry)
}

// RegisterEmulatorFactory registers a new Emulator implementation to be
// exported for general use in the binary. The name is not case-sensitive.
// An error is returned if a factory was bound to the same name before or the
// factory is nil. This function is mainly intended to be used by package
// initialization code.
func RegisterEmulatorFactory(name string, factory EmulatorFactory) error {
	key := strings.ToLower(name)
	if factory == nil {
		return fmt.Errorf("invalid initialization: cannot register nil-factory using `%s`", key)
	}
	emulatorRegistryLock.Lock()
	defer emulatorRegistryLock.Unlock()
	if _, found := emulatorRegistry[key]; found {
		return fmt.Errorf("invalid initialization: multiple factories registered for `%s`", key)
	}
	emulatorRegistry[key] = factory
	return nil
}

// MustRegisterEmulatorFactory is like RegisterEmulatorFactory but panics on
// registration errors. Intended for init code.
func MustRegisterEmulatorFactory(name string, factory EmulatorFactory) {
	if err := RegisterEmulatorFactory(name, factory); err != nil {
		panic(fmt.Sprintf("failed to register emulator factory: %v", err))
	}
}
