package vm

import (
	"strings"
	"testing"
)

type nopEmulator struct{}

func (nopEmulator) Run(EmulationInput) (EmulationSnapshot, error) {
	return EmulationSnapshot{}, nil
}

func TestRegistry_LookupIsCaseInsensitive(t *testing.T) {
	name := "Test-Emulator-Case"
	if err := RegisterEmulatorFactory(name, func(any) (Emulator, error) {
		return nopEmulator{}, nil
	}); err != nil {
		t.Fatalf("failed to register factory: %v", err)
	}

	for _, variant := range []string{name, strings.ToLower(name), strings.ToUpper(name)} {
		if got, err := NewEmulator(variant); err != nil || got == nil {
			t.Errorf("lookup for %q failed: %v", variant, err)
		}
	}
}

func TestRegistry_DuplicateRegistrationFails(t *testing.T) {
	name := "test-emulator-duplicate"
	factory := func(any) (Emulator, error) { return nopEmulator{}, nil }
	if err := RegisterEmulatorFactory(name, factory); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := RegisterEmulatorFactory(name, factory); err == nil {
		t.Errorf("second registration should have failed")
	}
}

func TestRegistry_NilFactoryIsRejected(t *testing.T) {
	if err := RegisterEmulatorFactory("test-emulator-nil", nil); err == nil {
		t.Errorf("nil factory should be rejected")
	}
}

func TestRegistry_UnknownNameYieldsError(t *testing.T) {
	if _, err := NewEmulator("test-emulator-unknown"); err == nil {
		t.Errorf("unknown emulator name should yield an error")
	}
}

func TestRegistry_TooManyConfigurationsAreRejected(t *testing.T) {
	name := "test-emulator-config"
	if err := RegisterEmulatorFactory(name, func(any) (Emulator, error) {
		return nopEmulator{}, nil
	}); err != nil {
		t.Fatalf("failed to register factory: %v", err)
	}
	if _, err := NewEmulator(name, 1, 2); err == nil {
		t.Errorf("two configurations should be rejected")
	}
}
