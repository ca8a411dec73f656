package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestCache_ComputesMissingValuesOnce(t *testing.T) {
	c := New[string, int]()

	var computations atomic.Int32
	compute := func() (int, error) {
		computations.Add(1)
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		value, err := c.GetOrCompute("answer", compute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want, got := 42, value; want != got {
			t.Errorf("unexpected value, wanted %d, got %d", want, got)
		}
	}

	if want, got := int32(1), computations.Load(); want != got {
		t.Errorf("unexpected number of computations, wanted %d, got %d", want, got)
	}
	if want, got := 1, c.Len(); want != got {
		t.Errorf("unexpected cache size, wanted %d, got %d", want, got)
	}
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	c := New[string, int]()

	if _, err := c.GetOrCompute("key", func() (int, error) {
		return 0, fmt.Errorf("build failed")
	}); err == nil {
		t.Fatalf("expected the computation error to be returned")
	}
	if want, got := 0, c.Len(); want != got {
		t.Fatalf("failed computation was cached, size %d", got)
	}

	value, err := c.GetOrCompute("key", func() (int, error) {
		return 7, nil
	})
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if want, got := 7, value; want != got {
		t.Errorf("unexpected value after retry, wanted %d, got %d", want, got)
	}
}

func TestCache_ConcurrentAccessSharesComputations(t *testing.T) {
	const workers = 16
	const keys = 8

	c := New[string, int]()
	var computations atomic.Int32

	var wg sync.WaitGroup
	for worker := 0; worker < workers; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("key-%d", i%keys)
				value, err := c.GetOrCompute(key, func() (int, error) {
					computations.Add(1)
					return i % keys, nil
				})
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if value < 0 || value >= keys {
					t.Errorf("unexpected value %d for %s", value, key)
					return
				}
			}
		}()
	}
	wg.Wait()

	if want, got := keys, c.Len(); want != got {
		t.Errorf("unexpected cache size, wanted %d, got %d", want, got)
	}
	if got := computations.Load(); got < keys {
		t.Errorf("expected at least %d computations, got %d", keys, got)
	}
}
