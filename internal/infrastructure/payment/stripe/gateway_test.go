package stripe

import (
	"errors"
	"testing"
)

func TestNewRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := New(""); !errors.Is(err, ErrMissingKey) {
		t.Fatalf("got %v, want ErrMissingKey", err)
	}
	if _, err := New("sk_test_123"); err != nil {
		t.Fatalf("New: %v", err)
	}
}
