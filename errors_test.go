package partkv

import (
	"errors"
	"strings"
	"testing"
)

func TestDataError_ErrorAndUnwrap(t *testing.T) {
	t.Run("small data", func(t *testing.T) {
		inner := errors.New("inner")
		err := dataErrf([]byte{0xAA, 0xBB}, 1, inner, "oops")
		var de *DataError
		if !errors.As(err, &de) {
			t.Fatalf("err = %T, wanted *DataError", err)
		}
		if !errors.Is(err, inner) {
			t.Fatalf("errors.Is(err, inner) = false, wanted true")
		}
		s := err.Error()
		if !strings.Contains(s, "oops") || !strings.Contains(s, "inner") || !strings.Contains(s, "(2)") {
			t.Fatalf("err.Error() = %q, wanted message with oops/inner/(2)", s)
		}
	})

	t.Run("large data includes prefix+suffix", func(t *testing.T) {
		data := make([]byte, 200)
		for i := range data {
			data[i] = byte(i)
		}
		err := dataErrf(data, 0, nil, "oops")
		s := err.Error()
		if !strings.Contains(s, "(200)") || !strings.Contains(s, "...") {
			t.Fatalf("err.Error() = %q, wanted message with (200) and ...", s)
		}
	})
}

func TestCapacityError(t *testing.T) {
	err := error(&CapacityError{Collection: "c1", Key: "k", Size: 5, MaxSize: 5, Incoming: 1})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("errors.Is(err, ErrCapacityExceeded) = false, wanted true")
	}
	deepEqual(t, err.Error(), `collection c1: cannot insert "k": capacity exceeded (5 of 5 used)`)

	err = &CapacityError{Collection: "c2", Size: 2, MaxSize: 3, Incoming: 4}
	deepEqual(t, err.Error(), "collection c2: cannot add 4 keys: capacity exceeded (2 of 3 used)")
}

func TestContainerError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := containerErrf("users", "c1", inner, "oops %d", 1)
	if !errors.Is(err, inner) {
		t.Fatalf("errors.Is(err, inner) = false, wanted true")
	}
	deepEqual(t, err.Error(), "users/c1: oops 1: inner")
	deepEqual(t, containerErrf("users", "", ErrContainerNotFound, "").Error(), "users: container not found")
	deepEqual(t, containerErrf("users", "", nil, "bad").Error(), "users: bad")
}

func TestSentinelWrapping(t *testing.T) {
	if err := keyNotFound("x"); !errors.Is(err, ErrKeyNotFound) || !strings.Contains(err.Error(), `"x"`) {
		t.Errorf("keyNotFound(x) = %v", err)
	}
	if err := invalidConfigf("n=%d", 3); !errors.Is(err, ErrInvalidConfiguration) || err.Error() != "invalid configuration: n=3" {
		t.Errorf("invalidConfigf = %v", err)
	}
}
