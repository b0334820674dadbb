package partkv

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCapacityExceeded is returned when a strict collection would grow past
	// its maximum size. Usually wrapped in a *CapacityError.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrKeyNotFound is returned by Pop and PopItem when there is nothing to pop.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidConfiguration is returned for groups with duplicate or missing
	// partitions, and for resizes that would not increase the partition count.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	ErrContainerNotFound = errors.New("container not found")
	ErrContainerExists   = errors.New("container already exists")
)

type CapacityError struct {
	Collection string
	Key        string
	Size       int
	MaxSize    int
	Incoming   int
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

func (e *CapacityError) Error() string {
	var buf strings.Builder
	buf.WriteString("collection ")
	buf.WriteString(e.Collection)
	if e.Key != "" {
		fmt.Fprintf(&buf, ": cannot insert %q", e.Key)
	} else {
		fmt.Fprintf(&buf, ": cannot add %d keys", e.Incoming)
	}
	fmt.Fprintf(&buf, ": %v (%d of %d used)", ErrCapacityExceeded, e.Size, e.MaxSize)
	return buf.String()
}

func keyNotFound(key string) error {
	return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
}

func invalidConfigf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
		}
	}
}

// ContainerError attaches the container (and optionally collection) a store
// operation failed on.
type ContainerError struct {
	Container  string
	Collection string
	Msg        string
	Err        error
}

func containerErrf(name, collection string, err error, format string, args ...any) error {
	return &ContainerError{name, collection, fmt.Sprintf(format, args...), err}
}

func (e *ContainerError) Unwrap() error {
	return e.Err
}

func (e *ContainerError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Container)
	if e.Collection != "" {
		buf.WriteByte('/')
		buf.WriteString(e.Collection)
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
		if e.Err != nil {
			buf.WriteString(": ")
			buf.WriteString(e.Err.Error())
		}
	} else if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}
