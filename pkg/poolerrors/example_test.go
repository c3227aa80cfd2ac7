// Package poolerrors provides examples of structured error handling.
package poolerrors_test

import (
	"errors"
	"fmt"
	"io"

	"github.com/ajitpratap0/lifepool/pkg/poolerrors"
)

// Example demonstrates basic error creation.
func Example() {
	err := poolerrors.New(poolerrors.ErrorTypeNotFound, "no such resource to load").
		WithDetail("name", "textures/enemy")

	fmt.Println(err.Error())

	// Output:
	// not_found: no such resource to load
}

// ExampleWrap shows how a factory failure keeps its cause.
func ExampleWrap() {
	err := poolerrors.Wrap(io.ErrUnexpectedEOF, poolerrors.ErrorTypeFactory, "instantiate failed").
		WithDetail("name", "enemy")

	fmt.Println(err)
	fmt.Println(errors.Is(err, io.ErrUnexpectedEOF))

	// Output:
	// factory: instantiate failed: unexpected EOF
	// true
}

// Example_sentinels shows matching by category through errors.Is.
func Example_sentinels() {
	notFound := poolerrors.New(poolerrors.ErrorTypeNotFound, "missing")
	wrapped := poolerrors.Wrap(notFound, poolerrors.ErrorTypeFactory, "template unavailable")

	fmt.Println(errors.Is(notFound, poolerrors.ErrNotFound))
	fmt.Println(errors.Is(wrapped, poolerrors.ErrNotFound))
	fmt.Println(errors.Is(wrapped, poolerrors.ErrClosed))
	fmt.Println(poolerrors.IsType(wrapped, poolerrors.ErrorTypeFactory))

	// Output:
	// true
	// true
	// false
	// true
}
