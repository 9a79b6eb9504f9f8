package errors

import (
	stdlib "errors"
	"fmt"
	"testing"
)

func TestErrorIs(t *testing.T) {
	cases := map[string]struct {
		kind   *Error
		err    error
		wantIs bool
	}{
		"instance of the same root error": {
			kind:   ErrNotFound,
			err:    ErrNotFound,
			wantIs: true,
		},
		"wrapped root error": {
			kind:   ErrNotFound,
			err:    Wrap(ErrNotFound, "gone"),
			wantIs: true,
		},
		"deeply wrapped root error": {
			kind:   ErrNotFound,
			err:    Wrap(Wrap(ErrNotFound, "gone"), "very gone"),
			wantIs: true,
		},
		"different root error": {
			kind:   ErrNotFound,
			err:    ErrUnauthorized,
			wantIs: false,
		},
		"stdlib error is not a root error": {
			kind:   ErrNotFound,
			err:    stdlib.New("stdlib"),
			wantIs: false,
		},
		"nil error is not any root error": {
			kind:   ErrNotFound,
			err:    nil,
			wantIs: false,
		},
		"nil kind is nil error": {
			kind:   nil,
			err:    nil,
			wantIs: true,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if got := tc.kind.Is(tc.err); got != tc.wantIs {
				t.Fatalf("want %v, got %v", tc.wantIs, got)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(nil, "ignored"); err != nil {
		t.Fatalf("wrapping nil must return nil, got %+v", err)
	}
}

func TestWrapPreservesCode(t *testing.T) {
	err := Wrap(ErrState, "frozen")
	if !ErrState.Is(err) {
		t.Fatal("wrapped error must keep its root")
	}
	const want = "frozen: invalid state"
	if got := err.Error(); got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestWrapfFormats(t *testing.T) {
	err := Wrapf(ErrInput, "key size %d", 42)
	const want = "key size 42: invalid input"
	if got := err.Error(); got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestErrorCarriesStackTrace(t *testing.T) {
	err := Wrap(ErrHuman, "oops")
	if st := stackTrace(err); st == nil {
		t.Fatal("wrapped error must carry a stack trace")
	}
}

func TestStackTraceAttachedOnlyOnce(t *testing.T) {
	inner := Wrap(ErrHuman, "inner")
	outer := Wrap(inner, "outer")
	inFrames := stackTrace(inner)
	outFrames := stackTrace(outer)
	if fmt.Sprintf("%+v", inFrames) != fmt.Sprintf("%+v", outFrames) {
		t.Fatal("outer wrap must reuse the inner stack trace")
	}
}

func TestRegisterPanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("registering a used code must panic")
		}
	}()
	Register(2, "duplicate of unauthorized")
}

func TestRecover(t *testing.T) {
	fail := func() (err error) {
		defer Recover(&err)
		panic("blown fuse")
	}
	err := fail()
	if !ErrPanic.Is(err) {
		t.Fatalf("want a panic error, got %+v", err)
	}
}
