package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iov-one/sweep"
	"github.com/iov-one/sweep/errors"
	"github.com/iov-one/sweep/sweeptest"
)

// panicHandler abandons every call.
type panicHandler struct{}

var _ sweep.Handler = panicHandler{}

func (panicHandler) Check(sweep.Context, sweep.KVStore, sweep.Tx) (*sweep.CheckResult, error) {
	panic("check")
}

func (panicHandler) Deliver(sweep.Context, sweep.KVStore, sweep.Tx) (*sweep.DeliverResult, error) {
	panic("deliver")
}

func TestChainNilDecoratorsCutOff(t *testing.T) {
	var h sweeptest.Handler
	stack := ChainDecorators(nil, NewRecovery(), nil).WithHandler(&h)

	_, err := stack.Check(nil, nil, nil)
	require.NoError(t, err)
	_, err = stack.Deliver(nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, h.CallCount())
}

func TestChainRecoversPanic(t *testing.T) {
	stack := ChainDecorators(NewRecovery()).WithHandler(panicHandler{})

	_, err := stack.Check(nil, nil, nil)
	assert.True(t, errors.ErrPanic.Is(err), "unexpected error: %+v", err)
	_, err = stack.Deliver(nil, nil, nil)
	assert.True(t, errors.ErrPanic.Is(err), "unexpected error: %+v", err)
}

func TestChainWithoutDecorators(t *testing.T) {
	var h sweeptest.Handler
	stack := ChainDecorators().WithHandler(&h)

	_, err := stack.Check(nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, h.CheckCallCount())
}
