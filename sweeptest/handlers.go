package sweeptest

import "github.com/iov-one/sweep"

// Handler is a mock implementation of the sweep.Handler interface. It
// counts the calls and returns configured results.
type Handler struct {
	checkCall   int
	CheckResult sweep.CheckResult
	CheckErr    error

	deliverCall   int
	DeliverResult sweep.DeliverResult
	DeliverErr    error
}

var _ sweep.Handler = (*Handler)(nil)

func (h *Handler) Check(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*sweep.CheckResult, error) {
	h.checkCall++
	return &h.CheckResult, h.CheckErr
}

func (h *Handler) Deliver(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*sweep.DeliverResult, error) {
	h.deliverCall++
	return &h.DeliverResult, h.DeliverErr
}

func (h *Handler) CheckCallCount() int {
	return h.checkCall
}

func (h *Handler) DeliverCallCount() int {
	return h.deliverCall
}

func (h *Handler) CallCount() int {
	return h.checkCall + h.deliverCall
}
