package app

import (
	"regexp"

	"github.com/iov-one/sweep"
	"github.com/iov-one/sweep/errors"
)

// Router maps message paths to handlers. It implements both the
// sweep.Registry interface for the setup and the sweep.Handler
// interface for the execution.
type Router struct {
	handlers map[string]sweep.Handler
}

var _ sweep.Registry = (*Router)(nil)
var _ sweep.Handler = (*Router)(nil)

// NewRouter initializes a router with no routes.
func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]sweep.Handler),
	}
}

var isPath = regexp.MustCompile(`^[a-zA-Z0-9_/]+$`).MatchString

// Handle implements sweep.Registry interface. Registering a handler
// for an invalid path or for an already registered path panics. This
// is a programmer error and must never happen at runtime.
func (r *Router) Handle(m sweep.Msg, h sweep.Handler) {
	path := m.Path()
	if !isPath(path) {
		panic("invalid path: " + path)
	}
	if _, ok := r.handlers[path]; ok {
		panic("path already registered: " + path)
	}
	r.handlers[path] = h
}

// handler returns the registered handler, or a handler that always
// fails when the path is unknown.
func (r *Router) handler(path string) sweep.Handler {
	if h, ok := r.handlers[path]; ok {
		return h
	}
	return notFoundHandler(path)
}

// Check dispatches the transaction to the handler registered for the
// path of its message.
func (r *Router) Check(ctx sweep.Context, store sweep.KVStore, tx sweep.Tx) (*sweep.CheckResult, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, errors.Wrap(err, "cannot get message")
	}
	return r.handler(msg.Path()).Check(ctx, store, tx)
}

// Deliver dispatches the transaction to the handler registered for
// the path of its message.
func (r *Router) Deliver(ctx sweep.Context, store sweep.KVStore, tx sweep.Tx) (*sweep.DeliverResult, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, errors.Wrap(err, "cannot get message")
	}
	return r.handler(msg.Path()).Deliver(ctx, store, tx)
}

// notFoundHandler always returns a not found error.
type notFoundHandler string

var _ sweep.Handler = notFoundHandler("")

func (h notFoundHandler) Check(sweep.Context, sweep.KVStore, sweep.Tx) (*sweep.CheckResult, error) {
	return nil, errors.Wrapf(errors.ErrNotFound, "no handler for path %q", string(h))
}

func (h notFoundHandler) Deliver(sweep.Context, sweep.KVStore, sweep.Tx) (*sweep.DeliverResult, error) {
	return nil, errors.Wrapf(errors.ErrNotFound, "no handler for path %q", string(h))
}
