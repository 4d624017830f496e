package rpccore

import (
	"net"
	"sync"

	"github.com/joeycumines/go-catrate"
	"google.golang.org/grpc/codes"
)

// RegistrableService is implemented by a generated service stub to register
// its methods with a Router (SPEC_FULL.md §2's Router/RegistrableService
// pair), the Go analog of grpc-go's ServiceDesc registration.
type RegistrableService interface {
	RegisterMethods(r *Router)
}

// ServiceInfo describes one registered method, returned by Router.Services
// for introspection (SPEC_FULL.md §12 supplemented feature, grounded on
// grpc-go's reflection/ServiceInfo support).
type ServiceInfo struct {
	Path        string
	Cardinality Cardinality
}

// Router maps method paths to HandlerFactory registrations, and constructs a
// Handler per new stream (SPEC_FULL.md §2). It is safe for concurrent
// registration and lookup; Handler construction itself happens once per
// call, off the hot path of any single call's execution.
type Router struct {
	opts *routerOptions

	mu       sync.RWMutex
	methods  map[string]registration
	limiters map[string]*catrate.Limiter
}

type registration struct {
	factory     HandlerFactory
	cardinality Cardinality
}

// NewRouter builds a Router. WithLoop is required.
func NewRouter(opts ...Option) (*Router, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	r := &Router{
		opts:     cfg,
		methods:  make(map[string]registration),
		limiters: make(map[string]*catrate.Limiter),
	}
	for method, limiter := range cfg.limiters {
		r.limiters[method] = limiter
	}
	return r, nil
}

// Register binds path to factory with the given cardinality. If the Router
// was configured with WithDefaultAdmissionRates and path has no more
// specific WithMethodAdmissionRates override, the default rates apply.
func (r *Router) Register(path string, cardinality Cardinality, factory HandlerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[path] = registration{factory: factory, cardinality: cardinality}
	if _, ok := r.limiters[path]; !ok && r.opts.defaultRates != nil {
		r.limiters[path] = catrate.NewLimiter(r.opts.defaultRates)
	}
}

// RegisterService calls svc.RegisterMethods(r).
func (r *Router) RegisterService(svc RegistrableService) {
	svc.RegisterMethods(r)
}

// Services lists every registered method, for introspection/health-check
// wiring (SPEC_FULL.md §12).
func (r *Router) Services() []ServiceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ServiceInfo, 0, len(r.methods))
	for path, reg := range r.methods {
		out = append(out, ServiceInfo{Path: path, Cardinality: reg.cardinality})
	}
	return out
}

// NewCall looks up path and, if registered and admitted, constructs a
// Handler writing to writer (supplied by the transport, e.g. grpcbridge). If
// path is unregistered, it returns a Handler that immediately fails every
// stream with codes.Unimplemented. If an admission limiter for path rejects
// the call, it returns one that fails immediately with
// codes.ResourceExhausted.
func (r *Router) NewCall(path string, remoteAddr net.Addr, writer ResponseWriter, extra []Interceptor) *Handler {
	r.mu.RLock()
	reg, ok := r.methods[path]
	limiter := r.limiters[path]
	r.mu.RUnlock()

	interceptors := r.opts.interceptors
	if len(extra) > 0 {
		interceptors = append(append([]Interceptor(nil), interceptors...), extra...)
	}

	cc := ConstructContext{
		Loop:          r.opts.loop,
		Path:          path,
		RemoteAddr:    remoteAddr,
		Logger:        r.opts.logger,
		ErrorDelegate: r.opts.errorDelegate,
		Encoding:      r.opts.encoding,
		StatsHandler:  r.opts.statsHandler,
	}

	if !ok {
		cc.Cardinality = Unary
		return r.rejectingHandler(cc, writer, interceptors, codes.Unimplemented, "rpccore: method "+path+" not implemented")
	}
	cc.Cardinality = reg.cardinality

	if limiter != nil {
		if _, allowed := limiter.Allow(path); !allowed {
			return r.rejectingHandler(cc, writer, interceptors, codes.ResourceExhausted, "rpccore: admission rate exceeded for "+path)
		}
	}

	return reg.factory(cc, writer, interceptors)
}

// rejectingHandler builds a Handler that ends the call with the given
// status as soon as metadata is received, never waiting for a message.
func (r *Router) rejectingHandler(cc ConstructContext, writer ResponseWriter, interceptors []Interceptor, code codes.Code, msg string) *Handler {
	h := newHandler(Unary, cc, writer, interceptors)
	st := Status{Code: code, Message: msg}
	h.rejectStatus = &st
	return h
}
