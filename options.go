package rpccore

import (
	"errors"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-rpccore/rpclog"
	"google.golang.org/grpc/stats"
)

// routerOptions holds Router construction configuration, the same
// closure-over-struct shape as the teacher's channelOptions.
type routerOptions struct {
	loop          Loop
	logger        rpclog.Logger
	errorDelegate ErrorDelegate
	encoding      EncodingConfig
	limiters      map[string]*catrate.Limiter
	defaultRates  map[time.Duration]int
	interceptors  []Interceptor
	statsHandler  stats.Handler
}

// Option configures a Router at construction time.
type Option interface {
	applyOption(*routerOptions) error
}

type optionFunc struct {
	fn func(*routerOptions) error
}

func (o *optionFunc) applyOption(opts *routerOptions) error { return o.fn(opts) }

// WithLoop configures the Loop every Handler the Router constructs is bound
// to. Required.
func WithLoop(loop Loop) Option {
	return &optionFunc{fn: func(o *routerOptions) error {
		if loop == nil {
			return errors.New("rpccore: loop must not be nil")
		}
		o.loop = loop
		return nil
	}}
}

// WithLogger configures the ambient Logger passed to every Handler's
// ConstructContext. Defaults to rpclog.NopLogger if unset.
func WithLogger(logger rpclog.Logger) Option {
	return &optionFunc{fn: func(o *routerOptions) error {
		o.logger = logger
		return nil
	}}
}

// WithErrorDelegate configures the ErrorDelegate every Handler's
// ErrorProcessor consults.
func WithErrorDelegate(delegate ErrorDelegate) Option {
	return &optionFunc{fn: func(o *routerOptions) error {
		o.errorDelegate = delegate
		return nil
	}}
}

// WithServerCompression enables the server's advisory per-response
// compression hint (SPEC_FULL.md §6).
func WithServerCompression(enabled bool) Option {
	return &optionFunc{fn: func(o *routerOptions) error {
		o.encoding.ServerCompressionEnabled = enabled
		return nil
	}}
}

// WithMaxReceiveMessageLength bounds inbound message size; 0 means
// unbounded.
func WithMaxReceiveMessageLength(n int) Option {
	return &optionFunc{fn: func(o *routerOptions) error {
		o.encoding.MaxReceiveMessageLength = n
		return nil
	}}
}

// WithRequestBufferLimit bounds how many request parts a client-/bidi-
// streaming Handler will buffer while its observer factory is resolving; 0
// means unbounded (SPEC_FULL.md §9 open-question decision).
func WithRequestBufferLimit(n int) Option {
	return &optionFunc{fn: func(o *routerOptions) error {
		o.encoding.RequestBufferLimit = n
		return nil
	}}
}

// WithDefaultAdmissionRates configures the sliding-window rates applied to
// every registered method that doesn't have a more specific
// WithMethodAdmissionRates override, via github.com/joeycumines/go-catrate.
func WithDefaultAdmissionRates(rates map[time.Duration]int) Option {
	return &optionFunc{fn: func(o *routerOptions) error {
		o.defaultRates = rates
		return nil
	}}
}

// WithMethodAdmissionRates configures per-method admission rate limiting:
// calls to method exceeding rates are rejected with codes.ResourceExhausted
// without running the method's registered HandlerFactory; Router answers
// them with a rejecting Handler instead (SPEC_FULL.md §11 domain stack).
func WithMethodAdmissionRates(method string, rates map[time.Duration]int) Option {
	return &optionFunc{fn: func(o *routerOptions) error {
		if o.limiters == nil {
			o.limiters = make(map[string]*catrate.Limiter)
		}
		o.limiters[method] = catrate.NewLimiter(rates)
		return nil
	}}
}

// WithInterceptors configures the ordered Interceptor chain applied to every
// call the Router constructs (SPEC_FULL.md §4.4).
func WithInterceptors(interceptors ...Interceptor) Option {
	return &optionFunc{fn: func(o *routerOptions) error {
		o.interceptors = interceptors
		return nil
	}}
}

// WithStatsHandler configures a google.golang.org/grpc/stats.Handler that
// observes every call's lifecycle events (SPEC_FULL.md §12 supplemented
// feature, grounded on the teacher's statsHandlerHelper).
func WithStatsHandler(h stats.Handler) Option {
	return &optionFunc{fn: func(o *routerOptions) error {
		o.statsHandler = h
		return nil
	}}
}

func resolveOptions(opts []Option) (*routerOptions, error) {
	cfg := &routerOptions{logger: rpclog.NopLogger{}}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyOption(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.loop == nil {
		return nil, errors.New("rpccore: loop must be provided via WithLoop")
	}
	return cfg, nil
}
