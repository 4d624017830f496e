package rpccore

import "github.com/joeycumines/go-rpccore/rpclog"

// logFields bundles a rpclog.Logger with the call's method path, so Handler
// call sites don't have to thread the path through every log call.
type logFields struct {
	logger rpclog.Logger
	method string
}

func (f logFields) debug(msg string, fields map[string]any) {
	rpclog.Debug(f.logger, f.method, msg, fields)
}

func (f logFields) warn(msg string, fields map[string]any) {
	rpclog.Warn(f.logger, f.method, msg, fields)
}

func (f logFields) error(msg string, err error, fields map[string]any) {
	rpclog.Error(f.logger, f.method, msg, err, fields)
}
