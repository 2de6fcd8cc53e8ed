// Package logx provides structured logging for delaytimer.
//
// It wraps zerolog behind a small Logger value type so that components can be
// handed a logger without caring about sink configuration. The Service applies
// sink/level changes at runtime (config reload) while existing Logger values
// stay live.
//
// The zero Logger is a safe no-op, which keeps optional logging cheap in
// library code.
package logx
