// Package timeouts holds the per-request deadlines handlers put on engine
// calls.
//
// Tiers:
//   - Ping: health checks
//   - Short: single-record reads
//   - Medium: lists and single-entity writes
//   - Long: units of work that touch several entities (mentor selection,
//     leaving a team, submissions and reviews)
//
// Values start at the defaults and are replaced at startup by Configure.
package timeouts

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
)

var ping, short, medium, long atomic.Int64

func init() { Reset() }

func Ping() time.Duration   { return time.Duration(ping.Load()) }
func Short() time.Duration  { return time.Duration(short.Load()) }
func Medium() time.Duration { return time.Duration(medium.Load()) }
func Long() time.Duration   { return time.Duration(long.Load()) }

// Config carries replacement values. Zero or negative fields keep the
// current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// Configure applies cfg and returns how many tiers changed.
func Configure(cfg Config) int {
	n := 0
	for _, s := range []struct {
		dst *atomic.Int64
		d   time.Duration
	}{
		{&ping, cfg.Ping}, {&short, cfg.Short}, {&medium, cfg.Medium}, {&long, cfg.Long},
	} {
		if s.d > 0 {
			s.dst.Store(int64(s.d))
			n++
		}
	}
	return n
}

// Reset restores the defaults.
func Reset() {
	ping.Store(int64(DefaultPing))
	short.Store(int64(DefaultShort))
	medium.Store(int64(DefaultMedium))
	long.Store(int64(DefaultLong))
}

// Current returns the values in effect.
func Current() Config {
	return Config{Ping: Ping(), Short: Short(), Medium: Medium(), Long: Long()}
}

// WithTimeout is context.WithTimeout whose cancel func logs a warning when
// the deadline is what ended the operation.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, op string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out", zap.String("op", op), zap.Duration("timeout", timeout))
		}
		cancel()
	}
}
