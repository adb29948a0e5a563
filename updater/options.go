package updater

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/waldirborbajr/autoupdate/logger"
)

const (
	DefaultRequestTimeout  = 20 * time.Second
	DefaultDownloadTimeout = 10 * time.Minute
)

type options struct {
	maxAttempts     int
	retryDelay      time.Duration
	requestTimeout  time.Duration
	downloadTimeout time.Duration
	sleep           func(ctx context.Context, d time.Duration) error
	log             *zerolog.Logger
	applier         Applier
}

// Option tunes a Checker or an Installer.
type Option func(*options)

func defaultOptions() options {
	return options{
		maxAttempts:     DefaultMaxAttempts,
		retryDelay:      DefaultRetryDelay,
		requestTimeout:  DefaultRequestTimeout,
		downloadTimeout: DefaultDownloadTimeout,
		sleep:           sleepWithContext,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) logger() zerolog.Logger {
	if o.log != nil {
		return *o.log
	}
	return logger.GetLogger()
}

func WithMaxAttempts(n int) Option {
	return func(o *options) { o.maxAttempts = n }
}

func WithRetryDelay(d time.Duration) Option {
	return func(o *options) { o.retryDelay = d }
}

// WithRequestTimeout bounds each feed query, independently of the retry delay.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.requestTimeout = d
		}
	}
}

func WithDownloadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.downloadTimeout = d
		}
	}
}

// WithSleeper replaces the wait between attempts.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) { o.sleep = sleep }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = &l }
}

// WithApplier replaces the executable applier New would otherwise build.
func WithApplier(a Applier) Option {
	return func(o *options) { o.applier = a }
}
