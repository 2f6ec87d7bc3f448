package sqlite

import "go.uber.org/zap"

// Option configures an SQLite instance.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	moduleName string
}

func defaultOptions() options {
	return options{logger: Logger()}
}

// WithLogger sets the logger for one instance.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithModuleName instantiates the module under name instead of a generated
// unique name. Names must be unique within a wazero.Runtime.
func WithModuleName(name string) Option {
	return func(o *options) {
		o.moduleName = name
	}
}
