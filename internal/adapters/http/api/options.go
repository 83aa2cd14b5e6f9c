package api

import "github.com/okian/streamscout/pkg/logger"

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets a custom logger for the route layer.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCORSOrigin sets the Access-Control-Allow-Origin value.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) {
		if origin != "" {
			s.corsOrigin = origin
		}
	}
}
