package mw

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS lets browser UIs on the given origins call the API. With no
// origins configured, cross-origin requests are not answered with CORS
// headers.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		// the cors package treats an empty list as "allow all"
		return func(next http.Handler) http.Handler { return next }
	}

	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}
	// credentials are never allowed together with a wildcard
	for _, o := range origins {
		if o == "*" {
			opts.AllowCredentials = false
			return cors.Handler(opts)
		}
	}
	opts.AllowCredentials = true
	return cors.Handler(opts)
}
