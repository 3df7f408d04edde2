package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000",      // local dev
	"https://app.craftlink.eu",   // web client
	"https://admin.craftlink.eu", // back office
}

// CORS returns middleware that applies the API's allowed origin policy.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   defaultCORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CL-Token", "Idempotency-Key", "X-Requested-With"},
		ExposedHeaders:   []string{"X-CL-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
