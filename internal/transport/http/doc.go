// Package http implements the admin surface of the framework.
//
// The admin endpoints are read-only views over the application context
// produced at startup. They are mounted under a configurable prefix and
// never reach the request dispatcher.
//
// # Endpoints
//
//	GET /health   startup health and uptime
//	GET /routes   the route table, sorted by path
//	GET /beans    registered bean names with their concrete types
//	GET /startup  the full startup report
//
// All responses are JSON rendered with go-chi/render.
package http
