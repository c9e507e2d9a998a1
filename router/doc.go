// Package router wraps http.ServeMux with request context, OpenAPI
// validation, CORS, timeouts, and logging defaults. With WithResponder,
// validation failures are answered with the same problem documents handlers
// produce. ExampleNew_customOptions demonstrates how to combine built-in and
// custom middlewares.
package router
