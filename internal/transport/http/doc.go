// Package http implements the HTTP handlers of the calculation API.
//
// Handlers stay thin: they decode and validate the request, call the
// workflow service and render the result. Errors are rendered as RFC 7807
// problem details by the shared error handler; workflow error kinds map
// onto statuses there (invalid_input 422, upstream_not_found 404,
// upstream_timeout 504, upstream_connection 502).
//
// Calculations run synchronously and answer 200 with the result. With
// ?async=true they answer 202 at once; progress is pushed over /ws and the
// result is read back from the Location header once finished.
package http
