// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when constructing responses and scripting model
// behavior (streaming deltas, tool calls, provider faults). These helpers are
// intentionally minimal and avoid adding third‑party dependencies. They are
// not intended for production usage.
package testutil
