// Package middleware provides the HTTP middleware the route table
// installs in front of every generated handler: request IDs, structured
// request logging, panic recovery, and role extraction.
package middleware

import "net/http"

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain composes middleware in registration order: the first Use'd
// middleware is the outermost wrapper.
type Chain struct {
	middlewares []Middleware
}

// NewChain creates an empty middleware chain.
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares}
}

// Use appends middleware to the chain.
func (c *Chain) Use(m Middleware) {
	c.middlewares = append(c.middlewares, m)
}

// Then wraps the final handler with the chain.
func (c *Chain) Then(h http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		h = c.middlewares[i](h)
	}
	return h
}
