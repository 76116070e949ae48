package main

import (
	"context"
	"net"
	"net/http"
	"time"
)

// newServer returns an http.Server whose request contexts are cancelled as
// soon as Shutdown starts, so open event streams end instead of holding
// Shutdown until its deadline.
func newServer(addr string, handler http.Handler) *http.Server {
	baseCtx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancel)
	return srv
}
