// Package admin exposes the process's scrapable metrics and liveness
// surface over plain HTTP, independent of whatever the plugin's own
// gRPC/metrics fan-out does downstream.
package admin

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadyFunc reports whether the process is ready to serve traffic.
type ReadyFunc func() bool

type handler struct {
	promHandler http.Handler
	ready       ReadyFunc
}

// NewServer returns an initialized *http.Server bound to addr, serving
// /metrics (scraped from gatherer), /ping and /ready. ready may be nil,
// in which case /ready always reports ok.
func NewServer(addr string, gatherer prometheus.Gatherer, ready ReadyFunc) *http.Server {
	h := &handler{
		promHandler: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		ready:       ready,
	}

	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 15 * time.Second,
	}
}

func (h *handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch req.URL.Path {
	case "/metrics":
		h.promHandler.ServeHTTP(w, req)
	case "/ping":
		w.Write([]byte("pong\n"))
	case "/ready":
		h.serveReady(w)
	default:
		http.NotFound(w, req)
	}
}

func (h *handler) serveReady(w http.ResponseWriter) {
	if h.ready != nil && !h.ready() {
		http.Error(w, "not ready\n", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("ok\n"))
}
