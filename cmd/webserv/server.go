package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vallucodes/webserver-sub000/config"
	"github.com/vallucodes/webserver-sub000/handlers"
	"github.com/vallucodes/webserver-sub000/nettransport"
	"github.com/vallucodes/webserver-sub000/request"
	"github.com/vallucodes/webserver-sub000/router"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "webserv_requests_total",
	Help: "Total requests dispatched, labelled by action and status code.",
}, []string{"action", "status"})

type server struct {
	loop *nettransport.EventLoop
	log  *zap.Logger
}

func newServer(cluster *config.Cluster, log *zap.Logger) (*server, error) {
	s := &server{log: log}
	loop, err := nettransport.NewEventLoop(cluster, s.dispatch, handlers.ErrorResponse, log)
	if err != nil {
		return nil, err
	}
	s.loop = loop
	return s, nil
}

func (s *server) run(stop <-chan struct{}) error {
	return s.loop.Run(stop)
}

// dispatch implements nettransport.Dispatcher: it normalises the path,
// routes the request, and calls the matched handler (spec.md §4.6-4.7).
func (s *server) dispatch(group *config.Group, req *request.Request) *request.Response {
	clean, normErr := router.Normalize(req.RawPath)
	vs := router.SelectVirtualServer(group, req.Headers.Get("host"))

	var resp *request.Response
	switch normErr {
	case router.NormalizeTraversal:
		resp = handlers.ErrorResponse(vs, 403)
	case router.NormalizeTooLong, router.NormalizeIllegalBytes:
		resp = handlers.ErrorResponse(vs, 400)
	default:
		req.Path = clean
		resp = s.route(group, req)
	}

	requestsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()
	return resp
}

func (s *server) route(group *config.Group, req *request.Request) *request.Response {
	m := router.Route(group, req.Headers.Get("host"), effectiveMethod(req), req.Path)

	if m.Location == nil {
		return handlers.ErrorResponse(m.VirtualServer, 404)
	}
	if m.Action == router.ActionMethodNotAllowed {
		resp := handlers.ErrorResponse(m.VirtualServer, 405)
		resp.Headers.Set("Allow", m.Allow)
		return resp
	}

	var resp *request.Response
	switch m.Action {
	case router.ActionGet:
		resp = handlers.Get(m.VirtualServer, m.Location, req.Path)
	case router.ActionPost:
		resp = handlers.Post(m.VirtualServer, m.Location, req)
	case router.ActionDelete:
		resp = handlers.Delete(m.VirtualServer, m.Location, req.Path)
	case router.ActionCGI:
		resp = handlers.CGI(m.VirtualServer, m.Location, req)
	case router.ActionRedirect:
		resp = handlers.Redirect(m.VirtualServer, m.Location)
	default:
		resp = handlers.ErrorResponse(m.VirtualServer, 500)
	}

	if req.Method == "HEAD" {
		resp.NoBody = true
	}
	return resp
}

// effectiveMethod treats HEAD as GET for location-matching and
// allow_methods purposes, per spec.md §4.6 ("HEAD is implicitly
// accepted"), while leaving req.Method untouched for CGI's
// REQUEST_METHOD and the final NoBody decision above.
func effectiveMethod(req *request.Request) string {
	if req.Method == "HEAD" {
		return "GET"
	}
	return req.Method
}

// serveMetrics runs the optional out-of-band admin/metrics sidecar on its
// own goroutine, bound to WEBSERV_ADMIN_ADDR, while the main event loop
// stays single-threaded over client sockets.
func (s *server) serveMetrics(addr string) {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	srv := &http.Server{Addr: addr, Handler: r, ReadTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Warn("metrics sidecar stopped", zap.Error(err))
	}
}

