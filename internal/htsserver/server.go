// Package htsserver composes the htsget protocol server: content
// negotiation, the route trie, the ticket-issuing handlers, and the
// listener lifecycle.
package htsserver

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"

	"github.com/jdidion/htsget-server/internal/htsconfig"
	"github.com/jdidion/htsget-server/internal/htserror"
	log "github.com/jdidion/htsget-server/internal/htslog"
	"github.com/jdidion/htsget-server/internal/htsmetrics"
	"github.com/jdidion/htsget-server/internal/htsrouter"
	"github.com/jdidion/htsget-server/internal/htsstore"
)

// Server is the protocol server. The trie and handler set are built
// once at construction and read-only afterwards; the only mutable
// shared state is the per-handler ticket caches.
type Server struct {
	config   *htsconfig.Config
	trie     *htsrouter.Router
	metrics  *htsmetrics.Metrics
	handler  http.Handler
	listener net.Listener
}

// New wires the route trie and the edge router over store.
func New(config *htsconfig.Config, store htsstore.DataStore) *Server {
	server := &Server{
		config:  config,
		trie:    htsrouter.New(),
		metrics: htsmetrics.New(),
	}

	server.trie.Add([]string{"reads"}, newReadsHandler(store, config.BlockSize, server.metrics))
	server.trie.Add([]string{"variants"}, newVariantsHandler(store, config.BlockSize, server.metrics))
	server.trie.Add([]string{"block"}, newBlockHandler(store))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Accept", "Authorization", "Range"},
	}))

	router.Get("/reads/service-info", getServiceInfo("reads", []string{"BAM"}))
	router.Get("/variants/service-info", getServiceInfo("variants", []string{"VCF"}))
	router.Method(http.MethodGet, "/metrics", server.metrics.Handler())

	dispatch := http.HandlerFunc(server.serveHtsget)
	if config.AuthKey != "" {
		tokenAuth := jwtauth.New("HS256", []byte(config.AuthKey), nil)
		router.Group(func(router chi.Router) {
			router.Use(jwtauth.Verifier(tokenAuth))
			router.Use(authenticator)
			router.Get("/*", dispatch)
		})
	} else {
		router.Get("/*", dispatch)
	}

	server.handler = router
	return server
}

// Handler exposes the composed HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr is the bound listen address, valid once Listen has returned.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Listen binds the configured port without serving yet.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return err
	}
	s.listener = listener
	return nil
}

// Run serves connections until the listener is closed: the accept loop
// hands every connection to its own goroutine and never blocks on
// request processing.
func (s *Server) Run() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	log.Info("htsget server listening on %s", s.Addr())
	httpServer := &http.Server{Handler: s.handler}
	return httpServer.Serve(s.listener)
}

// Stop closes the listener so no new connections are accepted.
// In-flight workers are not drained; they run to completion or until
// their connections are severed.
func (s *Server) Stop() {
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			log.Error("closing listener: %v", err)
		}
	}
}

// serveHtsget is the htsget dispatch path: validate the Accept header,
// split the path into segments, resolve through the trie, and invoke
// the handler. Failures of any stage, including panics escaping a
// handler, are mapped to the protocol's JSON error responses.
func (s *Server) serveHtsget(writer http.ResponseWriter, request *http.Request) {
	ww, ok := writer.(middleware.WrapResponseWriter)
	if !ok {
		ww = middleware.NewWrapResponseWriter(writer, request.ProtoMajor)
	}

	route := "unknown"
	defer func() {
		if recovered := recover(); recovered != nil {
			log.Error("panic handling %s: %v", request.URL.Path, recovered)
			s.writeError(ww, htserror.Unknown(fmt.Errorf("%v", recovered)))
		}
		s.metrics.Requests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
	}()

	err := func() error {
		if err := checkAccept(request.Header.Get("Accept")); err != nil {
			return err
		}
		segments := strings.Split(strings.TrimPrefix(request.URL.Path, "/"), "/")
		if segments[0] != "" {
			route = segments[0]
		}
		handler, subRoute, err := s.trie.Resolve(segments)
		if err != nil {
			return err
		}
		return handler.Handle(subRoute, request, ww)
	}()
	if err != nil {
		s.writeError(ww, err)
	}
}

func (s *Server) writeError(ww middleware.WrapResponseWriter, err error) {
	if ww.Status() != 0 {
		// The handler already committed a response; too late to remap.
		log.Error("request failed after response started: %v", err)
		return
	}
	htserror.Write(ww, err)
}

// authenticator rejects requests whose bearer token is missing or
// failed verification, with the protocol's JSON error body rather than
// jwtauth's plain-text response.
func authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		token, _, err := jwtauth.FromContext(request.Context())
		if err != nil || token == nil {
			htserror.Write(writer, htserror.PermissionDenied("a valid bearer token is required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ww := middleware.NewWrapResponseWriter(writer, request.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, request)
		log.Info("[%s] %s %s -> %d (%d bytes in %s)",
			middleware.GetReqID(request.Context()), request.Method, request.URL.Path,
			ww.Status(), ww.BytesWritten(), time.Since(start))
	})
}
