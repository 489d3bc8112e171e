// Package htsrouter resolves request paths to route handlers through a
// trie of path segments. A resolved handler receives whatever path
// segments remain unconsumed (for example a record ID made of several
// segments), to be interpreted by the handler itself.
package htsrouter

import (
	"net/http"
	"strings"

	"github.com/jdidion/htsget-server/internal/htserror"
)

// Handler is the capability a route endpoint exposes.
type Handler interface {
	// Handle processes one request. subRoute is the part of the path
	// left unconsumed by routing.
	Handle(subRoute []string, request *http.Request, writer http.ResponseWriter) error
}

type node struct {
	children map[string]*node
	handler  Handler
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// Router is a read-only-after-construction path trie.
type Router struct {
	root *node
}

func New() *Router {
	return &Router{root: newNode()}
}

// Add binds path to handler, creating interior nodes as needed.
// Registering the same full path twice silently replaces the handler.
func (r *Router) Add(path []string, handler Handler) {
	current := r.root
	for _, segment := range path[:len(path)-1] {
		next, ok := current.children[segment]
		if !ok {
			next = newNode()
			current.children[segment] = next
		}
		current = next
	}
	last := path[len(path)-1]
	leaf, ok := current.children[last]
	if !ok {
		leaf = newNode()
		current.children[last] = leaf
	}
	leaf.handler = handler
}

// Resolve walks the trie segment by segment. On hitting a bound node it
// returns the handler and the remaining segments; a missing segment or
// a walk that ends on an interior node fails with NotFound.
func (r *Router) Resolve(path []string) (Handler, []string, error) {
	current := r.root
	for i, segment := range path {
		next, ok := current.children[segment]
		if !ok {
			return nil, nil, htserror.NotFound("no route for path: /" + strings.Join(path, "/"))
		}
		if next.handler != nil {
			return next.handler, path[i+1:], nil
		}
		current = next
	}
	return nil, nil, htserror.NotFound("no route for path: /" + strings.Join(path, "/"))
}
