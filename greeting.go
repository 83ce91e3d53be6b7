package main

import (
	"errors"
	"io"
	"net/http"
	"sync/atomic"
)

// Greeting holds the response text served on the root path.
// It is safe for concurrent use and can be swapped while serving.
type Greeting struct {
	text atomic.Pointer[string]
}

// NewGreeting creates a Greeting with the given initial text
func NewGreeting(text string) (*Greeting, error) {
	g := &Greeting{}
	if err := g.Set(text); err != nil {
		return nil, err
	}
	return g, nil
}

// Get returns the current greeting
func (g *Greeting) Get() string {
	return *g.text.Load()
}

// Set replaces the greeting. Empty text is rejected.
func (g *Greeting) Set(text string) error {
	if text == "" {
		return errors.New("greeting must not be empty")
	}
	g.text.Store(&text)
	return nil
}

// createRouter returns the public router. Only GET (and HEAD) on the exact
// root path is routed; ServeMux answers 404 for other paths and 405 for
// other methods on the root.
func createRouter(greeting *Greeting) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, greeting.Get())
	})
	return mux
}
