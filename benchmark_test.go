package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corazawaf/coraza/v3"
)

// setupBenchServer creates a greeter with or without WAF
func setupBenchServer(b *testing.B, enableWAF bool) *httptest.Server {
	config := defaultConfig()

	var waf coraza.WAF
	if enableWAF {
		var err error
		// Use minimal WAF config for benchmarking
		waf, err = coraza.NewWAF(coraza.NewWAFConfig().
			WithDirectives(`
				SecRuleEngine On
				SecRule REQUEST_URI "@rx .*" "id:1000,phase:1,pass"
			`))
		if err != nil {
			b.Fatalf("Failed to initialize WAF: %v", err)
		}
	}

	app, err := newApp(config)
	if err != nil {
		b.Fatalf("Failed to create app: %v", err)
	}
	app.WAF.Store(waf)

	return httptest.NewServer(app.Handler())
}

// benchmarkRequest performs a single request and discards the response
func benchmarkRequest(b *testing.B, url string) {
	resp, err := http.Get(url)
	if err != nil {
		b.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	io.Copy(io.Discard, resp.Body)
}

// BenchmarkGreetingNoWAF benchmarks the root route without WAF
func BenchmarkGreetingNoWAF(b *testing.B) {
	server := setupBenchServer(b, false)
	defer server.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchmarkRequest(b, server.URL+"/")
	}
}

// BenchmarkGreetingWithWAF benchmarks the root route with WAF
func BenchmarkGreetingWithWAF(b *testing.B) {
	server := setupBenchServer(b, true)
	defer server.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchmarkRequest(b, server.URL+"/")
	}
}

// BenchmarkNotFound benchmarks the unmatched-route path
func BenchmarkNotFound(b *testing.B) {
	server := setupBenchServer(b, false)
	defer server.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchmarkRequest(b, server.URL+"/missing")
	}
}

// BenchmarkGreetingHandler benchmarks the router alone, without a network hop
func BenchmarkGreetingHandler(b *testing.B) {
	greeting, err := NewGreeting(DefaultGreeting)
	if err != nil {
		b.Fatalf("Failed to create greeting: %v", err)
	}
	router := createRouter(greeting)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
}
