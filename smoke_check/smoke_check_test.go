package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// TestDefaultWantMatchesExampleConfig verifies that the default expectation
// follows the greeting shipped with the server
func TestDefaultWantMatchesExampleConfig(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "config.example.yaml"))
	if err != nil {
		t.Fatalf("Failed to read example config: %v", err)
	}

	var config struct {
		Greeting string `yaml:"greeting"`
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		t.Fatalf("Failed to parse example config: %v", err)
	}

	if config.Greeting != defaultWant {
		t.Errorf("defaultWant %q differs from example config greeting %q", defaultWant, config.Greeting)
	}
}

func TestCheckGreeting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, defaultWant)
	}))
	defer server.Close()

	// Trailing slash on the base URL must not change the target path
	for _, base := range []string{server.URL, server.URL + "/"} {
		if err := checkGreeting(context.Background(), server.Client(), base, defaultWant); err != nil {
			t.Errorf("Expected check against %s to pass, got: %v", base, err)
		}
	}

	err := checkGreeting(context.Background(), server.Client(), server.URL, "Hello, World! Deployed via CI/CD Pipeline!")
	if err == nil || !strings.Contains(err.Error(), "unexpected greeting") {
		t.Errorf("Expected greeting mismatch error, got: %v", err)
	}
}

func TestCheckGreetingStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := checkGreeting(context.Background(), server.Client(), server.URL, defaultWant)
	if err == nil || !strings.Contains(err.Error(), "unexpected status 503") {
		t.Errorf("Expected status error, got: %v", err)
	}
}

func TestCheckGreetingUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	if err := checkGreeting(context.Background(), http.DefaultClient, url, defaultWant); err == nil {
		t.Errorf("Expected error for closed server")
	}
}
