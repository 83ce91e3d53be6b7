package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Matches DefaultGreeting in the server package and config.example.yaml
const defaultWant = "Hello, World! Deployed via CI/CD Pipeline! This is Change A"

func main() {
	baseURL := flag.String("url", "http://localhost:5000", "Base URL of the deployed greeter")
	want := flag.String("want", defaultWant, "Expected greeting")
	timeout := flag.Duration("timeout", 5*time.Second, "Request timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := checkGreeting(ctx, http.DefaultClient, *baseURL, *want); err != nil {
		log.Fatalf("Smoke check failed: %v", err)
	}
	log.Printf("Smoke check passed for %s", *baseURL)
}

// checkGreeting fetches the root path and compares the body with want
func checkGreeting(ctx context.Context, client *http.Client, baseURL, want string) error {
	url := strings.TrimSuffix(baseURL, "/") + "/"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	if string(body) != want {
		return fmt.Errorf("unexpected greeting %q, want %q", body, want)
	}
	return nil
}
