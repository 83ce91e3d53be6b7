package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	coreset "github.com/corazawaf/coraza-coreruleset/v4"
	"github.com/corazawaf/coraza/v3"
	"github.com/corazawaf/coraza/v3/debuglog"
	"github.com/fsnotify/fsnotify"
)

// requestBodyLimit caps how much of a request body is buffered for inspection
const requestBodyLimit = 1024 * 1024 // 1MB

// WAFHolder keeps the active WAF so a rules reload can swap it while
// requests are in flight.
type WAFHolder struct {
	waf atomic.Pointer[coraza.WAF]
}

// NewWAFHolder wraps an initial WAF; nil disables inspection
func NewWAFHolder(waf coraza.WAF) *WAFHolder {
	h := &WAFHolder{}
	if waf != nil {
		h.Store(waf)
	}
	return h
}

// Load returns the active WAF or nil
func (h *WAFHolder) Load() coraza.WAF {
	if p := h.waf.Load(); p != nil {
		return *p
	}
	return nil
}

// Store replaces the active WAF
func (h *WAFHolder) Store(waf coraza.WAF) {
	h.waf.Store(&waf)
}

// initializeWAF sets up the Coraza WAF with the core rule set (optional) and custom rules
func initializeWAF(coreRuleSet bool, customRulesPath string) (coraza.WAF, error) {
	wafConfig := coraza.NewWAFConfig().
		WithDebugLogger(debuglog.Default()).
		WithRequestBodyAccess().
		WithRequestBodyLimit(requestBodyLimit)

	if coreRuleSet {
		wafConfig = wafConfig.WithDirectives(`
	Include @coraza.conf-recommended
	Include @crs-setup.conf.example
	Include @owasp_crs/*.conf
	`).WithRootFS(coreset.FS)
	}

	// The recommended configuration only detects; this server blocks
	wafConfig = wafConfig.WithDirectives("SecRuleEngine On")

	if customRulesPath != "" {
		custom, err := readCustomRules(customRulesPath)
		if err != nil {
			return nil, err
		}
		if custom != "" {
			wafConfig = wafConfig.WithDirectives(custom)
		}
	}

	waf, err := coraza.NewWAF(wafConfig)
	if err != nil {
		return nil, fmt.Errorf("error initializing WAF: %w", err)
	}

	return waf, nil
}

// readCustomRules concatenates every *.conf file in dir in name order.
// Rules are inlined rather than included so they resolve outside the CRS root filesystem.
func readCustomRules(dir string) (string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.conf"))
	if err != nil {
		return "", fmt.Errorf("error listing custom rules: %w", err)
	}
	sort.Strings(files)

	var directives strings.Builder
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("error reading custom rules %s: %w", file, err)
		}
		directives.Write(data)
		directives.WriteString("\n")
	}
	return directives.String(), nil
}

// watchRulesDirectory monitors the custom rules directory for changes and reloads rules.
// It returns when done is closed or the watcher fails; ready, if non-nil,
// is closed once the watch is registered.
func watchRulesDirectory(done <-chan struct{}, coreRuleSet bool, rulesPath string, holder *WAFHolder, ready chan<- struct{}) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("Error setting up rules watcher: %v", err)
		return
	}
	defer watcher.Close()

	err = watcher.Add(rulesPath)
	if err != nil {
		log.Printf("Error watching rules directory: %v", err)
		return
	}

	log.Printf("Watching for changes in custom rules directory: %s", rulesPath)
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 || filepath.Ext(event.Name) != ".conf" {
				continue
			}
			log.Printf("Detected changes in %s, reloading rules", event.Name)

			newWAF, err := initializeWAF(coreRuleSet, rulesPath)
			if err != nil {
				log.Printf("Failed to reload WAF rules, keeping previous rules: %v", err)
				continue
			}

			holder.Store(newWAF)
			log.Printf("WAF rules reloaded successfully")
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Rules watcher error: %v", err)
		}
	}
}

// wafMiddleware inspects each request with the active WAF and answers
// interrupted requests with the interruption status.
func wafMiddleware(holder *WAFHolder, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		waf := holder.Load()
		if waf == nil {
			next.ServeHTTP(w, r)
			return
		}

		tx := waf.NewTransaction()
		defer func() {
			tx.ProcessLogging()
			tx.Close()
		}()

		clientIP, clientPort, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			clientIP = r.RemoteAddr
			clientPort = "0"
		}

		serverIP, serverPort, err := net.SplitHostPort(r.Host)
		if err != nil {
			serverIP = r.Host
			serverPort = "80"
			if r.TLS != nil {
				serverPort = "443"
			}
		}

		cPort, _ := strconv.Atoi(clientPort)
		sPort, _ := strconv.Atoi(serverPort)

		tx.ProcessConnection(clientIP, cPort, serverIP, sPort)
		tx.ProcessURI(r.URL.String(), r.Method, r.Proto)

		for name, values := range r.Header {
			for _, value := range values {
				tx.AddRequestHeader(name, value)
			}
		}
		if r.Host != "" {
			tx.AddRequestHeader("Host", r.Host)
		}

		if it := tx.ProcessRequestHeaders(); it != nil {
			blockRequest(w, it.Status)
			return
		}

		if r.Body != nil && r.ContentLength != 0 {
			// One byte past the limit is enough to know the body is too large
			bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, requestBodyLimit+1))
			if err != nil {
				log.Printf("Error reading request body: %v", err)
				http.Error(w, "Bad request", http.StatusBadRequest)
				return
			}
			if len(bodyBytes) > requestBodyLimit {
				blockRequest(w, http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			if it, _, err := tx.WriteRequestBody(bodyBytes); err != nil {
				log.Printf("Error writing request body: %v", err)
			} else if it != nil {
				blockRequest(w, it.Status)
				return
			}
		}

		it, err := tx.ProcessRequestBody()
		if err != nil {
			log.Printf("Error processing request body: %v", err)
		}
		if it == nil {
			it = tx.Interruption()
		}
		if it != nil {
			blockRequest(w, it.Status)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func blockRequest(w http.ResponseWriter, status int) {
	if status == 0 {
		status = http.StatusForbidden
	}
	log.Printf("WAF blocked request: %d", status)
	http.Error(w, "Request blocked by WAF", status)
}
