package main

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchConfig reloads the greeting whenever the config file changes.
// The parent directory is watched because editors and config management
// tools usually replace the file instead of writing it in place.
// ready, if non-nil, is closed once the watch is registered.
func watchConfig(done <-chan struct{}, configPath string, greeting *Greeting, ready chan<- struct{}) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("Error setting up config watcher: %v", err)
		return
	}
	defer watcher.Close()

	configPath = filepath.Clean(configPath)
	err = watcher.Add(filepath.Dir(configPath))
	if err != nil {
		log.Printf("Error watching config directory: %v", err)
		return
	}

	log.Printf("Watching for changes in config file: %s", configPath)
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
			if !isConfigEvent(event, configPath) {
				continue
			}
			reloadGreeting(configPath, greeting)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Config watcher error: %v", err)
		}
	}
}

// configDataDir is the symlink Kubernetes swaps when a mounted ConfigMap changes.
// The config path itself resolves through it and sees no event of its own.
const configDataDir = "..data"

func isConfigEvent(event fsnotify.Event, configPath string) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == configPath || name == filepath.Join(filepath.Dir(configPath), configDataDir)
}

// reloadGreeting re-reads the config and swaps in its greeting.
// A file that fails to load leaves the current greeting in place.
func reloadGreeting(configPath string, greeting *Greeting) bool {
	config, err := loadConfig(configPath)
	if err != nil {
		log.Printf("Failed to reload config, keeping previous greeting: %v", err)
		return false
	}

	if config.Greeting == greeting.Get() {
		return false
	}

	if err := greeting.Set(config.Greeting); err != nil {
		log.Printf("Failed to apply greeting: %v", err)
		return false
	}
	log.Printf("Greeting reloaded from %s", configPath)
	return true
}
