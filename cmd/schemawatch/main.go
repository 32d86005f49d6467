// Command schemawatch is a devloop tool: point it at a directory of
// entity-declaration JSON fixtures and it re-runs the schema resolver
// every time one changes, logging whether the result reached a fixed
// point. It never talks to a database; it only exercises the resolver.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/windrift-orm/windrift/internal/rtype"
	"github.com/windrift-orm/windrift/internal/schema/fixture"
)

func main() {
	dir := "."
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		fatal("resolving directory: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	runOnce(logger, dir)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fatal("failed to create file watcher: %v", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		fatal("failed to watch directory: %v", err)
	}

	logger.Info("watching for entity declaration changes", "dir", dir)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var debounceTimer *time.Timer
	const debounceDelay = 150 * time.Millisecond

	for {
		select {
		case <-sigChan:
			logger.Info("shutting down")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				logger.Info("entity declaration changed", "file", filepath.Base(event.Name))
				runOnce(logger, dir)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

// runOnce loads every entity declaration in dir and drives the schema
// resolver to a fixed point once, logging the outcome.
func runOnce(logger *slog.Logger, dir string) {
	reg := rtype.NewRegistry()
	r, err := fixture.LoadDir(dir, reg)
	if err != nil {
		logger.Error("failed to load entity declarations", "error", err)
		return
	}

	resolved, d := r.Resolve()
	if d.HasErrors() {
		for _, diagnostic := range d.Errors() {
			logger.Error("schema resolver diagnostic", "message", diagnostic.Message, "code", diagnostic.Code)
		}
		logger.Warn("schema did not reach a fixed point", "resolved_entities", len(resolved))
		return
	}

	names := make([]string, 0, len(resolved))
	for name := range resolved {
		names = append(names, name)
	}
	logger.Info("schema resolved to a fixed point", "entities", len(names))
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "schemawatch: "+format+"\n", args...)
	os.Exit(1)
}
