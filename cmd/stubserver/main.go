package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/himanishpuri/GenreGenius/internal/stubserver"
	"github.com/himanishpuri/GenreGenius/pkg/logger"
)

var (
	port    int
	delay   time.Duration
	percent bool
	failIDs string
)

func init() {
	flag.IntVar(&port, "port", 5000, "HTTP server port")
	flag.DurationVar(&delay, "delay", 700*time.Millisecond, "Delay before each streamed event")
	flag.BoolVar(&percent, "percent", false, "Send percent-scaled results in a genre_probabilities envelope")
	flag.StringVar(&failIDs, "fail", getEnvOrDefault("STUB_FAIL_IDS", ""), "Comma-separated video IDs answered with an error event")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	script := stubserver.DefaultScript()
	script.Delay = delay
	script.Percent = percent

	server := stubserver.New(script)
	for _, id := range splitList(failIDs) {
		server.Handle(id, stubserver.Script{
			Progress: script.Progress[:1],
			Delay:    delay,
			Failure:  fmt.Sprintf("ERROR: [youtube] %s: Video unavailable", id),
		})
	}

	addr := fmt.Sprintf(":%d", port)
	log.Infof("🚀 Stub prediction service starting on %s", addr)
	log.Infof("   GET /predict?url=<youtube url>  - Streamed prediction")
	log.Infof("   GET /health                     - Health check")
	log.Infof("   GET /metrics                    - Prometheus metrics")

	if err := http.ListenAndServe(addr, server.Handler()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
