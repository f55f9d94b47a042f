package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global debug flag
var DebugMode bool

// Global start time for process uptime tracking
var StartTime time.Time

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// getClientIP extracts the client address, honouring X-Forwarded-For from a
// reverse proxy
func getClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// httpLogger creates a logging middleware that logs requests in Apache combined log format
func httpLogger(logFile io.Writer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// WebSocket upgrades are logged up front; the connection is hijacked
		// afterwards so the response can't be captured
		if r.Header.Get("Upgrade") == "websocket" {
			logLine := fmt.Sprintf("%s - - [%s] \"%s %s %s\" 101 - \"%s\" \"%s\" 0.000ms\n",
				getClientIP(r),
				start.Format("02/Jan/2006:15:04:05 -0700"),
				r.Method, r.RequestURI, r.Proto,
				orDash(r.Referer()), orDash(r.Header.Get("User-Agent")),
			)
			if _, err := io.WriteString(logFile, logLine); err != nil {
				log.Printf("Error writing to access log: %v", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		wrapped := &responseWriter{ResponseWriter: w, statusCode: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start)

		// Apache Combined Log Format:
		// %h %l %u %t "%r" %>s %b "%{Referer}i" "%{User-agent}i"
		logLine := fmt.Sprintf("%s - - [%s] \"%s %s %s\" %d %d \"%s\" \"%s\" %.3fms\n",
			getClientIP(r),
			start.Format("02/Jan/2006:15:04:05 -0700"),
			r.Method, r.RequestURI, r.Proto,
			wrapped.statusCode, wrapped.written,
			orDash(r.Referer()), orDash(r.Header.Get("User-Agent")),
			float64(duration.Microseconds())/1000.0,
		)
		if _, err := io.WriteString(logFile, logLine); err != nil {
			log.Printf("Error writing to access log: %v", err)
		}
	})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// gzipResponseWriter wraps http.ResponseWriter to provide gzip compression
type gzipResponseWriter struct {
	io.Writer
	http.ResponseWriter
}

func (w gzipResponseWriter) Write(b []byte) (int, error) {
	return w.Writer.Write(b)
}

// gzipHandler wraps an http.HandlerFunc with gzip compression
func gzipHandler(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			fn(w, r)
			return
		}

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Vary", "Accept-Encoding")

		gz := gzip.NewWriter(w)
		defer gz.Close()

		fn(gzipResponseWriter{Writer: gz, ResponseWriter: w}, r)
	}
}

// corsMiddleware adds CORS headers to all responses if enabled in config
func corsMiddleware(config *Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if config.Server.EnableCORS {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func main() {
	// Record start time for uptime tracking
	StartTime = time.Now()

	// Parse command line flags
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Set global debug mode - check environment variable first, then CLI flag
	DebugMode = *debug
	if debugEnv := os.Getenv("DEBUG"); debugEnv != "" {
		// Environment variable takes precedence
		DebugMode = debugEnv == "true" || debugEnv == "1" || debugEnv == "yes"
	}
	if DebugMode {
		log.Println("Debug mode enabled")
	}

	// Load configuration; a missing file means run with defaults
	config, err := LoadConfig(*configFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("Config: %s not found, using defaults", *configFile)
			config = DefaultConfig()
		} else {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}

	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Metrics
	var metrics *DecodeMetrics
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if config.Prometheus.Enabled {
		metrics = NewDecodeMetrics()
		metrics.StartSystemMetricsUpdater(ctx)
	}

	// MQTT publisher
	var publisher *MQTTPublisher
	if config.MQTT.Enabled {
		publisher, err = NewMQTTPublisher(&config.MQTT)
		if err != nil {
			log.Printf("Warning: MQTT publisher disabled: %v", err)
			publisher = nil
		}
	}

	// HTTP routes
	api := NewDecodeAPI(config, metrics, publisher)
	wsHandler := NewDecodeWSHandler(config, metrics)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/decode", api.HandleDecode)
	mux.HandleFunc("/api/encode", api.HandleEncode)
	mux.HandleFunc("/api/code", gzipHandler(api.HandleCodeInfo))
	mux.HandleFunc("/ws/decode", wsHandler.HandleWebSocket)
	mux.HandleFunc("/health", handleHealth)
	if config.Prometheus.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	// Access log destination
	var accessLog io.Writer = os.Stdout
	if config.Logging.AccessLog != "" {
		logFile, err := os.OpenFile(config.Logging.AccessLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatalf("Failed to open access log: %v", err)
		}
		defer logFile.Close()
		accessLog = logFile
	}

	var handler http.Handler = mux
	handler = corsMiddleware(config, handler)
	handler = httpLogger(accessLog, handler)

	// Start HTTP server
	server := &http.Server{
		Addr:              config.Server.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")

		cancel()
		if publisher != nil {
			publisher.Disconnect()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error closing server: %v", err)
		}
	}()

	log.Printf("Server listening on %s", config.Server.Listen)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped")
}
