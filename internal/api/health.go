package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Checker defines the interface for readiness checkers.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// healthHandler manages liveness and readiness endpoints.
type healthHandler struct {
	mu       sync.RWMutex
	checkers []Checker
}

func newHealthHandler() *healthHandler {
	return &healthHandler{checkers: make([]Checker, 0)}
}

func (h *healthHandler) register(c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, c)
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health returns basic liveness status.
func (h *healthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// Ready checks all registered dependencies and returns 200 only if all
// are healthy.
func (h *healthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.RLock()
	checkers := make([]Checker, len(h.checkers))
	copy(checkers, h.checkers)
	h.mu.RUnlock()

	results := make(map[string]string)
	allHealthy := true

	for _, checker := range checkers {
		if err := checker.Check(ctx); err != nil {
			results[checker.Name()] = err.Error()
			allHealthy = false
		} else {
			results[checker.Name()] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")

	resp := HealthResponse{
		Status: "ready",
		Checks: results,
	}
	if !allHealthy {
		resp.Status = "not_ready"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(resp)
}

// SQLiteChecker checks SQLite database connectivity.
type SQLiteChecker struct {
	db *sql.DB
}

// NewSQLiteChecker creates a new SQLite health checker.
func NewSQLiteChecker(db *sql.DB) *SQLiteChecker {
	return &SQLiteChecker{db: db}
}

// Name returns the checker name.
func (c *SQLiteChecker) Name() string {
	return "sqlite"
}

// Check verifies the SQLite database is accessible.
func (c *SQLiteChecker) Check(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return c.db.PingContext(ctx)
}

// KafkaChecker checks that at least one broker accepts connections.
type KafkaChecker struct {
	brokers []string
}

// NewKafkaChecker creates a new Kafka broker health checker.
func NewKafkaChecker(brokers []string) *KafkaChecker {
	return &KafkaChecker{brokers: brokers}
}

// Name returns the checker name.
func (c *KafkaChecker) Name() string {
	return "kafka"
}

// Check verifies a broker is reachable.
func (c *KafkaChecker) Check(ctx context.Context) error {
	if len(c.brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}
	var lastErr error
	for _, broker := range c.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close()
		return nil
	}
	return fmt.Errorf("no broker reachable: %w", lastErr)
}

// SnapshotChecker reports readiness based on the rule snapshot age.
// A snapshot older than maxAge means config refresh has been failing
// long enough that the running rules may be stale.
type SnapshotChecker struct {
	loadedAt func() time.Time
	maxAge   time.Duration
}

// NewSnapshotChecker creates a new snapshot freshness checker.
// maxAge <= 0 disables the staleness check and only requires that a
// snapshot has been loaded at all.
func NewSnapshotChecker(loadedAt func() time.Time, maxAge time.Duration) *SnapshotChecker {
	return &SnapshotChecker{loadedAt: loadedAt, maxAge: maxAge}
}

// Name returns the checker name.
func (c *SnapshotChecker) Name() string {
	return "snapshot"
}

// Check verifies a rule snapshot has been loaded and is fresh enough.
func (c *SnapshotChecker) Check(ctx context.Context) error {
	loaded := c.loadedAt()
	if loaded.IsZero() {
		return fmt.Errorf("no rule snapshot loaded")
	}
	if c.maxAge > 0 {
		if age := time.Since(loaded); age > c.maxAge {
			return fmt.Errorf("rule snapshot stale: loaded %s ago", age.Round(time.Second))
		}
	}
	return nil
}
