// Package health provides readiness checks for an oracle deployment. It
// offers standardized ways to verify the data directories, backing services,
// and catalog content a server depends on before it reports itself serving.
package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/compliance-oracle/sdk/framework"
)

// State is the outcome of a check.
type State string

const (
	StateHealthy   State = "healthy"
	StateDegraded  State = "degraded"
	StateUnhealthy State = "unhealthy"
)

// Status is the result of one check, or of several combined.
type Status struct {
	State   State          `json:"state"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// IsHealthy returns true if the status is healthy.
func (s Status) IsHealthy() bool { return s.State == StateHealthy }

// IsUnhealthy returns true if the status is unhealthy.
func (s Status) IsUnhealthy() bool { return s.State == StateUnhealthy }

func healthy(message string) Status {
	return Status{State: StateHealthy, Message: message}
}

func degraded(message string, details map[string]any) Status {
	return Status{State: StateDegraded, Message: message, Details: details}
}

func unhealthy(message string, details map[string]any) Status {
	return Status{State: StateUnhealthy, Message: message, Details: details}
}

// FileCheck verifies that a file or directory exists at the specified path.
//
// Example:
//
//	status := health.FileCheck(cfg.FrameworksDir)
//	if status.IsUnhealthy() {
//	    log.Fatal("frameworks directory is missing")
//	}
func FileCheck(path string) Status {
	if path == "" {
		return unhealthy("path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return unhealthy(
				fmt.Sprintf("path '%s' does not exist", path),
				map[string]any{"path": path},
			)
		}
		return unhealthy(
			fmt.Sprintf("failed to stat path '%s'", path),
			map[string]any{"path": path, "error": err.Error()},
		)
	}

	fileType := "file"
	if info.IsDir() {
		fileType = "directory"
	}
	return healthy(fmt.Sprintf("%s '%s' exists", fileType, path))
}

// NetworkCheck verifies TCP connectivity to a host and port, typically a
// redis or etcd endpoint. The context bounds the dial; a nil context gets a
// five second timeout.
func NetworkCheck(ctx context.Context, host string, port int) Status {
	if host == "" {
		return unhealthy("host cannot be empty", nil)
	}
	if port <= 0 || port > 65535 {
		return unhealthy(
			fmt.Sprintf("invalid port number: %d", port),
			map[string]any{"port": port},
		)
	}

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))
	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return unhealthy(
			fmt.Sprintf("failed to connect to %s", address),
			map[string]any{"host": host, "port": port, "error": err.Error()},
		)
	}
	conn.Close()

	return healthy(fmt.Sprintf("successfully connected to %s", address))
}

// CatalogSource is the slice of the framework manager catalog checks need.
type CatalogSource interface {
	ListFrameworks(ctx context.Context) ([]framework.Info, error)
}

// CatalogCheck verifies that the framework registry loads and that at least
// one framework has an installed catalog. A registry with only planned
// frameworks is degraded rather than unhealthy: lookups work, they just
// return nothing useful.
func CatalogCheck(ctx context.Context, catalogs CatalogSource) Status {
	infos, err := catalogs.ListFrameworks(ctx)
	if err != nil {
		return unhealthy("framework registry failed to load",
			map[string]any{"error": err.Error()})
	}
	if len(infos) == 0 {
		return degraded("framework registry is empty", nil)
	}

	active := 0
	for _, info := range infos {
		if info.Status == framework.StatusActive {
			active++
		}
	}
	if active == 0 {
		return degraded(
			fmt.Sprintf("%d framework(s) registered but none installed", len(infos)),
			map[string]any{"registered": len(infos)},
		)
	}

	return healthy(fmt.Sprintf("%d of %d framework(s) installed", active, len(infos)))
}

// Combine aggregates multiple checks into a single status.
// The result follows this priority:
//   - If any check is unhealthy, the result is unhealthy
//   - If any check is degraded (and none unhealthy), the result is degraded
//   - If all checks are healthy, the result is healthy
func Combine(checks ...Status) Status {
	if len(checks) == 0 {
		return healthy("no checks provided")
	}

	var unhealthyChecks []string
	var degradedChecks []string
	healthyCount := 0

	for _, check := range checks {
		switch check.State {
		case StateUnhealthy:
			msg := check.Message
			if msg == "" {
				msg = "unnamed check"
			}
			unhealthyChecks = append(unhealthyChecks, msg)
		case StateDegraded:
			msg := check.Message
			if msg == "" {
				msg = "unnamed check"
			}
			degradedChecks = append(degradedChecks, msg)
		case StateHealthy:
			healthyCount++
		}
	}

	if len(unhealthyChecks) > 0 {
		return unhealthy(
			fmt.Sprintf("%d check(s) failed", len(unhealthyChecks)),
			map[string]any{
				"total":         len(checks),
				"unhealthy":     len(unhealthyChecks),
				"degraded":      len(degradedChecks),
				"healthy":       healthyCount,
				"failed_checks": unhealthyChecks,
			},
		)
	}
	if len(degradedChecks) > 0 {
		return degraded(
			fmt.Sprintf("%d check(s) degraded", len(degradedChecks)),
			map[string]any{
				"total":           len(checks),
				"degraded":        len(degradedChecks),
				"healthy":         healthyCount,
				"degraded_checks": degradedChecks,
			},
		)
	}

	return healthy(fmt.Sprintf("all %d check(s) passed", len(checks)))
}
