package metrics

import (
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
)

// NewRegistry creates a new Prometheus registry with metrics
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	return reg, m
}

// WriteTextfile writes everything gathered from reg to path in the text
// exposition format, for node-exporter's textfile collector. The file is
// replaced atomically.
func WriteTextfile(reg prometheus.Gatherer, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return kerrors.Wrap(kerrors.ErrCodeFileWriteFailed, "failed to create metrics directory", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return kerrors.Wrap(kerrors.ErrCodeFileWriteFailed, "failed to write metrics textfile", err)
	}
	return nil
}
