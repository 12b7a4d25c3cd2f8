// control/controller.go
// Author: momentics <momentics@gmail.com>
//
// Controller implements api.Control over a MetricsRegistry and DebugProbes.

package control

import (
	"github.com/sugawarayuuta/sonnet"

	"github.com/momentics/wsecho/api"
)

// Controller is the default api.Control.
type Controller struct {
	Metrics *MetricsRegistry
	Probes  *DebugProbes
	Config  *ConfigStore
}

var _ api.Control = (*Controller)(nil)

// NewController creates a controller with runtime probes registered.
func NewController() *Controller {
	c := &Controller{
		Metrics: NewMetricsRegistry(),
		Probes:  NewDebugProbes(),
		Config:  NewConfigStore(),
	}
	RegisterRuntimeProbes(c.Probes)
	return c
}

// Stats returns the metrics snapshot.
func (c *Controller) Stats() map[string]any {
	return c.Metrics.GetSnapshot()
}

// Inc adds delta to counter key.
func (c *Controller) Inc(key string, delta int64) {
	c.Metrics.Inc(key, delta)
}

// RegisterDebugProbe registers a named probe.
func (c *Controller) RegisterDebugProbe(name string, fn func() any) {
	c.Probes.RegisterProbe(name, fn)
}

// DumpState evaluates every probe.
func (c *Controller) DumpState() map[string]any {
	return c.Probes.DumpState()
}

// Report is the JSON document printed by the example binary.
type Report struct {
	Metrics map[string]any `json:"metrics"`
	State   map[string]any `json:"state"`
}

// ReportJSON encodes metrics and probe output together.
func (c *Controller) ReportJSON() ([]byte, error) {
	return sonnet.Marshal(Report{
		Metrics: c.Stats(),
		State:   c.DumpState(),
	})
}
