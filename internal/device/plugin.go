package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/plugin"
)

// PluginSink hands every command to the driver plugins that accept its device.
type PluginSink struct {
	manager  *plugin.Manager
	executor *plugin.Executor
}

// NewPluginSink uses already discovered plugins from manager.
func NewPluginSink(manager *plugin.Manager, executor *plugin.Executor) *PluginSink {
	return &PluginSink{manager: manager, executor: executor}
}

func (p *PluginSink) Name() string { return "plugins" }

func (p *PluginSink) Apply(ctx context.Context, cmd control.Command, status control.Snapshot) error {
	req := &plugin.Request{
		Action:  plugin.ActionApply,
		Device:  string(cmd.Device),
		Kind:    string(cmd.Kind),
		Level:   cmd.Level,
		Delta:   cmd.Delta,
		Value:   cmd.Value,
		Gesture: string(cmd.Gesture),
		Status:  status.StatusLine(),
	}

	var errs []error
	for _, pl := range p.manager.ForDevice(string(cmd.Device)) {
		if err := p.run(ctx, pl, req); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *PluginSink) run(ctx context.Context, pl *plugin.Plugin, req *plugin.Request) error {
	resp, err := p.executor.Execute(ctx, pl, req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin %s: %s", pl.Manifest.Name, resp.Error)
	}
	return nil
}

// Close asks every plugin to release its devices.
func (p *PluginSink) Close() error {
	var errs []error
	for _, pl := range p.manager.List() {
		if err := p.run(context.Background(), pl, &plugin.Request{Action: plugin.ActionRelease}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
