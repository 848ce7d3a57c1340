// Package plugins registers all built-in dissector plugins.
package plugins

import (
	"fmt"

	"firestige.xyz/strix/internal/config"
	"firestige.xyz/strix/internal/export"
	"firestige.xyz/strix/internal/proto"
	"firestige.xyz/strix/internal/tap"
	"firestige.xyz/strix/plugins/dissector/api"
	"firestige.xyz/strix/plugins/dissector/httpobj"
	"firestige.xyz/strix/plugins/dissector/tftpobj"
)

// Builtins returns fresh instances of every built-in dissector.
// More dissectors will be added here as they are implemented.
func Builtins() []api.Dissector {
	return []api.Dissector{
		httpobj.New(),
		tftpobj.New(),
	}
}

// Setup configures the built-in dissectors and registers each one with the
// protocol table, the export-object registry and the tap dispatch path.
// An empty dissector config list enables every builtin with defaults;
// otherwise only the named dissectors are registered.
func Setup(protos *proto.Table, taps *tap.Table, registry *export.Registry,
	consumer api.Consumer, cfgs []config.DissectorConfig) error {

	enabled := make(map[string]map[string]interface{})
	for _, c := range cfgs {
		enabled[c.Name] = c.Options
	}

	for _, d := range Builtins() {
		opts, found := enabled[d.FilterName()]
		if len(cfgs) > 0 && !found {
			continue
		}

		if err := d.Configure(opts); err != nil {
			return fmt.Errorf("configure dissector '%s': %w", d.FilterName(), err)
		}
		d.SetConsumer(consumer)

		id, err := protos.Register(d.Name(), d.FilterName())
		if err != nil {
			return fmt.Errorf("register protocol '%s': %w", d.FilterName(), err)
		}
		if _, err := registry.Register(id, d.PacketFunc(), nil); err != nil {
			return fmt.Errorf("register export tap '%s': %w", d.FilterName(), err)
		}

		// Attach the stored callback so delivered packets reach the
		// dissector. The registry itself never invokes callbacks.
		reg := registry.FindByName(d.FilterName())
		if err := taps.Listen(reg.TapListenerName(), reg.PacketFunc()); err != nil {
			return fmt.Errorf("attach tap listener '%s': %w", reg.TapListenerName(), err)
		}
	}
	return nil
}
