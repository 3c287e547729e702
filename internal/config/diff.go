package config

import "reflect"

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// VADFields lists the yaml names of changed detector fields, in
	// declaration order. New streams pick these up; running streams keep the
	// configuration they were opened with.
	VADFields []string

	SegmentsChanged bool

	// RestartRequired lists changed settings that only take effect after a
	// restart (listen address, service name, engine).
	RestartRequired []string
}

// VADChanged reports whether any detector field changed.
func (d ConfigDiff) VADChanged() bool { return len(d.VADFields) > 0 }

// Empty reports whether nothing changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.VADChanged() && !d.SegmentsChanged && len(d.RestartRequired) == 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	d.VADFields = diffFields(reflect.ValueOf(old.VAD), reflect.ValueOf(new.VAD))
	d.SegmentsChanged = old.Segments != new.Segments

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if old.Server.ServiceName != new.Server.ServiceName {
		d.RestartRequired = append(d.RestartRequired, "server.service_name")
	}
	if old.Engine != new.Engine {
		d.RestartRequired = append(d.RestartRequired, "engine")
	}
	return d
}

// diffFields returns the yaml tag of every top-level field that differs
// between two values of the same flat struct type.
func diffFields(a, b reflect.Value) []string {
	var changed []string
	t := a.Type()
	for i := range t.NumField() {
		if a.Field(i).Interface() != b.Field(i).Interface() {
			changed = append(changed, t.Field(i).Tag.Get("yaml"))
		}
	}
	return changed
}
