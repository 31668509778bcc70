package executor

import "encoding/json"

// Config selects which tracers a trace request runs. On the wire it is a
// bare JSON array of trace type names, e.g. ["trace","vmTrace"], not a
// JSON object: this mirrors trace_config's from_json in the original,
// which reads the request straight into a vector<string>.
type Config struct {
	VMTrace    bool
	Trace      bool
	StateDiff  bool
	TraceTypes []string
}

// UnmarshalJSON decodes Config from a bare array of trace type names.
func (c *Config) UnmarshalJSON(data []byte) error {
	var types []string
	if err := json.Unmarshal(data, &types); err != nil {
		return err
	}
	c.TraceTypes = types
	for _, t := range types {
		switch t {
		case "vmTrace":
			c.VMTrace = true
		case "trace":
			c.Trace = true
		case "stateDiff":
			c.StateDiff = true
		}
	}
	return nil
}

// MarshalJSON encodes Config back to the same bare array shape it decodes
// from.
func (c Config) MarshalJSON() ([]byte, error) {
	types := []string{}
	if c.Trace {
		types = append(types, "trace")
	}
	if c.VMTrace {
		types = append(types, "vmTrace")
	}
	if c.StateDiff {
		types = append(types, "stateDiff")
	}
	return json.Marshal(types)
}

// DecodeConfig parses a raw JSON trace-config array, tolerating a nil or
// empty body.
func DecodeConfig(raw json.RawMessage) (*Config, error) {
	cfg := &Config{}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
