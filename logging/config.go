package logging

import "time"

const (
	SinkConsole = "console"
	SinkJSON    = "json"
	SinkMemory  = "memory"
)

type Config struct {
	EnabledSinks     []string       `yaml:"sinks"`
	BufferSize       int            `yaml:"bufferSize"`
	MinimumSeverity  Severity       `yaml:"-"`
	Severity         string         `yaml:"severity"`
	Fields           map[string]any `yaml:"fields"`
	JSON             JSONConfig     `yaml:"json"`
	DropWarnInterval time.Duration  `yaml:"dropWarnInterval"`
}

type JSONConfig struct {
	FilePath      string        `yaml:"path"`
	FlushInterval time.Duration `yaml:"flushInterval"`
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{SinkConsole},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		Severity:         SeverityInfo.String(),
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			FlushInterval: 2 * time.Second,
		},
	}
}

// Normalized resolves the textual severity and fills missing values from
// DefaultConfig.
func (c Config) Normalized() (Config, error) {
	def := DefaultConfig()
	out := c
	if out.BufferSize <= 0 {
		out.BufferSize = def.BufferSize
	}
	if out.DropWarnInterval <= 0 {
		out.DropWarnInterval = def.DropWarnInterval
	}
	if out.JSON.FlushInterval < 0 {
		out.JSON.FlushInterval = 0
	}
	sev, err := ParseSeverity(out.Severity)
	if err != nil {
		return out, err
	}
	out.MinimumSeverity = sev
	out.Severity = sev.String()
	return out, nil
}

func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		cloned[k] = v
	}
	return cloned
}
