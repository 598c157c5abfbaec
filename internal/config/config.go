package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "100ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	// Interface is the network interface to bridge.
	Interface string `yaml:"interface"`
	// IP is the IPv4 address the bridge answers resolution requests for.
	IP string `yaml:"ip"`
	// HardwareAddr overrides the interface's own Ethernet address.
	HardwareAddr string `yaml:"hardware_addr"`
	// Listen is the address of the introspection API.
	Listen string `yaml:"listen"`
	// TickInterval is how often the resolution clock advances.
	TickInterval Duration `yaml:"tick_interval"`
	// PingInterval is how often cached neighbors are pinged to stay warm.
	// Zero disables the pinger.
	PingInterval Duration `yaml:"ping_interval"`
	// Mirror enables pushing learned mappings into the kernel neighbor table.
	Mirror bool `yaml:"mirror"`
	Debug  bool `yaml:"debug"`
}

func Default() Config {
	return Config{
		Listen:       "127.0.0.1:54321",
		TickInterval: Duration{100 * time.Millisecond},
		PingInterval: Duration{30 * time.Second},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
