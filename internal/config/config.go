package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

// Isolation is the fixed engine-level policy applied to every run. Clients
// never influence these; only memory comes from the run request.
type Isolation struct {
	CPULimit    float64 `yaml:"cpu_limit"`
	PidsLimit   int     `yaml:"pids_limit"`
	TmpfsSize   string  `yaml:"tmpfs_size"`
	NetworkMode string  `yaml:"network_mode"`
}

type Config struct {
	Listen        string            `yaml:"listen"`
	APIKey        string            `yaml:"api_key"`
	EngineBinary  string            `yaml:"engine_binary"`
	WorkspaceRoot string            `yaml:"workspace_root"`
	Images        map[string]string `yaml:"images"`
	GraceMs       int               `yaml:"grace_ms"`
	JanitorSecs   int               `yaml:"janitor_interval_seconds"`
	Isolation     Isolation         `yaml:"isolation"`
}

func Load(yamlPath string) (*Config, error) {
	cfg := &Config{
		Listen:        "127.0.0.1:8080",
		EngineBinary:  "docker",
		WorkspaceRoot: "./workspaces",
		Images: map[string]string{
			"python": "runbox-runtime:python",
			"node":   "runbox-runtime:node",
		},
		GraceMs:     2000,
		JanitorSecs: 60,
		Isolation: Isolation{
			CPULimit:    0.5,
			PidsLimit:   64,
			TmpfsSize:   "64m",
			NetworkMode: "none",
		},
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if _, err := cfg.TmpfsBytes(); err != nil {
		return nil, fmt.Errorf("invalid tmpfs_size %q: %w", cfg.Isolation.TmpfsSize, err)
	}

	return cfg, nil
}

// TmpfsBytes parses the human-readable tmpfs size ("64m", "1g") into bytes.
func (c *Config) TmpfsBytes() (int64, error) {
	return units.RAMInBytes(c.Isolation.TmpfsSize)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RUNBOX_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("RUNBOX_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("RUNBOX_ENGINE_BINARY"); v != "" {
		cfg.EngineBinary = v
	}
	if v := os.Getenv("RUNBOX_WORKSPACE_ROOT"); v != "" {
		cfg.WorkspaceRoot = v
	}
	if v := os.Getenv("RUNBOX_IMAGES"); v != "" {
		// lang=image pairs, comma separated
		images := make(map[string]string)
		for _, pair := range strings.Split(v, ",") {
			if lang, image, ok := strings.Cut(pair, "="); ok {
				images[strings.TrimSpace(lang)] = strings.TrimSpace(image)
			}
		}
		if len(images) > 0 {
			cfg.Images = images
		}
	}
	if v := os.Getenv("RUNBOX_GRACE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GraceMs = n
		}
	}
	if v := os.Getenv("RUNBOX_JANITOR_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.JanitorSecs = n
		}
	}
	if v := os.Getenv("RUNBOX_CPU_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Isolation.CPULimit = f
		}
	}
	if v := os.Getenv("RUNBOX_PIDS_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Isolation.PidsLimit = n
		}
	}
	if v := os.Getenv("RUNBOX_TMPFS_SIZE"); v != "" {
		cfg.Isolation.TmpfsSize = v
	}
	if v := os.Getenv("RUNBOX_NETWORK_MODE"); v != "" {
		cfg.Isolation.NetworkMode = v
	}
}
