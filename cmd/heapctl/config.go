package main

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
)

const envVarPrefix = "KHEAPCTL"

// Config carries the workload parameters that can be preset through
// KHEAPCTL_* environment variables. Flag registration reads these as the
// flag defaults, so explicit flags always win over the environment.
type Config struct {
	HeapSize uint64 `envconfig:"KHEAPCTL_HEAP_SIZE" default:"1048576"`
	Strategy string `envconfig:"KHEAPCTL_STRATEGY"  default:"fixedsize"`
	Ops      uint64 `envconfig:"KHEAPCTL_OPS"       default:"200000"`
	Seed     int64  `envconfig:"KHEAPCTL_SEED"      default:"1"`
	MaxSize  uint64 `envconfig:"KHEAPCTL_MAX_SIZE"  default:"600"`
	MaxAlign uint64 `envconfig:"KHEAPCTL_MAX_ALIGN" default:"64"`
}

// envDefaults is resolved before any init() registers flags.
var envDefaults = loadEnvDefaults()

func loadEnvDefaults() Config {
	var c Config
	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: ignoring %s_* environment: %v\n", envVarPrefix, err)
		return Config{
			HeapSize: 1 << 20,
			Strategy: "fixedsize",
			Ops:      200000,
			Seed:     1,
			MaxSize:  600,
			MaxAlign: 64,
		}
	}
	return c
}
