package treeprof

import (
	"os"
	"strconv"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultMinMS is the report filter threshold applied when none is
	// configured.
	DefaultMinMS = 10

	// ClockWall selects the monotonic wall clock, ClockCPU the process CPU
	// clock. A profiler uses one source for its whole lifetime.
	ClockWall = "wall"
	ClockCPU  = "cpu"
)

type Config struct {
	// Enabled is read once at construction. A disabled profiler makes every
	// wrapped function behave exactly like the original.
	Enabled bool `env:"TREEPROF_ENABLED" env-default:"false"`

	// MinMS suppresses report entries below this many milliseconds.
	MinMS float64 `env:"TREEPROF_MIN_MS" env-default:"10"`

	// Clock is "wall" or "cpu".
	Clock string `env:"TREEPROF_CLOCK" env-default:"wall"`
}

func DefaultConfig() Config {
	return Config{MinMS: DefaultMinMS, Clock: ClockWall}
}

// LoadConfig reads the configuration from the environment. A malformed value
// degrades to the defaults rather than failing: misconfiguration of the
// profiler must never take the host process down. The enable flag is still
// honored on its own when another variable is the malformed one.
func LoadConfig() Config {
	cfg := DefaultConfig()
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Warn().Err(err).Msg("malformed treeprof configuration, using defaults")
		cfg = DefaultConfig()
		if v, perr := strconv.ParseBool(os.Getenv("TREEPROF_ENABLED")); perr == nil {
			cfg.Enabled = v
		}
	}
	if cfg.Clock != ClockWall && cfg.Clock != ClockCPU {
		log.Warn().Str("clock", cfg.Clock).Msg("unknown clock source, using wall")
		cfg.Clock = ClockWall
	}
	return cfg
}
