package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"flyto/internal/geo"
	"flyto/internal/sequencer"
	"flyto/internal/vehicle"
)

// Reference target, about 400m from the simulator's default home point.
var DefaultTarget = geo.GeoPoint{Lat: -35.360500, Lon: 149.168000, Alt: 15}

type Config struct {
	LinkAddr       string
	ConnectTimeout time.Duration
	Target         geo.GeoPoint

	PollInterval   time.Duration
	ArmTimeout     time.Duration
	TakeoffTimeout time.Duration
	ReleaseLink    bool

	LogFile  string
	LogLevel string

	MetricsAddr        string
	TracingEnabled     bool
	TracingExporter    string
	OTLPEndpoint       string
	TracingSampleRatio float64
}

func Default() Config {
	return Config{
		LinkAddr:           vehicle.DefaultAddress,
		ConnectTimeout:     vehicle.DefaultConnectTimeout,
		Target:             DefaultTarget,
		PollInterval:       sequencer.DefaultPollInterval,
		ArmTimeout:         sequencer.DefaultArmTimeout,
		TakeoffTimeout:     sequencer.DefaultTakeoffTimeout,
		LogFile:            "flyto.log",
		LogLevel:           "info",
		TracingExporter:    "stdout",
		TracingSampleRatio: 1,
	}
}

// Load overlays FLYTO_* environment variables on the defaults.
func Load() (Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	var errs []string

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			if d < 0 {
				errs = append(errs, fmt.Sprintf("%s: negative duration", key))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = b
		}
	}

	str("FLYTO_LINK_ADDR", &cfg.LinkAddr)
	duration("FLYTO_CONNECT_TIMEOUT", &cfg.ConnectTimeout)
	float("FLYTO_TARGET_LAT", &cfg.Target.Lat)
	float("FLYTO_TARGET_LON", &cfg.Target.Lon)
	float("FLYTO_TARGET_ALT", &cfg.Target.Alt)
	duration("FLYTO_POLL_INTERVAL", &cfg.PollInterval)
	duration("FLYTO_ARM_TIMEOUT", &cfg.ArmTimeout)
	duration("FLYTO_TAKEOFF_TIMEOUT", &cfg.TakeoffTimeout)
	boolean("FLYTO_RELEASE_LINK", &cfg.ReleaseLink)
	str("FLYTO_LOG_FILE", &cfg.LogFile)
	str("FLYTO_LOG_LEVEL", &cfg.LogLevel)
	str("FLYTO_METRICS_ADDR", &cfg.MetricsAddr)
	boolean("FLYTO_TRACING_ENABLED", &cfg.TracingEnabled)
	str("FLYTO_TRACING_EXPORTER", &cfg.TracingExporter)
	str("FLYTO_OTLP_ENDPOINT", &cfg.OTLPEndpoint)
	float("FLYTO_TRACING_SAMPLE_RATIO", &cfg.TracingSampleRatio)

	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Target.ValidateTarget(); err != nil {
		return fmt.Errorf("target: %w", err)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	switch strings.ToLower(c.TracingExporter) {
	case "", "stdout", "otlp", "otlpgrpc":
	default:
		return fmt.Errorf("unsupported tracing exporter %q", c.TracingExporter)
	}
	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		return fmt.Errorf("tracing sample ratio %v out of range [0, 1]", c.TracingSampleRatio)
	}
	return nil
}

// Sequencer returns the sequencing settings carried by c.
func (c Config) Sequencer() sequencer.Config {
	sc := sequencer.DefaultConfig()
	sc.PollInterval = c.PollInterval
	sc.ArmTimeout = c.ArmTimeout
	sc.TakeoffTimeout = c.TakeoffTimeout
	sc.ReleaseLink = c.ReleaseLink
	return sc
}
