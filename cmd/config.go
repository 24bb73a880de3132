package cmd

import (
	"time"

	"github.com/spf13/viper"

	"github.com/vhnguyen/sslsweep/internal/assess"
	"github.com/vhnguyen/sslsweep/internal/gate"
)

// Built-in defaults; every value can be overridden via config file or flags.
const (
	defaultPollIntervalSecs   = 30
	defaultBackoffFloorSecs   = 60
	defaultBackoffCeilingSecs = 600
	defaultMaxPollMinutes     = 20
	defaultGateTimeoutSecs    = 4
	defaultAPITimeoutSecs     = 30
	defaultFetchTimeoutSecs   = 10
	defaultDiscoveryRPS       = 3
)

// ScanSettings consolidates the assessment pipeline knobs.
type ScanSettings struct {
	APIBaseURL     string
	APITimeout     time.Duration
	PollInterval   time.Duration
	BackoffFloor   time.Duration
	BackoffCeiling time.Duration
	MaxPollTime    time.Duration
	GateTimeout    time.Duration
	CacheDir       string
	NoCache        bool
}

func loadScanSettings() ScanSettings {
	viper.SetDefault("api_base_url", "")
	viper.SetDefault("api_timeout_secs", defaultAPITimeoutSecs)
	viper.SetDefault("poll_interval_secs", defaultPollIntervalSecs)
	viper.SetDefault("backoff_floor_secs", defaultBackoffFloorSecs)
	viper.SetDefault("backoff_ceiling_secs", defaultBackoffCeilingSecs)
	viper.SetDefault("max_poll_minutes", defaultMaxPollMinutes)
	viper.SetDefault("gate_timeout_secs", defaultGateTimeoutSecs)
	viper.SetDefault("cache_dir", "")

	return ScanSettings{
		APIBaseURL:     viper.GetString("api_base_url"),
		APITimeout:     time.Duration(viper.GetInt("api_timeout_secs")) * time.Second,
		PollInterval:   time.Duration(viper.GetInt("poll_interval_secs")) * time.Second,
		BackoffFloor:   time.Duration(viper.GetInt("backoff_floor_secs")) * time.Second,
		BackoffCeiling: time.Duration(viper.GetInt("backoff_ceiling_secs")) * time.Second,
		MaxPollTime:    time.Duration(viper.GetInt("max_poll_minutes")) * time.Minute,
		GateTimeout:    time.Duration(viper.GetInt("gate_timeout_secs")) * time.Second,
		CacheDir:       viper.GetString("cache_dir"),
	}
}

func (s ScanSettings) pollerConfig() assess.Config {
	return assess.Config{
		PollInterval:   s.PollInterval,
		BackoffFloor:   s.BackoffFloor,
		BackoffCeiling: s.BackoffCeiling,
		MaxPollTime:    s.MaxPollTime,
	}
}

func (s ScanSettings) prober() *gate.Prober {
	return &gate.Prober{Timeout: s.GateTimeout, Port: gate.DefaultPort}
}

// DiscoverSettings consolidates the harvester knobs.
type DiscoverSettings struct {
	FetchTimeout time.Duration
	RPS          int
}

func loadDiscoverSettings() DiscoverSettings {
	viper.SetDefault("fetch_timeout_secs", defaultFetchTimeoutSecs)
	viper.SetDefault("discovery_rps", defaultDiscoveryRPS)
	return DiscoverSettings{
		FetchTimeout: time.Duration(viper.GetInt("fetch_timeout_secs")) * time.Second,
		RPS:          viper.GetInt("discovery_rps"),
	}
}
