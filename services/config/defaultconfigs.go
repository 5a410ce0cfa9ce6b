package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development.
// Key: device ID passed to Load / Start.
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgStation = `{
  "station": {
      "warmup_s": 30,
      "samples": 10,
      "max_attempts": 3,
      "retry_backoff_ms": 100,
      "call_timeout_ms": 5000
  },
  "power": {
      "interval_s": 180,
      "backoff_min_s": 15,
      "backoff_max_s": 300,
      "backoff_max_count": 12
  },
  "display": {
      "width": 296,
      "height": 128,
      "full_every": 8,
      "low_batt_mv": 3500
  },
  "telemetry": {
      "enabled": true
  }
}`

// cfgSim shortens every delay so a host run is watchable.
const cfgSim = `{
  "station": {
      "warmup_s": 1,
      "samples": 2,
      "max_attempts": 3,
      "retry_backoff_ms": 10,
      "call_timeout_ms": 1000
  },
  "power": {
      "interval_s": 3,
      "backoff_min_s": 1,
      "backoff_max_s": 8,
      "backoff_max_count": 5
  },
  "display": {
      "width": 296,
      "height": 128,
      "full_every": 4,
      "low_batt_mv": 3500
  },
  "telemetry": {
      "enabled": true
  }
}`

var embeddedConfigs = map[string][]byte{
	"station": []byte(cfgStation),
	"sim":     []byte(cfgSim),
}
