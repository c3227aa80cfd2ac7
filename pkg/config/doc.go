// Package config loads lifepool configuration from YAML.
//
// A file only needs the values it changes; everything else keeps the value
// from Default. ${VAR} references are replaced with environment variables
// before parsing.
//
//	pools:
//	  default_capacity: 10
//	  grace_delay: 10s
//	  capacities:
//	    enemy: 3
//	cache:
//	  capacity: 32
//	scheduler:
//	  mode: loop
//	  tick_interval: 100ms
//	  sweep_enabled: true
//	  sweep_interval: 20s
//	logging:
//	  level: ${LIFEPOOL_LOG_LEVEL}
//
// Out-of-range capacities and durations are not errors: Normalize replaces
// them with defaults and logs a warning. Validate only rejects values that
// have no sensible fallback, such as an unknown scheduler mode.
package config
