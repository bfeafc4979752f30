// Package config loads the service configuration.
//
// # Configuration Sources
//
// Values are resolved in this order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values from the struct tags (lowest priority)
//
// # Environment Variables
//
// All variables use the BIZPULSE_ prefix followed by the section name:
//
//	BIZPULSE_SERVER_PORT=8080
//	BIZPULSE_LOGGING_LEVEL=debug
//	BIZPULSE_PROCESSING_BANKING_CHUNK_SIZE=250
//	BIZPULSE_PROCESSING_STREAM_DELAY=100ms
//	BIZPULSE_TELEMETRY_ENABLE_TRACING=true
//
// # Configuration File
//
// BIZPULSE_CONFIG_FILE points at a YAML file. Without it, bizpulse.yaml and
// configs/bizpulse.yaml are tried relative to the working directory:
//
//	server:
//	  port: 9000
//	processing:
//	  workers: 4
//	  stream_delay: 25ms
//
// A file value only applies where the environment left the default in place.
package config
