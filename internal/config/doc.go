// Package config loads the application configuration.
//
// # Configuration Sources
//
// Configuration is built from the following sources, later ones winning:
//
//  1. Default values (Default)
//  2. A YAML file (husholdning.yaml or configs/husholdning.yaml)
//  3. Environment variables prefixed HUS_
//
// # Environment Variables
//
// Variables follow the struct nesting:
//
//	HUS_SERVER_PORT=8080
//	HUS_LOGGING_LEVEL=debug
//	HUS_WORKFLOW_MAX_CONCURRENCY=8
//	HUS_WORKFLOW_ENABLE_DIAGRAMS=true
//	HUS_CONNECTORS_BROWSER=true
//	HUS_CONNECTORS_SSB_RATE_URL=https://data.ssb.no/api/v0/no/table/10748
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
