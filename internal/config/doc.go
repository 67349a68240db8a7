// Package config handles configuration loading for toolwarden.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${WARDEN_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Configuration Sections
//
// Network selects the registry deployment (datil-dev, datil-test, datil):
//
//	network:
//	  name: "datil-dev"
//
// Database is the local store for capacity credits and owned identities:
//
//	database:
//	  path: "/var/lib/warden/warden.db"
//
// Model configures the language-model endpoint for intent resolution:
//
//	model:
//	  api_key: "${OPENAI_API_KEY}"
//	  base_url: ""              # empty for the default endpoint
//	  name: "gpt-4o-mini"
//
// Credits sets default capacity-credit mint terms:
//
//	credits:
//	  requests_per_kilosecond: 10
//	  days_until_expiration: 1
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${WARDEN_JWT_SECRET}"
//	  token_ttl: "24h"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
