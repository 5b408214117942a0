// Package config loads service configuration with Viper.
//
// Values come from, in increasing precedence: registered defaults, a
// config.yml file, a .env file and the process environment. Nested keys are
// addressable from the environment by upper-casing and replacing dots with
// underscores (auth.jwt.access_ttl -> AUTH_JWT_ACCESS_TTL). Short legacy
// names such as JWT_SECRET are mapped with WithEnvAliases.
package config
