// Package config provides configuration loading, merging, and path
// management for the agent core.
//
// Configuration is YAML (quarry.yaml) merged from multiple sources in
// priority order:
//
//  1. built-in defaults
//  2. global config (~/.config/quarry/quarry.yaml, XDG compliant)
//  3. project config (quarry.yaml or .quarry/quarry.yaml)
//  4. QUARRY_CONFIG file override
//  5. QUARRY_* environment variables
//
// A project-level .env file is loaded into the environment before any
// config file is read, so dotenv values are visible both to {env:VAR}
// interpolation inside config files and to the QUARRY_* overrides.
//
// Path management follows the XDG Base Directory Specification through
// the Paths type (Data, Config, Cache, State), adapted to APPDATA on
// Windows.
package config
