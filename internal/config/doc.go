// Package config provides configuration structures and utilities for Veko Dome.
// It defines the main configuration options for proxy rotation, relay
// supervision, identity checks, and report generation preferences.
package config
