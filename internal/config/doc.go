// Package config provides configuration structures and utilities for ingestcas.
// It defines the runtime options shared by every command and the sources
// file that lists the files, pages and APIs a run ingests.
//
// Values are layered: defaults from NewConfig, then the sources file, then
// environment variables (optionally read from a .env file), then CLI flags.
package config
