//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Serve builds and starts the HTTP API.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "serve")
}

// Extract builds the CLI and extracts one restaurant's menu as YAML.
// Usage: mage extract "Udupi Cafe" "Bangalore"
func Extract(name, location string) error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "extract", name, "--location", location, "--format", "yaml")
}

// Menus lists the menus held in the durable tier.
func Menus() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "menus", "list")
}

// Purge removes expired menus from the durable tier.
func Purge() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "menus", "purge")
}
