//go:build mage

// Package main provides build targets for the lost and found backend.
//
// Usage:
//
//	mage build     Compile the server binary to bin/
//	mage wire      Regenerate cmd/server/wire_gen.go
//	mage test      Run all tests
//	mage race      Run all tests with the race detector
//	mage lint      Run golangci-lint
//	mage migrate   Apply the schema to the configured database
//	mage clean     Remove build artifacts
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "lostfound"
	binaryDir  = "bin"
	cmdDir     = "./cmd/server"
)

// Default target when mage runs without arguments.
var Default = Build

// Build compiles the server binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Wire regenerates the dependency injector.
func Wire() error {
	return sh.RunV("go", "run", "-mod=mod", "github.com/google/wire/cmd/wire", cmdDir)
}

// Test runs every package's tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Race runs the tests with the race detector; the hub and cron job are concurrent.
func Race() error {
	return sh.RunWithV(map[string]string{"CGO_ENABLED": "1"}, "go", "test", "-race", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Migrate builds the binary and applies the schema.
func Migrate() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binaryDir, binaryName), "migrate")
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binaryDir)
}
