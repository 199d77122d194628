//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target to run when none is specified
var Default = Build

var ldflags = "-s -w -X main.version=" + version()

func version() string {
	if v := os.Getenv("SQLPORT_VERSION"); v != "" {
		return v
	}
	if v, err := sh.Output("git", "describe", "--tags", "--always", "--dirty"); err == nil && v != "" {
		return v
	}
	return "dev"
}

// Build compiles the sqlport binary into bin/.
func Build() error {
	fmt.Println("Building...")
	return sh.Run("go", "build", "-ldflags", ldflags, "-o", "bin/sqlport", "./cmd/sqlport")
}

// Install builds and installs sqlport into GOPATH/bin.
func Install() error {
	mg.Deps(Check)
	fmt.Println("Installing...")
	return sh.Run("go", "install", "-ldflags", ldflags, "./cmd/sqlport")
}

// Test runs the unit tests with the race detector.
func Test() error {
	fmt.Println("Running tests...")
	return sh.RunV("go", "test", "-race", "-count=1", "./...")
}

// Cover writes a coverage profile to coverage.out.
func Cover() error {
	fmt.Println("Running tests with coverage...")
	if err := sh.RunV("go", "test", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func=coverage.out")
}

// Check runs formatting and vet.
func Check() error {
	mg.Deps(Fmt, Vet)
	return nil
}

// Fmt runs go fmt ./...
func Fmt() error {
	fmt.Println("Running go fmt...")
	return sh.Run("go", "fmt", "./...")
}

// Vet runs go vet ./...
func Vet() error {
	fmt.Println("Running go vet...")
	return sh.Run("go", "vet", "./...")
}

// Tidy runs go mod tidy.
func Tidy() error {
	return sh.Run("go", "mod", "tidy")
}

// Clean removes build and coverage output.
func Clean() error {
	fmt.Println("Cleaning...")
	for _, p := range []string{"bin", "coverage.out"} {
		if err := os.RemoveAll(p); err != nil {
			return err
		}
	}
	return nil
}
