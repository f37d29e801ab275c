package main

import (
	"bytes"
	"errors"
	"flag"
	"strings"
	"testing"
)

func TestParseFlagsDefault(t *testing.T) {
	path, err := parseFlags(nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if path != "meadow.yaml" {
		t.Errorf("config = %q, want meadow.yaml", path)
	}
}

func TestParseFlagsConfig(t *testing.T) {
	path, err := parseFlags([]string{"-config", "other.yaml"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if path != "other.yaml" {
		t.Errorf("config = %q, want other.yaml", path)
	}
}

func TestParseFlagsUnknownReturnsError(t *testing.T) {
	var stderr bytes.Buffer
	_, err := parseFlags([]string{"-bogus"}, &stderr)
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(stderr.String(), "bogus") {
		t.Errorf("usage output = %q, want mention of bogus", stderr.String())
	}
}

func TestParseFlagsHelp(t *testing.T) {
	_, err := parseFlags([]string{"-h"}, &bytes.Buffer{})
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("err = %v, want flag.ErrHelp", err)
	}
}
