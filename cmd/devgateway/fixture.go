package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fixture is the canned gateway state served by the dev server.
type Fixture struct {
	Version string          `yaml:"version"`
	Proxy   string          `yaml:"proxy"`
	Users   map[string]User `yaml:"users"`
	// Unknown applies to every user not listed in Users.
	Unknown User   `yaml:"unknown"`
	Adblock string `yaml:"adblock"`
}

// User is one /user answer.
type User struct {
	Authorized bool   `yaml:"authorized"`
	Label      string `yaml:"label"`
	Tier       string `yaml:"tier"`
}

func defaultFixture() Fixture {
	return Fixture{
		Version: "1.0.0a",
		Proxy:   "",
		Users:   map[string]User{},
		Unknown: User{Authorized: true, Label: "dev", Tier: "beta"},
		Adblock: "||doubleclick.net^\n||ads.example^\n",
	}
}

func loadFixture(path string) (Fixture, error) {
	fx := defaultFixture()
	if strings.TrimSpace(path) == "" {
		return fx, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fx, fmt.Errorf("read fixture: %w", err)
	}
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return fx, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if fx.Users == nil {
		fx.Users = map[string]User{}
	}
	return fx, nil
}

func (f Fixture) lookup(username string) User {
	if u, ok := f.Users[username]; ok {
		return u
	}
	return f.Unknown
}
