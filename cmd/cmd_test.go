// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcodagnone/cerca/discovery"
	"github.com/jcodagnone/cerca/spatial"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		globalOptions = options{}
	})

	err := rootCmd.Execute()

	return out.String(), err
}

func TestCategoryResolveCommand(t *testing.T) {
	out, err := runCommand(t, "category", "resolve", "chemist")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "healthcare.pharmacy\n"), out)

	_, err = runCommand(t, "category", "resolve", "xyzzy")
	assert.Error(t, err)
}

func TestCategoryListCommand(t *testing.T) {
	out, err := runCommand(t, "category", "list", "healthcare")
	require.NoError(t, err)

	assert.Contains(t, out, "healthcare.pharmacy (pharmacy, chemist, drugstore, pharmacist)\n")

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		assert.True(t, strings.HasPrefix(line, "healthcare."), line)
	}
}

func TestSearchRequiresKey(t *testing.T) {
	t.Setenv("GEOAPIFY_API_KEY", "")

	_, err := runCommand(t, "search", "pharmacy", "--lat", "6.5", "--lon", "3.3")
	assert.ErrorContains(t, err, "GEOAPIFY_API_KEY")
}

func TestParseLatLon(t *testing.T) {
	p, err := parseLatLon("6.6018, 3.3515")
	require.NoError(t, err)
	assert.Equal(t, spatial.Point{Lat: 6.6018, Lng: 3.3515}, p)

	for _, s := range []string{"6.6", "north,3.3", "6.6,east", "91,3"} {
		_, err := parseLatLon(s)
		assert.Error(t, err, s)
	}
}

func TestPrintBusinesses(t *testing.T) {
	var buf bytes.Buffer

	rating := 9.0
	printBusinesses(&buf, []*discovery.Business{
		{Name: "HealthPlus", Address: "Allen Ave", Distance: 120, Rating: &rating},
		{Name: strings.Repeat("Very Long Name ", 5), Address: "Opebi", Distance: 2430},
	})

	out := buf.String()
	assert.Contains(t, out, "HealthPlus")
	assert.Contains(t, out, "120 m")
	assert.Contains(t, out, "2.4 km")
	assert.Contains(t, out, "4.5")
	assert.Contains(t, out, "…")

	buf.Reset()
	printBusinesses(&buf, nil)
	assert.Equal(t, "No businesses found.\n", buf.String())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	newLogger(&buf, "warn", "").Info("hidden")
	assert.Empty(t, buf.String())

	newLogger(&buf, "debug", "").Debug("shown", "k", "v")
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} level=DEBUG msg=shown k=v\n$`, buf.String())

	buf.Reset()
	newLogger(&buf, "info", "json").Info("structured")
	assert.Contains(t, buf.String(), `"msg":"structured"`)

	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}
