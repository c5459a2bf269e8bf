// Package config reads process settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	EnvLogLevel     = "CFGEO_LOG_LEVEL"
	EnvLogConsole   = "CFGEO_LOG_CONSOLE"
	EnvCRSCacheSize = "CFGEO_CRS_CACHE_SIZE"
	EnvGridMapping  = "CFGEO_GRID_MAPPING"
)

type Config struct {
	LogLevel     string
	LogConsole   bool
	CRSCacheSize int
	GridMapping  string
}

func FromEnv() Config {
	size := getint(EnvCRSCacheSize, 128)
	if size < 0 {
		size = 0
	}
	return Config{
		LogLevel:     getenv(EnvLogLevel, "info"),
		LogConsole:   getbool(EnvLogConsole, false),
		CRSCacheSize: size,
		GridMapping:  getenv(EnvGridMapping, "crs"),
	}
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}
