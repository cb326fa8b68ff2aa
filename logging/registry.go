package logging

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// LoggerPatternConfig is an instance of a level specification for a given logger.
type LoggerPatternConfig struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Level   string `json:"level" yaml:"level"`
}

const (
	// e.g. "foo".
	validLoggerSectionName = `[a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*`
	// e.g. "foo" or "*".
	validLoggerSectionNameWithWildcard = `(` + validLoggerSectionName + `|\*)`
	// e.g. "foo.*.foo".
	validLoggerSectionsWithWildcard = validLoggerSectionNameWithWildcard + `(\.` + validLoggerSectionNameWithWildcard + `)*`
	// Restricts above regex to be the entire pattern.
	validLoggerName = `^` + validLoggerSectionsWithWildcard + `$`
)

var loggerPatternRegexp = regexp.MustCompile(validLoggerName)

// ValidatePattern reports whether `pattern` is a dotted logger name where any section may be the
// `*` wildcard.
func ValidatePattern(pattern string) bool {
	return loggerPatternRegexp.MatchString(pattern)
}

func buildRegexFromPattern(pattern string) string {
	var matcher strings.Builder
	matcher.WriteRune('^')
	for _, ch := range pattern {
		switch ch {
		case '*':
			matcher.WriteString(`.*`)
		case '.':
			matcher.WriteString(`\.`)
		default:
			matcher.WriteRune(ch)
		}
	}
	matcher.WriteRune('$')
	return matcher.String()
}

type registry struct {
	mu        sync.RWMutex
	loggers   map[string]Logger
	logConfig []LoggerPatternConfig
}

var globalRegistry = newRegistry()

func newRegistry() *registry {
	return &registry{
		loggers: make(map[string]Logger),
	}
}

// register records `logger` under `name`, replacing any previous holder of the name, and applies
// the last matching pattern level to it.
func (lr *registry) register(name string, logger Logger) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.loggers[name] = logger
	for _, lpc := range lr.logConfig {
		r, err := regexp.Compile(buildRegexFromPattern(lpc.Pattern))
		if err != nil || !r.MatchString(name) {
			continue
		}
		if level, err := LevelFromString(lpc.Level); err == nil {
			logger.SetLevel(level)
		}
	}
}

func (lr *registry) loggerNamed(name string) (Logger, bool) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	logger, ok := lr.loggers[name]
	return logger, ok
}

func (lr *registry) updateConfig(logConfig []LoggerPatternConfig) error {
	for _, lpc := range logConfig {
		if !ValidatePattern(lpc.Pattern) {
			return fmt.Errorf("invalid logger pattern %q", lpc.Pattern)
		}
		if _, err := LevelFromString(lpc.Level); err != nil {
			return err
		}
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.logConfig = logConfig

	for name, logger := range lr.loggers {
		level := INFO
		for _, lpc := range logConfig {
			r, err := regexp.Compile(buildRegexFromPattern(lpc.Pattern))
			if err != nil {
				return err
			}
			if r.MatchString(name) {
				// Validated above.
				level, _ = LevelFromString(lpc.Level)
			}
		}
		logger.SetLevel(level)
	}
	return nil
}

// UpdateLoggerPatterns replaces the active level patterns and re-levels every registered logger.
// Later patterns win over earlier ones; unmatched loggers return to INFO.
func UpdateLoggerPatterns(logConfig []LoggerPatternConfig) error {
	return globalRegistry.updateConfig(logConfig)
}

// LoggerNamed returns the registered logger with the given name, if any.
func LoggerNamed(name string) (Logger, bool) {
	return globalRegistry.loggerNamed(name)
}
