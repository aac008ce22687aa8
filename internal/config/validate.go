package config

import (
	"errors"
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is the flag name.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// Validate performs static checks and returns every issue found. It does
// not touch the filesystem or the network.
func (c *Config) Validate() []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.SongData) == "" {
		add(SeverityError, "song_data", "must not be empty")
	}
	if strings.TrimSpace(c.LogData) == "" {
		add(SeverityError, "log_data", "must not be empty")
	}

	switch c.DBDriver {
	case "postgres":
	case "sqlite", "mssql":
		if strings.TrimSpace(c.DSN) == "" {
			add(SeverityError, "dsn", "is required for db_driver %q", c.DBDriver)
		}
	default:
		add(SeverityError, "db_driver", "unsupported driver %q (want postgres, sqlite or mssql)", c.DBDriver)
	}

	switch c.SongPlayIDs {
	case "hash":
	case "sequence":
		add(SeverityWarning, "songplay_ids", "sequence ids differ between runs; reruns rely on the (start_time, user_id, session_id) constraint")
	default:
		add(SeverityError, "songplay_ids", "unknown generator %q (want hash or sequence)", c.SongPlayIDs)
	}

	if !oneOf(c.LogFormat, "console", "json") {
		add(SeverityError, "log_format", "unknown format %q (want console or json)", c.LogFormat)
	}

	switch c.MetricsBackend {
	case "none":
	case "pushgateway":
		if strings.TrimSpace(c.PushgatewayURL) == "" {
			add(SeverityError, "pushgateway_url", "is required for metrics_backend=pushgateway")
		}
	case "datadog":
		if strings.TrimSpace(c.DatadogAddr) == "" {
			add(SeverityError, "datadog_addr", "is required for metrics_backend=datadog")
		}
	default:
		add(SeverityError, "metrics_backend", "unknown backend %q (want none, pushgateway or datadog)", c.MetricsBackend)
	}
	if c.MetricsBackend != "none" && strings.TrimSpace(c.Job) == "" {
		add(SeverityError, "job", "must not be empty; it labels the pushed metrics")
	}

	return issues
}

// Err joins the error-severity issues, or returns nil when there are none.
func Err(issues []Issue) error {
	var errs []error
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	return errors.Join(errs...)
}
