package app

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// databaseTarget is a credential-free description of a DSN, used for startup logs.
type databaseTarget struct {
	Type        string
	Host        string
	Port        int
	User        string
	Name        string
	SSLMode     string
	Path        string
	PasswordSet bool
}

func (t databaseTarget) String() string {
	if t.Type == "sqlite" {
		return "sqlite " + t.Path
	}
	return fmt.Sprintf("%s %s@%s:%d/%s", t.Type, t.User, t.Host, t.Port, t.Name)
}

func describeDSN(dsn string) (databaseTarget, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return databaseTarget{}, fmt.Errorf("empty dsn")
	}

	lowered := strings.ToLower(trimmed)
	if lowered == ":memory:" {
		return databaseTarget{Type: "sqlite", Path: trimmed}, nil
	}
	if strings.HasPrefix(lowered, "file:") {
		pathPart, _, _ := strings.Cut(trimmed[len("file:"):], "?")
		return databaseTarget{Type: "sqlite", Path: strings.TrimSpace(pathPart)}, nil
	}
	if !strings.Contains(lowered, "://") && (strings.HasSuffix(lowered, ".db") || strings.Contains(lowered, ".db?")) {
		pathPart, _, _ := strings.Cut(trimmed, "?")
		return databaseTarget{Type: "sqlite", Path: pathPart}, nil
	}

	u, errParse := url.Parse(trimmed)
	if errParse != nil {
		return databaseTarget{}, fmt.Errorf("parse dsn: %w", errParse)
	}

	var defaultPort int
	scheme := strings.ToLower(strings.TrimSpace(u.Scheme))
	switch scheme {
	case "postgres", "postgresql":
		scheme = "postgres"
		defaultPort = 5432
	case "mysql":
		defaultPort = 3306
	default:
		return databaseTarget{}, fmt.Errorf("unsupported dsn scheme")
	}

	port := defaultPort
	if rawPort := strings.TrimSpace(u.Port()); rawPort != "" {
		parsedPort, errPort := strconv.Atoi(rawPort)
		if errPort != nil {
			return databaseTarget{}, fmt.Errorf("parse port: %w", errPort)
		}
		port = parsedPort
	}

	username := ""
	passwordSet := false
	if u.User != nil {
		username = strings.TrimSpace(u.User.Username())
		_, passwordSet = u.User.Password()
	}

	target := databaseTarget{
		Type:        scheme,
		Host:        strings.TrimSpace(u.Hostname()),
		Port:        port,
		User:        username,
		Name:        strings.TrimSpace(strings.TrimPrefix(u.Path, "/")),
		PasswordSet: passwordSet,
	}
	if scheme == "postgres" {
		target.SSLMode = strings.TrimSpace(u.Query().Get("sslmode"))
		if target.SSLMode == "" {
			target.SSLMode = "disable"
		}
	}
	return target, nil
}
