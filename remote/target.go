package remote

import (
	"fmt"
	"regexp"
	"strconv"
)

const defaultPort = 22

// Target identifies the remote execution environment parsed from a host
// specifier of the form user@host[:port][/runDir].
type Target struct {
	User   string
	Host   string
	Port   int
	RunDir string
}

var targetRe = regexp.MustCompile(`^([A-Za-z0-9\-\._]+)@([A-Za-z0-9\-\.]+):?([0-9]+)?(.*)$`)

// ParseTarget parses spec, applying defaultRunDir when the specifier
// carries no run directory and port 22 when it carries no port.
func ParseTarget(spec, defaultRunDir string) (Target, error) {
	m := targetRe.FindStringSubmatch(spec)
	if m == nil {
		return Target{}, fmt.Errorf("cannot parse host specifier %q; expected user@host[:port][/runDir]", spec)
	}
	t := Target{User: m[1], Host: m[2], Port: defaultPort, RunDir: defaultRunDir}
	if m[3] != "" {
		p, err := strconv.Atoi(m[3])
		if err != nil {
			return Target{}, fmt.Errorf("cannot parse port in %q: %w", spec, err)
		}
		t.Port = p
	}
	if m[4] != "" {
		t.RunDir = m[4]
	}
	return t, nil
}

// Addr returns the host:port dial address.
func (t Target) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

func (t Target) String() string {
	return fmt.Sprintf("%s@%s:%d/%s", t.User, t.Host, t.Port, t.RunDir)
}
