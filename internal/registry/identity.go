package registry

import (
	"strings"

	"github.com/vango-dev/marketplace/internal/errors"
)

// Identity is the (namespace, name) pair that uniquely identifies a plugin.
type Identity struct {
	Namespace string
	Name      string
}

// String returns the identity as "namespace/name".
func (id Identity) String() string {
	return id.Namespace + "/" + id.Name
}

// Key returns the manifest key for namespace and name.
func Key(namespace, name string) string {
	return Identity{Namespace: namespace, Name: name}.String()
}

// ParseIdentity parses "namespace/name".
func ParseIdentity(s string) (Identity, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Identity{}, errors.New(errors.CodeInvalidRef).
			WithDetailf("Invalid plugin reference %q. Use format: namespace/name", s)
	}
	return Identity{Namespace: parts[0], Name: parts[1]}, nil
}

// Ref is a plugin reference as typed on the command line:
// "namespace/name" with an optional "@version".
type Ref struct {
	Identity
	Version string
}

// String returns the reference in "namespace/name[@version]" form.
func (r Ref) String() string {
	if r.Version == "" {
		return r.Identity.String()
	}
	return r.Identity.String() + "@" + r.Version
}

// ParseRef parses "namespace/name[@version]".
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	var version string
	if at := strings.LastIndex(s, "@"); at >= 0 {
		version = s[at+1:]
		s = s[:at]
		if version == "" {
			return Ref{}, errors.New(errors.CodeInvalidRef).
				WithDetailf("Empty version in %q", s+"@")
		}
	}
	id, err := ParseIdentity(s)
	if err != nil {
		return Ref{}, err
	}
	return Ref{Identity: id, Version: version}, nil
}
