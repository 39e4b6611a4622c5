package backend

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/secretspec/secretspec/pkg/engine"
)

// Spec is a parsed backend URI of the form
// scheme://[userinfo@][host[:port]][/path][?key=value&...].
type Spec struct {
	// Raw is the URI as given, before shorthand expansion.
	Raw string

	Scheme string
	User   string
	Host   string
	Path   string
	Query  url.Values
}

// String renders s in canonical URI form.
func (s Spec) String() string {
	var b strings.Builder
	b.WriteString(s.Scheme)
	b.WriteString("://")
	if s.User != "" {
		b.WriteString(s.User)
		b.WriteString("@")
	}
	b.WriteString(s.Host)
	if s.Host != "" && s.Path != "" && !strings.HasPrefix(s.Path, "/") {
		b.WriteString("/")
	}
	b.WriteString(s.Path)
	if len(s.Query) > 0 {
		b.WriteString("?")
		b.WriteString(s.Query.Encode())
	}
	return b.String()
}

// Param returns a query parameter or fallback when it is absent.
func (s Spec) Param(name, fallback string) string {
	if v := s.Query.Get(name); v != "" {
		return v
	}
	return fallback
}

// expandShorthand turns "keyring" into "keyring://" and "dotenv:.env" into
// "dotenv://.env".
func expandShorthand(raw string) string {
	i := strings.Index(raw, ":")
	if i < 0 {
		return raw + "://"
	}
	if !strings.HasPrefix(raw[i:], "://") {
		return raw[:i] + "://" + raw[i+1:]
	}
	return raw
}

func invalidURI(raw, message string, err error) *engine.EngineError {
	return engine.NewResolutionError(message, err).
		WithCode(engine.ErrCodeInvalidBackendURI).
		WithDetail("uri", raw)
}

// parseSpec splits raw into its components without consulting a registry.
func parseSpec(raw string, pathOnly func(scheme string) bool) (Spec, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Spec{}, invalidURI(raw, "empty backend URI", nil)
	}
	if strings.HasPrefix(trimmed, ":") {
		return Spec{}, invalidURI(raw, "backend URI has no scheme", nil)
	}
	if strings.HasPrefix(strings.ToLower(trimmed), "1password") {
		return Spec{}, invalidURI(raw, "unknown backend scheme \"1password\" (use onepassword://)", nil)
	}

	u, err := url.Parse(expandShorthand(trimmed))
	if err != nil {
		return Spec{}, invalidURI(raw, fmt.Sprintf("malformed backend URI %q", raw), err)
	}
	if u.Scheme == "" {
		return Spec{}, invalidURI(raw, "backend URI has no scheme", nil)
	}

	spec := Spec{
		Raw:    raw,
		Scheme: strings.ToLower(u.Scheme),
		Host:   u.Host,
		Path:   u.Path,
		Query:  u.Query(),
	}
	if u.User != nil {
		spec.User = u.User.String()
	}

	if pathOnly != nil && pathOnly(spec.Scheme) && spec.Host != "" {
		// dotenv://.env.local addresses the relative file .env.local.
		spec.Path = path.Join(spec.Host, spec.Path)
		spec.Host = ""
	}

	return spec, nil
}
