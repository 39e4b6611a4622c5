package codegen

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/secretspec/secretspec/pkg/engine"
)

// Field is one secret as it appears in generated code.
type Field struct {
	Name        string
	Identifier  string
	GoName      string
	Description string
	Union       engine.Presence
	Profiles    map[string]engine.ProfileSignature
}

// Mandatory reports whether the field is always set regardless of profile.
func (f Field) Mandatory() bool {
	return f.Union == engine.Mandatory
}

// In reports whether the secret is declared in profile.
func (f Field) In(profile string) bool {
	ps, ok := f.Profiles[profile]
	return ok && !ps.Absent
}

// MandatoryIn reports whether the secret is mandatory in profile.
func (f Field) MandatoryIn(profile string) bool {
	ps, ok := f.Profiles[profile]
	return ok && !ps.Absent && ps.Presence == engine.Mandatory
}

// Profile is one profile as it appears in generated code.
type Profile struct {
	Name   string
	GoName string
}

// Model is the input to every generator.
type Model struct {
	Package  string
	Project  string
	Profiles []Profile
	Fields   []Field
}

// ProfileFields returns the fields declared in profile.
func (m *Model) ProfileFields(profile string) []Field {
	var out []Field
	for _, f := range m.Fields {
		if f.In(profile) {
			out = append(out, f)
		}
	}
	return out
}

// NewModel builds a generator model from computed signatures. Two secrets
// whose names map to the same identifier or Go name are rejected.
func NewModel(pkg, project string, sigs *engine.SignatureSet) (*Model, error) {
	if pkg == "" {
		pkg = "secretspec"
	}
	m := &Model{Package: pkg, Project: project}

	byIdent := make(map[string]string)
	byGoName := make(map[string]string)
	for _, sig := range sigs.Secrets {
		goName := GoName(sig.Identifier)
		if other, ok := byIdent[sig.Identifier]; ok {
			return nil, collision(sig.Name, other, sig.Identifier)
		}
		if other, ok := byGoName[goName]; ok {
			return nil, collision(sig.Name, other, goName)
		}
		byIdent[sig.Identifier] = sig.Name
		byGoName[goName] = sig.Name

		m.Fields = append(m.Fields, Field{
			Name:        sig.Name,
			Identifier:  sig.Identifier,
			GoName:      goName,
			Description: sig.Description,
			Union:       sig.Union,
			Profiles:    sig.Profiles,
		})
	}

	profiles := append([]string(nil), sigs.Profiles...)
	sort.Strings(profiles)
	seen := make(map[string]string)
	for _, p := range profiles {
		goName := GoName(p)
		if other, ok := seen[goName]; ok {
			return nil, engine.NewValidationError(
				fmt.Sprintf("profiles %s and %s both map to %s", other, p, goName), nil).
				WithCode(engine.ErrCodeIdentifierCollision)
		}
		seen[goName] = p
		m.Profiles = append(m.Profiles, Profile{Name: p, GoName: goName})
	}

	return m, nil
}

func collision(name, other, ident string) error {
	return engine.NewValidationError(
		fmt.Sprintf("secrets %s and %s both map to identifier %s", other, name, ident), nil).
		WithCode(engine.ErrCodeIdentifierCollision).
		WithDetail("secrets", []string{other, name})
}

var initialisms = map[string]string{
	"api": "API", "db": "DB", "dsn": "DSN", "http": "HTTP", "id": "ID",
	"json": "JSON", "sql": "SQL", "ssh": "SSH", "tls": "TLS", "uri": "URI",
	"url": "URL",
}

// GoName turns an identifier such as database_url into DatabaseURL.
func GoName(ident string) string {
	parts := strings.FieldsFunc(ident, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var b strings.Builder
	for _, p := range parts {
		lower := strings.ToLower(p)
		if up, ok := initialisms[lower]; ok {
			b.WriteString(up)
			continue
		}
		r := []rune(lower)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}

	name := b.String()
	if name == "" || unicode.IsDigit([]rune(name)[0]) {
		name = "X" + name
	}
	return name
}
