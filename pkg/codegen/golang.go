package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"
	"text/template"
)

var goTemplate = template.Must(template.New("go").Funcs(template.FuncMap{
	"comment": func(s string) string {
		return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n// ")
	},
}).Parse(`// Code generated by secretspec. DO NOT EDIT.

// Package {{.Package}} exposes the secrets of project {{.Project}}.
package {{.Package}}

import (
	"fmt"
	"os"
	"strings"
)

// Profile names a secretspec profile.
type Profile string

const (
{{- range .Profiles}}
	Profile{{.GoName}} Profile = {{printf "%q" .Name}}
{{- end}}
)

// Secrets holds every secret with the type valid in all profiles.
type Secrets struct {
{{- range .Fields}}
{{- if .Description}}
	// {{comment .Description}}
{{- end}}
	{{.GoName}} {{if .Mandatory}}string{{else}}*string{{end}}
{{- end}}
}

// Load reads Secrets from the environment, as populated by "secretspec run".
func Load() (*Secrets, error) {
	var missing []string
	s := &Secrets{}
{{- range .Fields}}
{{- if .Mandatory}}
	s.{{.GoName}} = require({{printf "%q" .Name}}, &missing)
{{- else}}
	s.{{.GoName}} = optional({{printf "%q" .Name}})
{{- end}}
{{- end}}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required secrets: %s", strings.Join(missing, ", "))
	}
	return s, nil
}
{{range $p := .Profiles}}
// Secrets{{$p.GoName}} holds the secrets of profile {{printf "%q" $p.Name}}.
type Secrets{{$p.GoName}} struct {
{{- range $.ProfileFields $p.Name}}
	{{.GoName}} {{if .MandatoryIn $p.Name}}string{{else}}*string{{end}}
{{- end}}
}

// Load{{$p.GoName}} reads Secrets{{$p.GoName}} from the environment.
func Load{{$p.GoName}}() (*Secrets{{$p.GoName}}, error) {
	var missing []string
	s := &Secrets{{$p.GoName}}{}
{{- range $.ProfileFields $p.Name}}
{{- if .MandatoryIn $p.Name}}
	s.{{.GoName}} = require({{printf "%q" .Name}}, &missing)
{{- else}}
	s.{{.GoName}} = optional({{printf "%q" .Name}})
{{- end}}
{{- end}}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required secrets for profile %s: %s", {{printf "%q" $p.Name}}, strings.Join(missing, ", "))
	}
	return s, nil
}
{{end}}
func require(name string, missing *[]string) string {
	v, ok := os.LookupEnv(name)
	if !ok {
		*missing = append(*missing, name)
	}
	return v
}

func optional(name string) *string {
	if v, ok := os.LookupEnv(name); ok {
		return &v
	}
	return nil
}
`))

// GenerateGo renders the model as a gofmt-formatted Go source file.
func GenerateGo(m *Model) ([]byte, error) {
	var buf bytes.Buffer
	if err := goTemplate.Execute(&buf, m); err != nil {
		return nil, fmt.Errorf("failed to render Go source: %w", err)
	}
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("generated Go source does not format: %w", err)
	}
	return out, nil
}
