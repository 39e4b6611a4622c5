package codegen

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// DefaultScriptTimeout bounds a generator script.
const DefaultScriptTimeout = 10 * time.Second

// ScriptEvaluator runs Starlark generator scripts. Scripts cannot touch the
// filesystem or network; they receive the model and return file contents.
type ScriptEvaluator struct {
	timeout time.Duration
}

// NewScriptEvaluator creates an evaluator. A zero timeout uses
// DefaultScriptTimeout.
func NewScriptEvaluator(timeout time.Duration) *ScriptEvaluator {
	if timeout == 0 {
		timeout = DefaultScriptTimeout
	}
	return &ScriptEvaluator{timeout: timeout}
}

// Generate runs script with the model bound to the globals project, profiles
// and secrets. The script sets either output (a string, returned under
// defaultName) or files (a dict of name to content).
func (se *ScriptEvaluator) Generate(ctx context.Context, script string, m *Model, defaultName string) (map[string][]byte, error) {
	globals, err := se.exec(ctx, script, m)
	if err != nil {
		return nil, err
	}

	if v, ok := globals["files"]; ok {
		dict, ok := v.(*starlark.Dict)
		if !ok {
			return nil, fmt.Errorf("files must be a dict, got %s", v.Type())
		}
		out := make(map[string][]byte, dict.Len())
		for _, item := range dict.Items() {
			name, ok := starlark.AsString(item[0])
			if !ok {
				return nil, fmt.Errorf("files keys must be strings, got %s", item[0].Type())
			}
			content, ok := starlark.AsString(item[1])
			if !ok {
				return nil, fmt.Errorf("files[%q] must be a string, got %s", name, item[1].Type())
			}
			out[name] = []byte(content)
		}
		return out, nil
	}

	if v, ok := globals["output"]; ok {
		content, ok := starlark.AsString(v)
		if !ok {
			return nil, fmt.Errorf("output must be a string, got %s", v.Type())
		}
		return map[string][]byte{defaultName: []byte(content)}, nil
	}

	return nil, fmt.Errorf("script set neither output nor files")
}

// exec runs the script on its own goroutine and cancels it via the thread
// when ctx or the timeout expires.
func (se *ScriptEvaluator) exec(ctx context.Context, script string, m *Model) (starlark.StringDict, error) {
	evalCtx, cancel := context.WithTimeout(ctx, se.timeout)
	defer cancel()

	thread := &starlark.Thread{
		Name: "secretspec-generate",
		Print: func(_ *starlark.Thread, msg string) {
			// Scripts produce output only through globals.
		},
	}

	predeclared := starlark.StringDict{
		"struct":   starlark.NewBuiltin("struct", starlarkstruct.Make),
		"project":  starlark.String(m.Project),
		"package":  starlark.String(m.Package),
		"profiles": profilesValue(m),
		"secrets":  secretsValue(m),
	}

	type result struct {
		globals starlark.StringDict
		err     error
	}
	done := make(chan result, 1)
	go func() {
		g, err := starlark.ExecFile(thread, "generate.star", script, predeclared)
		done <- result{g, err}
	}()

	select {
	case <-evalCtx.Done():
		thread.Cancel("timeout")
		<-done
		return nil, fmt.Errorf("generator script timed out after %v", se.timeout)
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("generator script failed: %w", r.err)
		}
		return r.globals, nil
	}
}

func profilesValue(m *Model) *starlark.List {
	list := make([]starlark.Value, 0, len(m.Profiles))
	for _, p := range m.Profiles {
		list = append(list, starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
			"name":    starlark.String(p.Name),
			"go_name": starlark.String(p.GoName),
		}))
	}
	return starlark.NewList(list)
}

func secretsValue(m *Model) *starlark.List {
	list := make([]starlark.Value, 0, len(m.Fields))
	for _, f := range m.Fields {
		names := make([]string, 0, len(f.Profiles))
		for p := range f.Profiles {
			names = append(names, p)
		}
		sort.Strings(names)

		profiles := starlark.NewDict(len(names))
		for _, p := range names {
			ps := f.Profiles[p]
			_ = profiles.SetKey(starlark.String(p), starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
				"presence": starlark.String(ps.Presence),
				"absent":   starlark.Bool(ps.Absent),
			}))
		}

		list = append(list, starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
			"name":        starlark.String(f.Name),
			"identifier":  starlark.String(f.Identifier),
			"go_name":     starlark.String(f.GoName),
			"description": starlark.String(f.Description),
			"union":       starlark.String(f.Union),
			"mandatory":   starlark.Bool(f.Mandatory()),
			"profiles":    profiles,
		}))
	}
	return starlark.NewList(list)
}
