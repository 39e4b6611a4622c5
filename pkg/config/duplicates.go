package config

import (
	"strings"

	"github.com/pelletier/go-toml/v2/unstable"
)

// duplicateKey is a key or table that redefines an earlier one.
type duplicateKey struct {
	path   []string
	line   int
	column int
}

// keySeparator joins key parts in lookup maps. Quoted keys may contain dots.
const keySeparator = "\x00"

// keyTracker records what a document has defined so far, following the
// redefinition rules go-toml enforces while decoding.
type keyTracker struct {
	// defined holds every key and table path seen, implicit or not.
	defined map[string]bool

	// values holds keys assigned a value, including inline tables.
	values map[string]bool

	// tables holds tables declared with a [header].
	tables map[string]bool

	current []string
}

// findDuplicateKey returns the first redefinition in data. go-toml rejects
// these without reporting where they occur.
func findDuplicateKey(data []byte) (duplicateKey, bool) {
	var p unstable.Parser
	p.Reset(data)

	kt := newKeyTracker()

	for p.NextExpression() {
		expr := p.Expression()

		var (
			path []string
			last *unstable.Node
			ok   bool
		)
		switch expr.Kind {
		case unstable.Table:
			path, last = keyPath(nil, expr.Key())
			ok = kt.table(path)
		case unstable.ArrayTable:
			path, last = keyPath(nil, expr.Key())
			ok = kt.arrayTable(path)
		case unstable.KeyValue:
			path, last = keyPath(kt.current, expr.Key())
			ok = kt.keyValue(path)
			if ok {
				if innerPath, innerLast, found := inlineDuplicate(expr.Value(), path); found {
					path, last, ok = innerPath, innerLast, false
				}
			}
		default:
			continue
		}

		if !ok {
			shape := p.Shape(last.Raw)
			return duplicateKey{
				path:   path,
				line:   shape.Start.Line,
				column: shape.Start.Column,
			}, true
		}
	}

	return duplicateKey{}, false
}

func newKeyTracker() *keyTracker {
	return &keyTracker{
		defined: make(map[string]bool),
		values:  make(map[string]bool),
		tables:  make(map[string]bool),
	}
}

// inlineDuplicate checks the keys of an inline table value. Each inline
// table is self-contained.
func inlineDuplicate(value *unstable.Node, base []string) ([]string, *unstable.Node, bool) {
	if value.Kind != unstable.InlineTable {
		return nil, nil, false
	}

	inner := newKeyTracker()
	it := value.Children()
	for it.Next() {
		kv := it.Node()
		path, last := keyPath(nil, kv.Key())
		full := append(append([]string(nil), base...), path...)
		if !inner.keyValue(path) {
			return full, last, true
		}
		if dupPath, dupLast, ok := inlineDuplicate(kv.Value(), full); ok {
			return dupPath, dupLast, true
		}
	}
	return nil, nil, false
}

// table handles a [header]. It reports false when the header redefines a
// table or a value.
func (kt *keyTracker) table(path []string) bool {
	for i := 1; i <= len(path); i++ {
		if kt.values[joinKey(path[:i])] {
			return false
		}
	}

	full := joinKey(path)
	if kt.tables[full] {
		return false
	}

	for i := 1; i < len(path); i++ {
		kt.defined[joinKey(path[:i])] = true
	}
	kt.tables[full] = true
	kt.defined[full] = true
	kt.current = path
	return true
}

// arrayTable handles a [[header]]. Each header starts a fresh element, so
// keys recorded under the previous element are forgotten.
func (kt *keyTracker) arrayTable(path []string) bool {
	for i := 1; i <= len(path); i++ {
		if kt.values[joinKey(path[:i])] {
			return false
		}
	}

	full := joinKey(path)
	if kt.tables[full] {
		return false
	}

	prefix := full + keySeparator
	for _, m := range []map[string]bool{kt.defined, kt.values, kt.tables} {
		for k := range m {
			if strings.HasPrefix(k, prefix) {
				delete(m, k)
			}
		}
	}

	for i := 1; i <= len(path); i++ {
		kt.defined[joinKey(path[:i])] = true
	}
	kt.current = path
	return true
}

// keyValue handles key = value. path includes the enclosing table.
func (kt *keyTracker) keyValue(path []string) bool {
	for i := len(kt.current) + 1; i < len(path); i++ {
		k := joinKey(path[:i])
		if kt.values[k] || kt.tables[k] {
			return false
		}
		kt.defined[k] = true
	}

	full := joinKey(path)
	if kt.defined[full] {
		return false
	}
	kt.defined[full] = true
	kt.values[full] = true
	return true
}

// keyPath appends the parts of a key to base and returns the node of the
// last part.
func keyPath(base []string, it unstable.Iterator) ([]string, *unstable.Node) {
	path := append([]string(nil), base...)
	var last *unstable.Node
	for it.Next() {
		last = it.Node()
		path = append(path, string(last.Data))
	}
	return path, last
}

func joinKey(path []string) string {
	return strings.Join(path, keySeparator)
}
