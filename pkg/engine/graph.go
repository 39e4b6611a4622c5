package engine

import (
	"fmt"
	"path"
	"strings"
)

// ToDOT generates a DOT format representation of the extends graph for visualization.
// Edges point from a fragment to the fragments it extends. The output can be
// rendered with Graphviz tools.
func (o *MergeOrder) ToDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph Inheritance {\n")
	sb.WriteString("  rankdir=BT;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	root := o.Root()
	for i, frag := range o.Fragments {
		color := "white"
		if frag == root {
			color = "lightblue"
		} else if len(o.edges[frag.ID]) == 0 {
			color = "lightgray"
		}
		label := fmt.Sprintf("%s\\n%s\\n#%d", frag.Name, shortID(frag.ID), i)
		sb.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\", fillcolor=\"%s\", style=\"filled,rounded\"];\n",
			frag.ID, label, color))
	}
	sb.WriteString("\n")

	for _, frag := range o.Fragments {
		for i, parent := range o.edges[frag.ID] {
			sb.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [label=\"%d\"];\n", frag.ID, parent, i))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// shortID keeps the last two path elements of an identifier.
func shortID(id string) string {
	dir, file := path.Split(strings.ReplaceAll(id, "\\", "/"))
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" {
		return file
	}
	return path.Base(dir) + "/" + file
}

// formatCycle formats a cycle path for error messages.
func formatCycle(cycle []string) string {
	if len(cycle) == 0 {
		return ""
	}
	return strings.Join(cycle, " -> ")
}
