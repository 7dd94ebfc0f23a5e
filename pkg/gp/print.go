package gp

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders t using registered names. Primitives given a symbol with
// SetSymbol print as operators, everything else in call form. Stateful
// leaves and folded constants print their value.
func (p *PSet) Format(t *Tree) string {
	var sb strings.Builder
	p.format(&sb, t)
	return sb.String()
}

func (p *PSet) format(sb *strings.Builder, t *Tree) {
	name, registered := p.names[t.factory]
	if len(t.children) == 0 {
		switch {
		case t.state != nil:
			sb.WriteString(formatValue(t.state))
		case registered:
			sb.WriteString(name)
		default:
			sb.WriteString("?")
		}
		return
	}
	if !registered {
		name = "?"
	}
	sym, isOp := p.symbols[name]
	switch {
	case isOp && len(t.children) == 1:
		sb.WriteString("(")
		sb.WriteString(sym)
		p.format(sb, t.children[0])
		sb.WriteString(")")
	case isOp && len(t.children) == 2:
		sb.WriteString("(")
		p.format(sb, t.children[0])
		sb.WriteString(" ")
		sb.WriteString(sym)
		sb.WriteString(" ")
		p.format(sb, t.children[1])
		sb.WriteString(")")
	default:
		sb.WriteString(name)
		sb.WriteString("(")
		for i, c := range t.children {
			if i > 0 {
				sb.WriteString(", ")
			}
			p.format(sb, c)
		}
		sb.WriteString(")")
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}
