package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Walk calls fn for every node of the expression tree in preorder.
// Traversal stops early when fn returns false.
func Walk(e Expr, fn func(Expr) bool) bool {
	if e == nil {
		return true
	}
	if !fn(e) {
		return false
	}
	switch n := e.(type) {
	case *ArrayIndex:
		return Walk(n.Base, fn)
	case *ArraySlice:
		return Walk(n.Base, fn)
	case *Binary:
		return Walk(n.Left, fn) && Walk(n.Right, fn)
	case *Unary:
		return Walk(n.Operand, fn)
	case *List:
		for _, item := range n.Items {
			if !Walk(item, fn) {
				return false
			}
		}
	case *Range:
		return Walk(n.Low, fn) && Walk(n.High, fn)
	case *IsNull:
		return Walk(n.Operand, fn)
	case *Call:
		for _, arg := range n.Args {
			if !Walk(arg, fn) {
				return false
			}
		}
	case *Aggregate:
		if n.Arg != nil {
			return Walk(n.Arg, fn)
		}
	}
	return true
}

// contains reports whether any node in e satisfies pred.
func contains(e Expr, pred func(Expr) bool) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if pred(n) {
			found = true
			return false
		}
		return true
	})
	return found
}

// HasArrayAccess reports whether e contains an array index or slice.
func HasArrayAccess(e Expr) bool {
	return contains(e, func(n Expr) bool {
		switch n.(type) {
		case *ArrayIndex, *ArraySlice:
			return true
		}
		return false
	})
}

// HasArithmetic reports whether e contains an arithmetic operator or a
// math function call.
func HasArithmetic(e Expr) bool {
	return contains(e, func(n Expr) bool {
		switch v := n.(type) {
		case *Binary:
			return v.Op.IsArithmetic()
		case *Unary:
			return v.Op == OpNeg
		case *Call:
			switch v.Name {
			case "ROUND", "ABS", "CEIL", "FLOOR", "TRUNC":
				return true
			}
		}
		return false
	})
}

// HasAggregate reports whether e contains an aggregate function.
func HasAggregate(e Expr) bool {
	return contains(e, func(n Expr) bool {
		_, ok := n.(*Aggregate)
		return ok
	})
}

// HasCountDistinct reports whether e contains COUNT(DISTINCT ...).
func HasCountDistinct(e Expr) bool {
	return contains(e, func(n Expr) bool {
		agg, ok := n.(*Aggregate)
		return ok && agg.Kind == AggCount && agg.Distinct
	})
}

// IsFieldChain reports whether e is a field reference or a chain of
// array accesses rooted at one (the only shapes allowed as index/slice
// bases and ORDER BY keys).
func IsFieldChain(e Expr) bool {
	switch n := e.(type) {
	case *FieldRef:
		return true
	case *ArrayIndex:
		return IsFieldChain(n.Base)
	case *ArraySlice:
		return IsFieldChain(n.Base)
	}
	return false
}

// BaseField returns the dotted path of the field reference at the root
// of a field chain, or "" when e is not a field chain.
func BaseField(e Expr) string {
	switch n := e.(type) {
	case *FieldRef:
		return n.PathString()
	case *ArrayIndex:
		return BaseField(n.Base)
	case *ArraySlice:
		return BaseField(n.Base)
	}
	return ""
}

// PathString returns the dotted MongoDB path of the reference.
func (f *FieldRef) PathString() string {
	return strings.Join(f.Path, ".")
}

// Display renders an expression the way it appeared in source, used for
// the default output name of computed projections.
func Display(e Expr) string {
	switch n := e.(type) {
	case *FieldRef:
		return n.PathString()
	case *Number:
		return strconv.FormatFloat(n.Value, 'g', -1, 64)
	case *String:
		return "'" + n.Value + "'"
	case *Bool:
		if n.Value {
			return "TRUE"
		}
		return "FALSE"
	case *Null:
		return "NULL"
	case *DateLit:
		return "TIMESTAMP '" + n.ISO + "'"
	case *CurrentTime:
		return n.Kind
	case *ArrayIndex:
		return fmt.Sprintf("%s[%d]", Display(n.Base), n.Index)
	case *ArraySlice:
		var sb strings.Builder
		sb.WriteString(Display(n.Base))
		sb.WriteByte('[')
		if n.Start != nil {
			sb.WriteString(strconv.FormatInt(*n.Start, 10))
		}
		sb.WriteByte(':')
		if n.End != nil {
			sb.WriteString(strconv.FormatInt(*n.End, 10))
		}
		if n.Step != nil {
			sb.WriteByte(':')
			sb.WriteString(strconv.FormatInt(*n.Step, 10))
		}
		sb.WriteByte(']')
		return sb.String()
	case *Binary:
		return fmt.Sprintf("%s %s %s", Display(n.Left), n.Op, Display(n.Right))
	case *Unary:
		if n.Op == OpNot {
			return "NOT " + Display(n.Operand)
		}
		return "-" + Display(n.Operand)
	case *List:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			parts[i] = Display(item)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *Range:
		return Display(n.Low) + " AND " + Display(n.High)
	case *IsNull:
		if n.Negated {
			return Display(n.Operand) + " IS NOT NULL"
		}
		return Display(n.Operand) + " IS NULL"
	case *Call:
		parts := make([]string, len(n.Args))
		for i, arg := range n.Args {
			parts[i] = Display(arg)
		}
		return n.Name + "(" + strings.Join(parts, ", ") + ")"
	case *Aggregate:
		arg := "*"
		if n.Arg != nil {
			arg = Display(n.Arg)
		}
		if n.Distinct {
			arg = "DISTINCT " + arg
		}
		return string(n.Kind) + "(" + arg + ")"
	case *Wildcard:
		return "*"
	}
	return ""
}
