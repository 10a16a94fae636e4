// Package translate lowers AST expressions into BSON fragments: find
// filters for the fast path and aggregation expressions for pipeline
// stages.
//
// Everything is built on bson.D and bson.A so that key order is fixed
// by construction — translating the same statement twice yields
// byte-identical extended JSON.
package translate

import (
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roach88/mongosql/internal/ast"
	"github.com/roach88/mongosql/internal/sqlerr"
)

// Translator lowers expressions and collects warnings for constructs
// that are only partially expressible (slice steps, for instance).
type Translator struct {
	Warnings []string
}

func (t *Translator) warnf(format string, args ...any) {
	t.Warnings = append(t.Warnings, fmt.Sprintf(format, args...))
}

// Value lowers e into an aggregation expression usable inside $project,
// $group and $match-with-$expr stages.
func (t *Translator) Value(e ast.Expr) (any, error) {
	switch n := e.(type) {
	case *ast.FieldRef:
		return "$" + n.PathString(), nil

	case *ast.Number:
		return lowerNumber(n.Value), nil

	case *ast.String:
		return n.Value, nil

	case *ast.Bool:
		return n.Value, nil

	case *ast.Null:
		return nil, nil

	case *ast.DateLit:
		return primitive.NewDateTimeFromTime(n.Value), nil

	case *ast.CurrentTime:
		return currentTimeValue(n.Kind), nil

	case *ast.ArrayIndex:
		base, err := t.Value(n.Base)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$arrayElemAt", Value: bson.A{base, n.Index}}}, nil

	case *ast.ArraySlice:
		return t.sliceValue(n)

	case *ast.Binary:
		return t.binaryValue(n)

	case *ast.Unary:
		operand, err := t.Value(n.Operand)
		if err != nil {
			return nil, err
		}
		if n.Op == ast.OpNeg {
			return bson.D{{Key: "$multiply", Value: bson.A{int64(-1), operand}}}, nil
		}
		return bson.D{{Key: "$not", Value: bson.A{operand}}}, nil

	case *ast.IsNull:
		operand, err := t.Value(n.Operand)
		if err != nil {
			return nil, err
		}
		op := "$eq"
		if n.Negated {
			op = "$ne"
		}
		return bson.D{{Key: op, Value: bson.A{operand, nil}}}, nil

	case *ast.Call:
		return t.callValue(n)

	case *ast.Aggregate:
		return nil, fmt.Errorf("translate: aggregate %s outside a group stage", n.Kind)
	}
	return nil, fmt.Errorf("translate: unsupported expression %T", e)
}

// binaryValue lowers arithmetic, comparison and logical operators into
// their aggregation operator form.
func (t *Translator) binaryValue(n *ast.Binary) (any, error) {
	if n.Op == ast.OpDiv || n.Op == ast.OpMod {
		if num, ok := n.Right.(*ast.Number); ok && num.Value == 0 {
			return nil, sqlerr.New(sqlerr.CodeDivisionByZeroLiteral,
				"division by literal zero in '%s'", ast.Display(n))
		}
	}

	switch n.Op {
	case ast.OpIn:
		left, err := t.Value(n.Left)
		if err != nil {
			return nil, err
		}
		list, ok := n.Right.(*ast.List)
		if !ok {
			return nil, fmt.Errorf("translate: IN right-hand side is %T", n.Right)
		}
		items := make(bson.A, 0, len(list.Items))
		for _, item := range list.Items {
			v, err := t.Value(item)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return bson.D{{Key: "$in", Value: bson.A{left, items}}}, nil

	case ast.OpBetween:
		rng, ok := n.Right.(*ast.Range)
		if !ok {
			return nil, fmt.Errorf("translate: BETWEEN right-hand side is %T", n.Right)
		}
		left, err := t.Value(n.Left)
		if err != nil {
			return nil, err
		}
		low, err := t.Value(rng.Low)
		if err != nil {
			return nil, err
		}
		high, err := t.Value(rng.High)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "$gte", Value: bson.A{left, low}}},
			bson.D{{Key: "$lte", Value: bson.A{left, high}}},
		}}}, nil

	case ast.OpLike:
		left, err := t.Value(n.Left)
		if err != nil {
			return nil, err
		}
		pattern := n.Right.(*ast.String).Value
		return bson.D{{Key: "$regexMatch", Value: bson.D{
			{Key: "input", Value: left},
			{Key: "regex", Value: likeRegex(pattern)},
			{Key: "options", Value: "i"},
		}}}, nil
	}

	left, err := t.Value(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := t.Value(n.Right)
	if err != nil {
		return nil, err
	}

	op, ok := binaryOperators[n.Op]
	if !ok {
		return nil, fmt.Errorf("translate: unsupported operator %s", n.Op)
	}
	return bson.D{{Key: op, Value: bson.A{left, right}}}, nil
}

var binaryOperators = map[ast.BinaryOp]string{
	ast.OpAdd: "$add",
	ast.OpSub: "$subtract",
	ast.OpMul: "$multiply",
	ast.OpDiv: "$divide",
	ast.OpMod: "$mod",
	ast.OpEq:  "$eq",
	ast.OpNe:  "$ne",
	ast.OpGt:  "$gt",
	ast.OpLt:  "$lt",
	ast.OpGe:  "$gte",
	ast.OpLe:  "$lte",
	ast.OpAnd: "$and",
	ast.OpOr:  "$or",
}

// sliceValue lowers an array slice to $slice. The position/length form
// covers bounded slices; the negative two-argument form covers
// trailing slices. Steps larger than one cannot be expressed and only
// produce a warning.
func (t *Translator) sliceValue(n *ast.ArraySlice) (any, error) {
	base, err := t.Value(n.Base)
	if err != nil {
		return nil, err
	}

	if n.Step != nil && *n.Step > 1 {
		t.warnf("slice step %d is not supported by the target and was ignored", *n.Step)
	}

	start := int64(0)
	if n.Start != nil {
		start = *n.Start
	}

	if n.End == nil {
		if start == 0 {
			return base, nil
		}
		if start < 0 {
			return bson.D{{Key: "$slice", Value: bson.A{base, start}}}, nil
		}
		return bson.D{{Key: "$slice", Value: bson.A{base, start, int64(math.MaxInt32)}}}, nil
	}

	// A negative end with a non-negative start has no static length; the
	// position/length form needs a positive count, so take the rest of
	// the array and say so.
	if start >= 0 && *n.End < 0 {
		t.warnf("slice end %d counts from the end of the array and cannot be combined with start %d; translated as the rest of the array", *n.End, start)
		return bson.D{{Key: "$slice", Value: bson.A{base, start, int64(math.MaxInt32)}}}, nil
	}
	return bson.D{{Key: "$slice", Value: bson.A{base, start, *n.End - start}}}, nil
}

// callValue lowers math function calls.
func (t *Translator) callValue(n *ast.Call) (any, error) {
	args := make(bson.A, 0, len(n.Args))
	for _, arg := range n.Args {
		v, err := t.Value(arg)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	switch n.Name {
	case "ROUND":
		if len(args) == 1 {
			args = append(args, int64(0))
		}
		return bson.D{{Key: "$round", Value: args}}, nil
	case "TRUNC":
		if len(args) == 1 {
			args = append(args, int64(0))
		}
		return bson.D{{Key: "$trunc", Value: args}}, nil
	case "ABS":
		return bson.D{{Key: "$abs", Value: args[0]}}, nil
	case "CEIL":
		return bson.D{{Key: "$ceil", Value: args[0]}}, nil
	case "FLOOR":
		return bson.D{{Key: "$floor", Value: args[0]}}, nil
	}
	return nil, sqlerr.New(sqlerr.CodeUnsupportedFunction, "unsupported function '%s'", n.Name)
}

// Accumulator lowers an aggregate application into a $group
// accumulator document. COUNT(DISTINCT x) is not handled here: the
// planner expands it into its own staging.
func (t *Translator) Accumulator(agg *ast.Aggregate) (bson.D, error) {
	if agg.Kind == ast.AggCount {
		if agg.Arg == nil {
			return bson.D{{Key: "$sum", Value: int64(1)}}, nil
		}
		arg, err := t.Value(agg.Arg)
		if err != nil {
			return nil, err
		}
		// COUNT(field) counts documents where the field is present and
		// not null.
		return bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.D{
			{Key: "if", Value: bson.D{{Key: "$ne", Value: bson.A{arg, nil}}}},
			{Key: "then", Value: int64(1)},
			{Key: "else", Value: int64(0)},
		}}}}}, nil
	}

	arg, err := t.Value(agg.Arg)
	if err != nil {
		return nil, err
	}
	var op string
	switch agg.Kind {
	case ast.AggSum:
		op = "$sum"
	case ast.AggAvg:
		op = "$avg"
	case ast.AggMin:
		op = "$min"
	case ast.AggMax:
		op = "$max"
	default:
		return nil, fmt.Errorf("translate: unknown aggregate %s", agg.Kind)
	}
	return bson.D{{Key: op, Value: arg}}, nil
}

// currentTimeValue maps a deferred time marker to the aggregation
// system variable so the value is resolved at execution, not at
// compile time.
func currentTimeValue(kind string) any {
	if kind == "CURRENT_DATE" {
		return bson.D{{Key: "$dateTrunc", Value: bson.D{
			{Key: "date", Value: "$$NOW"},
			{Key: "unit", Value: "day"},
		}}}
	}
	return "$$NOW"
}

// lowerNumber emits whole literals as int64 and everything else as
// double, mirroring how the numbers were written in source.
func lowerNumber(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}
