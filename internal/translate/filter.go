package translate

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roach88/mongosql/internal/ast"
)

// Filter lowers a predicate into a find() filter document. The caller
// must have established fast-path eligibility first: every comparison
// here has a plain field path on one side and a literal (or deferred
// time marker) on the other.
func (t *Translator) Filter(e ast.Expr) (bson.D, error) {
	switch n := e.(type) {
	case *ast.Binary:
		switch n.Op {
		case ast.OpAnd:
			left, err := t.Filter(n.Left)
			if err != nil {
				return nil, err
			}
			right, err := t.Filter(n.Right)
			if err != nil {
				return nil, err
			}
			return mergeConjunction(left, right), nil

		case ast.OpOr:
			left, err := t.Filter(n.Left)
			if err != nil {
				return nil, err
			}
			right, err := t.Filter(n.Right)
			if err != nil {
				return nil, err
			}
			return bson.D{{Key: "$or", Value: flattenDisjunction(left, right)}}, nil

		case ast.OpIn:
			field, err := filterField(n.Left)
			if err != nil {
				return nil, err
			}
			list := n.Right.(*ast.List)
			items := make(bson.A, 0, len(list.Items))
			for _, item := range list.Items {
				v, err := t.literal(item)
				if err != nil {
					return nil, err
				}
				items = append(items, v)
			}
			return bson.D{{Key: field, Value: bson.D{{Key: "$in", Value: items}}}}, nil

		case ast.OpBetween:
			field, err := filterField(n.Left)
			if err != nil {
				return nil, err
			}
			rng := n.Right.(*ast.Range)
			low, err := t.literal(rng.Low)
			if err != nil {
				return nil, err
			}
			high, err := t.literal(rng.High)
			if err != nil {
				return nil, err
			}
			return bson.D{{Key: field, Value: bson.D{
				{Key: "$gte", Value: low},
				{Key: "$lte", Value: high},
			}}}, nil

		case ast.OpLike:
			field, err := filterField(n.Left)
			if err != nil {
				return nil, err
			}
			pattern := n.Right.(*ast.String).Value
			return bson.D{{Key: field, Value: bson.D{
				{Key: "$regex", Value: likeRegex(pattern)},
				{Key: "$options", Value: "i"},
			}}}, nil
		}

		if n.Op.IsComparison() {
			return t.comparisonFilter(n)
		}
		return nil, fmt.Errorf("translate: operator %s is not a predicate", n.Op)

	case *ast.Unary:
		if n.Op != ast.OpNot {
			return nil, fmt.Errorf("translate: unary %s is not a predicate", n.Op)
		}
		inner, err := t.Filter(n.Operand)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$nor", Value: bson.A{inner}}}, nil

	case *ast.IsNull:
		field, err := filterField(n.Operand)
		if err != nil {
			return nil, err
		}
		if n.Negated {
			return bson.D{{Key: field, Value: bson.D{{Key: "$ne", Value: nil}}}}, nil
		}
		return bson.D{{Key: field, Value: nil}}, nil

	case *ast.Bool:
		// WHERE TRUE / WHERE FALSE.
		if n.Value {
			return bson.D{}, nil
		}
		return bson.D{{Key: "_id", Value: bson.D{{Key: "$exists", Value: false}}}}, nil
	}
	return nil, fmt.Errorf("translate: unsupported predicate %T", e)
}

// comparisonFilter lowers one comparison, flipping it when the literal
// sits on the left (`21 < age` reads as `age > 21`).
func (t *Translator) comparisonFilter(n *ast.Binary) (bson.D, error) {
	field, value, op := n.Left, n.Right, n.Op
	if _, ok := field.(*ast.FieldRef); !ok {
		field, value = value, field
		op = flipComparison(op)
	}
	name, err := filterField(field)
	if err != nil {
		return nil, err
	}

	// Comparisons against the current time cannot be a plain literal
	// match; $expr resolves $$NOW on the server at execution.
	if ct, ok := value.(*ast.CurrentTime); ok {
		exprOp := binaryOperators[op]
		return bson.D{{Key: "$expr", Value: bson.D{{Key: exprOp, Value: bson.A{
			"$" + name, currentTimeValue(ct.Kind),
		}}}}}, nil
	}

	v, err := t.literal(value)
	if err != nil {
		return nil, err
	}
	if op == ast.OpEq {
		return bson.D{{Key: name, Value: v}}, nil
	}

	var mongoOp string
	switch op {
	case ast.OpNe:
		mongoOp = "$ne"
	case ast.OpGt:
		mongoOp = "$gt"
	case ast.OpLt:
		mongoOp = "$lt"
	case ast.OpGe:
		mongoOp = "$gte"
	case ast.OpLe:
		mongoOp = "$lte"
	default:
		return nil, fmt.Errorf("translate: operator %s is not a comparison", op)
	}
	return bson.D{{Key: name, Value: bson.D{{Key: mongoOp, Value: v}}}}, nil
}

// literal lowers a literal operand for a find filter.
func (t *Translator) literal(e ast.Expr) (any, error) {
	switch n := e.(type) {
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
	}
	return nil, fmt.Errorf("translate: expected a literal, got %T", e)
}

// filterField extracts the dotted path of a plain field reference.
func filterField(e ast.Expr) (string, error) {
	ref, ok := e.(*ast.FieldRef)
	if !ok {
		return "", fmt.Errorf("translate: expected a field path, got %T", e)
	}
	return ref.PathString(), nil
}

func flipComparison(op ast.BinaryOp) ast.BinaryOp {
	switch op {
	case ast.OpGt:
		return ast.OpLt
	case ast.OpLt:
		return ast.OpGt
	case ast.OpGe:
		return ast.OpLe
	case ast.OpLe:
		return ast.OpGe
	}
	return op
}

// mergeConjunction combines two filter documents. Disjoint keys merge
// into one document; a key collision (age > 21 AND age < 65 splits
// into two docs on the same field) falls back to $and.
func mergeConjunction(left, right bson.D) bson.D {
	seen := make(map[string]bool, len(left))
	for _, kv := range left {
		seen[kv.Key] = true
	}
	for _, kv := range right {
		if seen[kv.Key] {
			return bson.D{{Key: "$and", Value: bson.A{left, right}}}
		}
	}
	merged := make(bson.D, 0, len(left)+len(right))
	merged = append(merged, left...)
	merged = append(merged, right...)
	return merged
}

// flattenDisjunction folds nested $or branches into one list so that
// a OR b OR c emits a single three-way $or.
func flattenDisjunction(left, right bson.D) bson.A {
	out := bson.A{}
	for _, doc := range []bson.D{left, right} {
		if len(doc) == 1 && doc[0].Key == "$or" {
			out = append(out, doc[0].Value.(bson.A)...)
			continue
		}
		out = append(out, doc)
	}
	return out
}

// likeRegex converts a LIKE pattern to an anchored regular expression:
// % matches any run, _ matches one character, everything else is
// literal.
func likeRegex(pattern string) string {
	var sb strings.Builder
	sb.WriteByte('^')
	for _, ch := range pattern {
		switch ch {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteByte('.')
		case '.', '*', '+', '?', '(', ')', '[', ']', '{', '}', '^', '$', '|', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(ch)
		default:
			sb.WriteRune(ch)
		}
	}
	sb.WriteByte('$')
	return sb.String()
}
