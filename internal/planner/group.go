package planner

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/roach88/mongosql/internal/ast"
	"github.com/roach88/mongosql/internal/sqlerr"
	"github.com/roach88/mongosql/internal/translate"
)

// buildGrouped emits the pipeline for statements with GROUP BY or
// aggregate functions. Stage order: match on simple predicates, match
// computed predicates through $expr, $group, distinct-set sizing,
// HAVING match, the renaming projection, then sort and pagination.
//
// Grouping without GROUP BY (SELECT COUNT(*) FROM users) groups the
// whole collection under a null key.
func buildGrouped(tr *translate.Translator, stmt *ast.Statement) (Plan, error) {
	var stages mongo.Pipeline

	simple, computed := partitionFilter(stmt.Filter)
	if pre := joinConjuncts(simple); pre != nil {
		filter, err := tr.Filter(pre)
		if err != nil {
			return nil, err
		}
		stages = append(stages, bson.D{{Key: "$match", Value: filter}})
	}
	if post := joinConjuncts(computed); post != nil {
		v, err := tr.Value(post)
		if err != nil {
			return nil, err
		}
		stages = append(stages, bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: v}}}})
	}

	if plan, ok, err := buildSoleCountDistinct(tr, stmt, stages); ok || err != nil {
		return plan, err
	}

	gc := &groupCtx{tr: tr}
	for _, key := range stmt.GroupBy {
		gc.keys = append(gc.keys, key.(*ast.FieldRef))
	}

	// Register accumulators for every aggregate in SELECT and HAVING.
	rewritten := make([]ast.Expr, len(stmt.Projections))
	for i, p := range stmt.Projections {
		expr, err := gc.rewrite(p.Expr)
		if err != nil {
			return nil, err
		}
		rewritten[i] = expr
	}
	var having ast.Expr
	if stmt.Having != nil {
		expr, err := gc.rewrite(stmt.Having)
		if err != nil {
			return nil, err
		}
		having = expr
	}

	stages = append(stages, bson.D{{Key: "$group", Value: gc.groupDoc()}})

	if len(gc.sizes) > 0 {
		stages = append(stages, bson.D{{Key: "$addFields", Value: gc.sizes}})
	}

	if having != nil {
		v, err := tr.Value(having)
		if err != nil {
			return nil, err
		}
		stages = append(stages, bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: v}}}})
	}

	// Renaming projection: group keys come back out of _id under their
	// own names, accumulators under their aliases, and _id disappears.
	proj := bson.D{{Key: "_id", Value: int32(0)}}
	sortNames := map[string]string{}
	for i, p := range stmt.Projections {
		name := outputName(p)
		v, err := tr.Value(rewritten[i])
		if err != nil {
			return nil, err
		}
		proj = append(proj, bson.E{Key: name, Value: v})
		sortNames[ast.Display(p.Expr)] = name
	}
	stages = append(stages, bson.D{{Key: "$project", Value: proj}})

	stages, err := appendSortStages(tr, stages, stmt.OrderBy, sortNames)
	if err != nil {
		return nil, err
	}
	stages = appendPagination(stages, stmt)
	return &StagedPipeline{Collection: stmt.Collection, Stages: stages}, nil
}

// buildSoleCountDistinct handles SELECT COUNT(DISTINCT f) with no other
// projection and no GROUP BY: two $group stages, first collapsing to
// distinct values, then counting them. With grouping or sibling
// accumulators the $addToSet strategy in groupCtx applies instead.
func buildSoleCountDistinct(tr *translate.Translator, stmt *ast.Statement, stages mongo.Pipeline) (Plan, bool, error) {
	if len(stmt.GroupBy) > 0 || stmt.Having != nil || len(stmt.Projections) != 1 {
		return nil, false, nil
	}
	agg, ok := stmt.Projections[0].Expr.(*ast.Aggregate)
	if !ok || agg.Kind != ast.AggCount || !agg.Distinct {
		return nil, false, nil
	}

	value, err := tr.Value(agg.Arg)
	if err != nil {
		return nil, true, err
	}
	name := outputName(stmt.Projections[0])
	stages = append(stages,
		bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: value}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "_count", Value: bson.D{{Key: "$sum", Value: int64(1)}}},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: int32(0)},
			{Key: name, Value: "$_count"},
		}}})
	stages = appendPagination(stages, stmt)
	return &StagedPipeline{Collection: stmt.Collection, Stages: stages}, true, nil
}

// groupCtx tracks accumulator registration while aggregate expressions
// are rewritten into group-output terms.
type groupCtx struct {
	tr     *translate.Translator
	keys   []*ast.FieldRef
	accums bson.D // accumulator name -> accumulator document
	sizes  bson.D // derived $size fields for COUNT(DISTINCT) sets
	cache  map[string]string
}

// groupDoc builds the $group stage document.
func (gc *groupCtx) groupDoc() bson.D {
	doc := bson.D{{Key: "_id", Value: gc.idValue()}}
	return append(doc, gc.accums...)
}

func (gc *groupCtx) idValue() any {
	switch len(gc.keys) {
	case 0:
		return nil
	case 1:
		return "$" + gc.keys[0].PathString()
	default:
		id := bson.D{}
		for _, key := range gc.keys {
			id = append(id, bson.E{Key: keySlot(key), Value: "$" + key.PathString()})
		}
		return id
	}
}

// keySlot names a group key inside the _id subdocument. Dots would
// nest, so dotted paths flatten.
func keySlot(key *ast.FieldRef) string {
	return strings.ReplaceAll(key.PathString(), ".", "_")
}

// rewrite replaces aggregates with references to their accumulator
// fields and group keys with references into _id, so the result can be
// lowered for post-group stages. Field references that are neither is
// an error: ungrouped columns have no defined value after $group.
func (gc *groupCtx) rewrite(e ast.Expr) (ast.Expr, error) {
	switch n := e.(type) {
	case *ast.Aggregate:
		name, err := gc.fieldFor(n)
		if err != nil {
			return nil, err
		}
		return &ast.FieldRef{Path: []string{name}}, nil

	case *ast.FieldRef:
		path := n.PathString()
		for _, key := range gc.keys {
			if key.PathString() == path {
				if len(gc.keys) == 1 {
					return &ast.FieldRef{Path: []string{"_id"}}, nil
				}
				return &ast.FieldRef{Path: []string{"_id", keySlot(key)}}, nil
			}
		}
		return nil, sqlerr.New(sqlerr.CodeUnsupportedGroupBy,
			"column '%s' must appear in GROUP BY or inside an aggregate function", path)

	case *ast.Binary:
		left, err := gc.rewrite(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := gc.rewrite(n.Right)
		if err != nil {
			return nil, err
		}
		return &ast.Binary{Op: n.Op, Left: left, Right: right}, nil

	case *ast.Unary:
		operand, err := gc.rewrite(n.Operand)
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: n.Op, Operand: operand}, nil

	case *ast.List:
		items := make([]ast.Expr, len(n.Items))
		for i, item := range n.Items {
			out, err := gc.rewrite(item)
			if err != nil {
				return nil, err
			}
			items[i] = out
		}
		return &ast.List{Items: items}, nil

	case *ast.Range:
		low, err := gc.rewrite(n.Low)
		if err != nil {
			return nil, err
		}
		high, err := gc.rewrite(n.High)
		if err != nil {
			return nil, err
		}
		return &ast.Range{Low: low, High: high}, nil

	case *ast.IsNull:
		operand, err := gc.rewrite(n.Operand)
		if err != nil {
			return nil, err
		}
		return &ast.IsNull{Operand: operand, Negated: n.Negated}, nil

	case *ast.Call:
		args := make([]ast.Expr, len(n.Args))
		for i, arg := range n.Args {
			out, err := gc.rewrite(arg)
			if err != nil {
				return nil, err
			}
			args[i] = out
		}
		return &ast.Call{Name: n.Name, Args: args}, nil
	}
	// Literals and markers pass through untouched.
	return e, nil
}

// fieldFor returns the post-group field holding the aggregate's value,
// registering the accumulator on first sight. The same aggregate
// written twice shares one accumulator.
func (gc *groupCtx) fieldFor(agg *ast.Aggregate) (string, error) {
	display := ast.Display(agg)
	if gc.cache == nil {
		gc.cache = make(map[string]string)
	}
	if name, ok := gc.cache[display]; ok {
		return name, nil
	}

	if agg.Kind == ast.AggCount && agg.Distinct {
		arg, err := gc.tr.Value(agg.Arg)
		if err != nil {
			return "", err
		}
		set := fmt.Sprintf("_set%d", len(gc.sizes))
		name := fmt.Sprintf("_agg%d", len(gc.accums))
		gc.accums = append(gc.accums, bson.E{Key: set,
			Value: bson.D{{Key: "$addToSet", Value: arg}}})
		gc.sizes = append(gc.sizes, bson.E{Key: name,
			Value: bson.D{{Key: "$size", Value: "$" + set}}})
		gc.cache[display] = name
		return name, nil
	}

	accum, err := gc.tr.Accumulator(agg)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("_agg%d", len(gc.accums))
	gc.accums = append(gc.accums, bson.E{Key: name, Value: accum})
	gc.cache[display] = name
	return name, nil
}
