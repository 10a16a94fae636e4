package planner

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/roach88/mongosql/internal/ast"
	"github.com/roach88/mongosql/internal/translate"
)

// Build turns a validated statement into an executable plan. Warnings
// report constructs the target can only approximate.
func Build(stmt *ast.Statement) (Plan, []string, error) {
	tr := &translate.Translator{}

	var (
		plan Plan
		err  error
	)
	switch {
	case fastPathEligible(stmt):
		plan, err = buildFastPath(tr, stmt)
	case len(stmt.GroupBy) > 0 || hasAggregates(stmt) || stmt.Having != nil:
		// HAVING without GROUP BY groups the whole collection, so its
		// predicate is never lost on the projected path.
		plan, err = buildGrouped(tr, stmt)
	default:
		plan, err = buildProjected(tr, stmt)
	}
	if err != nil {
		return nil, nil, err
	}
	return plan, tr.Warnings, nil
}

// buildFastPath emits a single find() call.
func buildFastPath(tr *translate.Translator, stmt *ast.Statement) (Plan, error) {
	plan := &FastPath{Collection: stmt.Collection}

	if stmt.Filter != nil {
		filter, err := tr.Filter(stmt.Filter)
		if err != nil {
			return nil, err
		}
		plan.Filter = filter
	} else {
		plan.Filter = bson.D{}
	}

	if !isWildcard(stmt) {
		proj := bson.D{}
		selectsID := false
		for _, p := range stmt.Projections {
			path := p.Expr.(*ast.FieldRef).PathString()
			if path == "_id" {
				selectsID = true
			}
			proj = append(proj, bson.E{Key: path, Value: int32(1)})
		}
		if !selectsID {
			proj = append(proj, bson.E{Key: "_id", Value: int32(0)})
		}
		plan.Projection = proj
	}

	plan.Sort = sortDoc(stmt.OrderBy, nil)
	plan.Skip = stmt.Offset
	plan.Limit = stmt.Limit
	return plan, nil
}

// buildProjected emits a pipeline for statements with computed
// projections, aliases or array access, but no grouping.
//
// Stage order is fixed: match on simple predicates, project computed
// values (including hidden comparison fields), match on the hidden
// fields, drop them, then sort, skip and limit.
func buildProjected(tr *translate.Translator, stmt *ast.Statement) (Plan, error) {
	var stages mongo.Pipeline

	simple, computed := partitionFilter(stmt.Filter)
	if pre := joinConjuncts(simple); pre != nil {
		filter, err := tr.Filter(pre)
		if err != nil {
			return nil, err
		}
		stages = append(stages, bson.D{{Key: "$match", Value: filter}})
	}

	hidden := bson.D{}
	for i, pred := range computed {
		v, err := tr.Value(pred)
		if err != nil {
			return nil, err
		}
		hidden = append(hidden, bson.E{Key: fmt.Sprintf("_cmp%d", i), Value: v})
	}

	wildcard := isWildcard(stmt)
	sortNames := map[string]string{}

	if wildcard {
		if len(hidden) > 0 {
			stages = append(stages, bson.D{{Key: "$addFields", Value: hidden}})
		}
	} else {
		proj := bson.D{}
		if !selectsID(stmt) {
			proj = append(proj, bson.E{Key: "_id", Value: int32(0)})
		}
		for _, p := range stmt.Projections {
			name := outputName(p)
			if ref, ok := p.Expr.(*ast.FieldRef); ok && p.Alias == "" {
				proj = append(proj, bson.E{Key: ref.PathString(), Value: int32(1)})
				continue
			}
			v, err := tr.Value(p.Expr)
			if err != nil {
				return nil, err
			}
			proj = append(proj, bson.E{Key: name, Value: v})
			sortNames[ast.Display(p.Expr)] = name
		}
		proj = append(proj, hidden...)
		stages = append(stages, bson.D{{Key: "$project", Value: proj}})
	}

	if len(hidden) > 0 {
		match := bson.D{}
		cleanup := bson.D{}
		for _, kv := range hidden {
			match = append(match, bson.E{Key: kv.Key, Value: true})
			cleanup = append(cleanup, bson.E{Key: kv.Key, Value: int32(0)})
		}
		stages = append(stages,
			bson.D{{Key: "$match", Value: match}},
			bson.D{{Key: "$project", Value: cleanup}})
	}

	stages, err := appendSortStages(tr, stages, stmt.OrderBy, sortNames)
	if err != nil {
		return nil, err
	}
	stages = appendPagination(stages, stmt)
	return &StagedPipeline{Collection: stmt.Collection, Stages: stages}, nil
}

// appendSortStages emits $sort. A sort key that is itself an array
// access is computed into a hidden field first and dropped after.
func appendSortStages(tr *translate.Translator, stages mongo.Pipeline, keys []ast.OrderKey, names map[string]string) (mongo.Pipeline, error) {
	if len(keys) == 0 {
		return stages, nil
	}

	computed := bson.D{}
	sort := bson.D{}
	for i, key := range keys {
		dir := int32(1)
		if key.Desc {
			dir = int32(-1)
		}
		if ref, ok := key.Expr.(*ast.FieldRef); ok {
			name := ref.PathString()
			if renamed, ok := names[name]; ok {
				name = renamed
			}
			sort = append(sort, bson.E{Key: name, Value: dir})
			continue
		}
		v, err := tr.Value(key.Expr)
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("_sort%d", i)
		computed = append(computed, bson.E{Key: name, Value: v})
		sort = append(sort, bson.E{Key: name, Value: dir})
	}

	if len(computed) > 0 {
		stages = append(stages, bson.D{{Key: "$addFields", Value: computed}})
	}
	stages = append(stages, bson.D{{Key: "$sort", Value: sort}})
	if len(computed) > 0 {
		cleanup := bson.D{}
		for _, kv := range computed {
			cleanup = append(cleanup, bson.E{Key: kv.Key, Value: int32(0)})
		}
		stages = append(stages, bson.D{{Key: "$project", Value: cleanup}})
	}
	return stages, nil
}

func appendPagination(stages mongo.Pipeline, stmt *ast.Statement) mongo.Pipeline {
	if stmt.Offset != nil {
		stages = append(stages, bson.D{{Key: "$skip", Value: *stmt.Offset}})
	}
	if stmt.Limit != nil {
		stages = append(stages, bson.D{{Key: "$limit", Value: *stmt.Limit}})
	}
	return stages
}

// partitionFilter splits the WHERE conjuncts into those expressible as
// a find() filter and those that need computed evaluation.
func partitionFilter(filter ast.Expr) (simple, computed []ast.Expr) {
	if filter == nil {
		return nil, nil
	}
	for _, pred := range splitConjuncts(filter) {
		if simplePredicate(pred) {
			simple = append(simple, pred)
		} else {
			computed = append(computed, pred)
		}
	}
	return simple, computed
}

func isWildcard(stmt *ast.Statement) bool {
	return len(stmt.Projections) == 1 && isWildcardExpr(stmt.Projections[0].Expr)
}

func isWildcardExpr(e ast.Expr) bool {
	_, ok := e.(*ast.Wildcard)
	return ok
}

func selectsID(stmt *ast.Statement) bool {
	for _, p := range stmt.Projections {
		if ref, ok := p.Expr.(*ast.FieldRef); ok && ref.PathString() == "_id" {
			return true
		}
	}
	return false
}

// outputName is the field name a projection appears under in results:
// the alias when given, the dotted path for plain fields, otherwise
// the source rendering with dots flattened (a dotted name would nest in
// a $project stage).
func outputName(p ast.Projection) string {
	if p.Alias != "" {
		return p.Alias
	}
	if ref, ok := p.Expr.(*ast.FieldRef); ok {
		return ref.PathString()
	}
	return strings.ReplaceAll(ast.Display(p.Expr), ".", "_")
}

// sortDoc builds a find() sort document from plain-field keys.
func sortDoc(keys []ast.OrderKey, names map[string]string) bson.D {
	if len(keys) == 0 {
		return nil
	}
	sort := bson.D{}
	for _, key := range keys {
		dir := int32(1)
		if key.Desc {
			dir = int32(-1)
		}
		name := ast.BaseField(key.Expr)
		if renamed, ok := names[name]; ok {
			name = renamed
		}
		sort = append(sort, bson.E{Key: name, Value: dir})
	}
	return sort
}
