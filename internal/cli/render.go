package cli

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/roach88/mongosql/internal/ast"
	"github.com/roach88/mongosql/internal/compiler"
	"github.com/roach88/mongosql/internal/planner"
)

// RenderPlan renders a compiled query as the shell call it executes.
// canonical selects canonical extended JSON (fully typed, stable for
// golden comparisons); relaxed reads better interactively.
func RenderPlan(q *compiler.CompiledQuery, canonical bool) (string, error) {
	if q.IsExplain() {
		return renderExplain(q, canonical)
	}
	switch plan := q.Plan.(type) {
	case *planner.FastPath:
		return renderFind(plan, canonical)
	case *planner.StagedPipeline:
		return renderAggregate(plan, canonical)
	}
	return "", fmt.Errorf("unknown plan type %T", q.Plan)
}

func renderFind(plan *planner.FastPath, canonical bool) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "db.%s.find(", plan.Collection)

	filter, err := extJSON(plan.Filter, canonical)
	if err != nil {
		return "", err
	}
	sb.WriteString(filter)

	if plan.Projection != nil {
		proj, err := extJSON(plan.Projection, canonical)
		if err != nil {
			return "", err
		}
		sb.WriteString(", ")
		sb.WriteString(proj)
	}
	sb.WriteString(")")

	if plan.Sort != nil {
		sort, err := extJSON(plan.Sort, canonical)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, ".sort(%s)", sort)
	}
	if plan.Skip != nil {
		fmt.Fprintf(&sb, ".skip(%d)", *plan.Skip)
	}
	if plan.Limit != nil {
		fmt.Fprintf(&sb, ".limit(%d)", *plan.Limit)
	}
	return sb.String(), nil
}

func renderAggregate(plan *planner.StagedPipeline, canonical bool) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "db.%s.aggregate([", plan.Collection)
	for i, stage := range plan.Stages {
		if i > 0 {
			sb.WriteString(", ")
		}
		s, err := extJSON(stage, canonical)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	sb.WriteString("])")
	return sb.String(), nil
}

// renderExplain renders the runCommand form with the requested
// verbosity, which applies to both plan shapes.
func renderExplain(q *compiler.CompiledQuery, canonical bool) (string, error) {
	verbosity := q.Explain
	if verbosity == "" {
		verbosity = ast.VerbosityQueryPlanner
	}

	var inner bson.D
	switch plan := q.Plan.(type) {
	case *planner.FastPath:
		inner = bson.D{
			{Key: "find", Value: plan.Collection},
			{Key: "filter", Value: plan.Filter},
		}
		if plan.Projection != nil {
			inner = append(inner, bson.E{Key: "projection", Value: plan.Projection})
		}
		if plan.Sort != nil {
			inner = append(inner, bson.E{Key: "sort", Value: plan.Sort})
		}
		if plan.Skip != nil {
			inner = append(inner, bson.E{Key: "skip", Value: *plan.Skip})
		}
		if plan.Limit != nil {
			inner = append(inner, bson.E{Key: "limit", Value: *plan.Limit})
		}
	case *planner.StagedPipeline:
		inner = bson.D{
			{Key: "aggregate", Value: plan.Collection},
			{Key: "pipeline", Value: plan.Stages},
			{Key: "cursor", Value: bson.D{}},
		}
	default:
		return "", fmt.Errorf("unknown plan type %T", q.Plan)
	}

	doc := bson.D{
		{Key: "explain", Value: inner},
		{Key: "verbosity", Value: string(verbosity)},
	}
	body, err := extJSON(doc, canonical)
	if err != nil {
		return "", err
	}
	return "db.runCommand(" + body + ")", nil
}

func extJSON(v any, canonical bool) (string, error) {
	data, err := bson.MarshalExtJSON(v, canonical, false)
	if err != nil {
		return "", fmt.Errorf("render plan: %w", err)
	}
	return string(data), nil
}
