// Package planner decides how a parsed statement executes: a direct
// find() call when the statement only filters, projects and sorts
// plain fields, or an aggregation pipeline for everything else.
package planner

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Plan is the executable form of a statement. It is sealed: the only
// implementations are FastPath and StagedPipeline, and consumers switch
// over the two.
type Plan interface {
	planNode()
	TargetCollection() string
}

// FastPath executes as a single find() call.
type FastPath struct {
	Collection string
	Filter     bson.D
	Projection bson.D // nil means all fields
	Sort       bson.D
	Skip       *int64
	Limit      *int64
}

func (*FastPath) planNode() {}

// TargetCollection returns the collection the plan runs against.
func (p *FastPath) TargetCollection() string { return p.Collection }

// StagedPipeline executes as an aggregate() call.
type StagedPipeline struct {
	Collection string
	Stages     mongo.Pipeline
}

func (*StagedPipeline) planNode() {}

// TargetCollection returns the collection the plan runs against.
func (p *StagedPipeline) TargetCollection() string { return p.Collection }
