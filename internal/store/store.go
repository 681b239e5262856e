// Package store persists completed evaluations for later consultation by
// ID, listing, and aggregate statistics.
package store

import (
	"context"
	"time"

	"github.com/conforme/conforme-cli/internal/model"
)

// Evaluation is one persisted analysis run: who requested it, how many
// items it covered, the overall verdict, and the per-item detail rows.
type Evaluation struct {
	ID            string           `json:"id"`
	RequestDate   time.Time        `json:"request_date"`
	Username      string           `json:"username"`
	ItemCount     int              `json:"item_count"`
	OverallResult model.Verdict    `json:"overall_result"`
	Results       []map[string]any `json:"results"`
}

// Filter narrows ListEvaluations.
type Filter struct {
	Username string
	Limit    int
}

// Statistics aggregates the stored evaluations.
type Statistics struct {
	TotalEvaluations int            `json:"total_evaluations"`
	TotalItems       int            `json:"total_items"`
	ByResult         map[string]int `json:"by_result"`
	ByUser           map[string]int `json:"by_user"`
}

// Store persists evaluations. IDs are sequential and human-quotable
// (RNF0000001) because analysts reference them in audit tickets.
type Store interface {
	GenerateID(ctx context.Context) (string, error)
	SaveEvaluation(ctx context.Context, eval Evaluation) error
	GetEvaluation(ctx context.Context, id string) (*Evaluation, error)
	ListEvaluations(ctx context.Context, filter Filter) ([]Evaluation, error)
	Statistics(ctx context.Context) (*Statistics, error)
	Close() error
}
