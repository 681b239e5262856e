package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/conforme/conforme-cli/internal/pipeline"
	"github.com/conforme/conforme-cli/pkg/vertex"
)

// initClient validates the AI settings and builds the Vertex client. Stages
// that never call the model (capture, export) skip this.
func initClient(ctx context.Context) (vertex.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := vertex.NewClient(ctx, vertex.Config{
		ProjectID: cfg.AI.ProjectID,
		Location:  cfg.AI.Location,
		APIKey:    cfg.AI.APIKey,
	})
	if err != nil {
		return nil, eris.Wrap(err, "init vertex client")
	}
	return client, nil
}

// initPipeline builds the full three-stage pipeline with a live model client.
func initPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	client, err := initClient(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, client), nil
}
