//go:build !integration

package main

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/conforme/conforme-cli/pkg/vertex"
)

type mockVertexClient struct {
	mock.Mock
}

func (m *mockVertexClient) Generate(ctx context.Context, req vertex.GenerateRequest) (*vertex.GenerateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vertex.GenerateResponse), args.Error(1)
}
