package controllers

import (
	"context"

	"github.com/tonyyueyu/optimization/pkg/solve"
)

// solverAdapter lifts the concrete solve client to the SolveClient
// interface the controller is tested against.
type solverAdapter struct {
	client *solve.Client
}

// AdaptSolveClient wraps a solve.Client for use with NewSolveController.
func AdaptSolveClient(c *solve.Client) SolveClient {
	return solverAdapter{client: c}
}

func (a solverAdapter) Retrieve(ctx context.Context, query string) ([]solve.ExampleProblem, error) {
	return a.client.Retrieve(ctx, query)
}

func (a solverAdapter) Solve(ctx context.Context, req solve.SolveRequest) (SolveStream, error) {
	stream, err := a.client.Solve(ctx, req)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
