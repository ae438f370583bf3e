package search

import (
	"context"

	"github.com/san-kum/chaosfind/internal/dynamo"
)

// Persister stores the full best set, replacing whatever was stored before.
type Persister interface {
	SaveSystems(ctx context.Context, set []dynamo.Candidate) error
}

// Renderer produces a static visualisation of one candidate.
type Renderer interface {
	Render(c dynamo.Candidate) error
}

type nopPersister struct{}

func (nopPersister) SaveSystems(context.Context, []dynamo.Candidate) error { return nil }

type nopRenderer struct{}

func (nopRenderer) Render(dynamo.Candidate) error { return nil }
