package source

import (
	"context"

	"github.com/bobbylite/enrollhub/internal/logging"
	"github.com/bobbylite/enrollhub/internal/policy"
)

type Fetcher interface {
	Fetch(ctx context.Context, log logging.InternalLogger) ([]policy.Rule, error)
}
