package usecase

import (
	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/infra"
)

type UseCase struct {
	clients  *infra.Clients
	pipeline *model.PipelineConfig
}

var _ interfaces.UseCase = (*UseCase)(nil)

type Option func(*UseCase)

// WithPipeline enables ProcessNext. cfg should be validated by the caller.
func WithPipeline(cfg model.PipelineConfig) Option {
	return func(x *UseCase) {
		x.pipeline = &cfg
	}
}

func New(clients *infra.Clients, options ...Option) *UseCase {
	uc := &UseCase{
		clients: clients,
	}
	for _, opt := range options {
		opt(uc)
	}
	return uc
}
