package usecase

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/services"
)

const instrumentationName = "github.com/fwegener83/crawl4ai-mcp-server/internal/usecase"

// UseCases holds the one service container both protocol adapters share.
// Every exposed operation is a method here; adapters never touch the
// container's singletons directly.
type UseCases struct {
	container services.Container
	tracer    trace.Tracer
}

// New wires the use-case layer against a constructed service container.
func New(container services.Container) *UseCases {
	return &UseCases{
		container: container,
		tracer:    otel.Tracer(instrumentationName),
	}
}
