package structuring

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"porttariff/internal/domain"
	"porttariff/internal/logger"
)

// DefaultBatchWindow is the number of documents structured concurrently.
const DefaultBatchWindow = 3

// Structurer is the per-document operation a Coordinator fans out.
type Structurer interface {
	StructureWithFallback(ctx context.Context, text string) domain.StructuringResult
}

// Coordinator structures batches of documents in fixed-size windows.
type Coordinator struct {
	engine Structurer
	window int
	logger *zap.Logger
}

// NewCoordinator creates a Coordinator. A window below 1 uses DefaultBatchWindow.
func NewCoordinator(engine Structurer, window int, log *zap.Logger) *Coordinator {
	if window < 1 {
		window = DefaultBatchWindow
	}
	return &Coordinator{
		engine: engine,
		window: window,
		logger: logger.OrNop(log).Named("batch"),
	}
}

// Window returns the configured concurrency window.
func (c *Coordinator) Window() int {
	return c.window
}

// StructureBatch structures docs and returns one result per document id.
// A failing document gets a zero-confidence empty result and never affects
// the others. Windows run one after another.
func (c *Coordinator) StructureBatch(ctx context.Context, docs []domain.BatchDocument) domain.BatchResult {
	results := make(domain.BatchResult, len(docs))
	var mu sync.Mutex
	record := func(id string, res domain.StructuringResult) {
		mu.Lock()
		results[id] = res
		mu.Unlock()
	}

	for start := 0; start < len(docs); start += c.window {
		end := start + c.window
		if end > len(docs) {
			end = len(docs)
		}

		if err := ctx.Err(); err != nil {
			for _, doc := range docs[start:end] {
				c.logger.Error("batch document not processed", zap.String("id", doc.ID), zap.Error(err))
				record(doc.ID, domain.EmptyStructuringResult())
			}
			continue
		}

		var g errgroup.Group
		for _, doc := range docs[start:end] {
			doc := doc
			g.Go(func() error {
				record(doc.ID, c.structureOne(ctx, doc))
				return nil
			})
		}
		_ = g.Wait()
	}

	c.logger.Info("batch structured", zap.Int("documents", len(docs)), zap.Int("window", c.window))
	return results
}

func (c *Coordinator) structureOne(ctx context.Context, doc domain.BatchDocument) (res domain.StructuringResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("batch document failed", zap.String("id", doc.ID), zap.Any("panic", r))
			res = domain.EmptyStructuringResult()
		}
	}()

	if err := ctx.Err(); err != nil {
		c.logger.Error("batch document cancelled", zap.String("id", doc.ID), zap.Error(err))
		return domain.EmptyStructuringResult()
	}
	return c.engine.StructureWithFallback(ctx, doc.Text)
}
