package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/poi-ingest/internal/domain/repository"
)

// commitTally - итог коммита пакета
type commitTally struct {
	Created int
	Updated int
	Errors  int
}

func (t *commitTally) count(created bool) {
	if created {
		t.Created++
	} else {
		t.Updated++
	}
}

// commitFunc применяет один элемент внутри транзакции, true - создана новая запись
type commitFunc[T any] func(ctx context.Context, tx repository.POITx, item T) (bool, error)

// commitAllOrSubdivide коммитит элементы одной транзакцией. Если транзакция падает,
// повторяет каждый элемент в собственной транзакции. Счётчики упавшей попытки
// отбрасываются. onFailure вызывается для каждого элемента, упавшего в одиночку.
// Ошибка возвращается только при stopOnError или отмене контекста.
func commitAllOrSubdivide[T any](
	ctx context.Context,
	store repository.POIStore,
	items []T,
	stopOnError bool,
	apply commitFunc[T],
	onFailure func(item T, err error),
	logger *zap.Logger,
) (commitTally, bool, error) {
	if len(items) == 0 {
		return commitTally{}, false, nil
	}

	var staged commitTally
	batchErr := store.WithinTx(ctx, func(ctx context.Context, tx repository.POITx) error {
		staged = commitTally{}
		for _, item := range items {
			created, err := apply(ctx, tx, item)
			if err != nil {
				return err
			}
			staged.count(created)
		}
		return nil
	})
	if batchErr == nil {
		return staged, false, nil
	}
	if err := ctx.Err(); err != nil {
		return commitTally{}, false, err
	}

	logger.Warn("Batch commit failed, retrying records one by one",
		zap.Int("batch_size", len(items)),
		zap.Error(batchErr),
	)

	var tally commitTally
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return tally, true, err
		}

		var created bool
		err := store.WithinTx(ctx, func(ctx context.Context, tx repository.POITx) error {
			var err error
			created, err = apply(ctx, tx, item)
			return err
		})
		if err != nil {
			tally.Errors++
			if onFailure != nil {
				onFailure(item, err)
			}
			if stopOnError {
				return tally, true, fmt.Errorf("commit record: %w", err)
			}
			continue
		}
		tally.count(created)
	}

	return tally, true, nil
}
