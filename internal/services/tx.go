package services

import (
	"context"
	"errors"

	"github.com/burakozf/splitledger/internal/repository"
)

// maxTxRetries bounds how many times a transactional unit is restarted after
// losing a version or serialization conflict.
const maxTxRetries = 3

// retryTx runs fn in a store transaction and restarts the whole unit when it
// fails with repository.ErrConflict. fn must be safe to run again from
// scratch; on postgres a serialization failure aborts the transaction, so
// retrying individual statements inside it is not enough.
func retryTx(ctx context.Context, store repository.Store, fn func(tx repository.Store) error) error {
	var err error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = store.WithinTx(ctx, fn)
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
	}
	return err
}
