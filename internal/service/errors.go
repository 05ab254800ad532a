package service

import "github.com/lessonloop/scheduler/internal/apperr"

// engineErr passes already-classified engine errors through and wraps
// everything else (pgx failures, rollbacks) as a StorageError.
func engineErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if apperr.IsValidation(err) || apperr.IsNotFound(err) || apperr.IsConflict(err) || apperr.IsStorage(err) {
		return err
	}
	return apperr.Storage(op, err)
}
