package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
)

// PostgreSQL error codes and classes the stores classify
const (
	codeUniqueViolation     pq.ErrorCode = "23505"
	codeForeignKeyViolation pq.ErrorCode = "23503"
	codeNotNullViolation    pq.ErrorCode = "23502"
	codeCheckViolation      pq.ErrorCode = "23514"
	codeQueryCanceled       pq.ErrorCode = "57014"

	classConnectionException   pq.ErrorClass = "08"
	classInsufficientResources pq.ErrorClass = "53"
	classOperatorIntervention  pq.ErrorClass = "57"
)

// mapError classifies driver errors into domain errors.
// sql.ErrNoRows becomes domain.ErrNotFound.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation, codeForeignKeyViolation, codeNotNullViolation, codeCheckViolation:
			return fmt.Errorf("%w: %s", domain.ErrConstraintViolation, pqErr.Message)
		case codeQueryCanceled:
			return fmt.Errorf("%w: %s", domain.ErrStorageUnavailable, pqErr.Message)
		}
		switch pqErr.Code.Class() {
		case classConnectionException, classInsufficientResources, classOperatorIntervention:
			return fmt.Errorf("%w: %s", domain.ErrStorageUnavailable, pqErr.Message)
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return err
}
