package engine

import (
	"context"
	"fmt"

	"order-etl/internal/dialect"
	"order-etl/internal/schema"
)

// Status values of a verified LoadResult besides MISMATCH: a/t.
const (
	StatusOK         = "OK"
	StatusVerifyFail = "VERIFY_FAIL"
)

// VerifyCounts checks the actual row counts against each result's target
// and fills in Actual and Status. The first mismatch or failed count is
// returned as a LoadError; the remaining tables are still counted so the
// report is complete.
func VerifyCounts(ctx context.Context, ex execer, d dialect.Dialect, results []schema.LoadResult) ([]schema.LoadResult, error) {
	verified := make([]schema.LoadResult, 0, len(results))
	var firstErr error

	for _, res := range results {
		var currentCount int
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdentifier(res.TableName))
		err := ex.QueryRowContext(ctx, q).Scan(&currentCount)

		res.Actual = currentCount
		switch {
		case err != nil:
			res.Status = StatusVerifyFail
			res.ErrorMsg = err.Error()
			if firstErr == nil {
				firstErr = &LoadError{Table: res.TableName, Op: OpVerify, Err: err}
			}
		case currentCount != res.Target:
			res.Status = fmt.Sprintf("MISMATCH: %d/%d", currentCount, res.Target)
			if firstErr == nil {
				firstErr = &LoadError{Table: res.TableName, Op: OpVerify,
					Err: fmt.Errorf("expected %d rows, found %d", res.Target, currentCount)}
			}
		default:
			res.Status = StatusOK
		}
		verified = append(verified, res)
	}
	return verified, firstErr
}
