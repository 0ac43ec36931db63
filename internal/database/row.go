package database

import "github.com/koustreak/pgmeta/internal/errs"

// CollectRows scans every row of rows with scan and returns the results.
//
// The returned slice is always non-nil (empty slice on zero rows). On any
// error no partial result is returned. CollectRows always closes rows;
// callers do not need to call Close().
func CollectRows[T any](rows Rows, scan func(Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	result := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			if errs.KindOf(err) == errs.ErrKindUnknown {
				err = errs.Wrap(errs.ErrKindQueryFailed, "failed to scan row", err)
			}
			return nil, err
		}
		result = append(result, v)
	}

	if err := rows.Err(); err != nil {
		if errs.KindOf(err) == errs.ErrKindUnknown {
			err = errs.Wrap(errs.ErrKindQueryFailed, "error during row iteration", err)
		}
		return nil, err
	}

	return result, nil
}
