package analytics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultZThreshold is used when OutlierOptions.ZThreshold is zero.
const DefaultZThreshold = 3.0

// ErrInvalidThreshold is returned for negative or NaN z thresholds.
var ErrInvalidThreshold = errors.New("z threshold must be positive")

// OutlierOptions configures FilterOutliers.
type OutlierOptions struct {
	// GroupBy names the grouping key column. Empty means one global distribution.
	GroupBy string
	// ZThreshold is the exclusive upper bound on |value-mean|/stddev. Zero selects DefaultZThreshold.
	ZThreshold float64
}

// groupStats is the (mean, stddev) pair for one group. A NaN std marks a group
// too small to judge, which retains every row.
type groupStats struct {
	mean float64
	std  float64
}

// FilterOutliers returns the rows of f whose column value lies within
// ZThreshold sample standard deviations of its group mean.
//
// Statistics come from the non-null values of f itself. Rows with a null value
// are dropped. Groups with zero variance or fewer than two values keep all rows.
func FilterOutliers(f *Frame, column string, opts OutlierOptions) (*Frame, error) {
	z := opts.ZThreshold
	if z == 0 {
		z = DefaultZThreshold
	}
	if z < 0 || math.IsNaN(z) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, z)
	}

	valueCol, err := f.columnIndex(column)
	if err != nil {
		return nil, err
	}
	groupCol := -1
	if opts.GroupBy != "" {
		if groupCol, err = f.columnIndex(opts.GroupBy); err != nil {
			return nil, err
		}
	}

	values := make([]float64, len(f.rows))
	present := make([]bool, len(f.rows))
	keys := make([]any, len(f.rows))
	samples := make(map[any][]float64)

	for i, row := range f.rows {
		v, ok, err := numeric(row[valueCol])
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", column, i, err)
		}
		var key any
		if groupCol >= 0 {
			if key, err = groupKey(row[groupCol]); err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", opts.GroupBy, i, err)
			}
		}
		keys[i] = key
		if !ok {
			continue
		}
		values[i] = v
		present[i] = true
		samples[key] = append(samples[key], v)
	}

	byGroup := make(map[any]groupStats, len(samples))
	for key, xs := range samples {
		byGroup[key] = summarize(xs)
	}

	keep := make([]bool, len(f.rows))
	for i := range f.rows {
		if !present[i] {
			continue
		}
		keep[i] = within(values[i], byGroup[keys[i]], z)
	}
	return f.selectRows(keep), nil
}

func summarize(xs []float64) groupStats {
	if len(xs) < 2 {
		return groupStats{mean: xs[0], std: math.NaN()}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	return groupStats{mean: mean, std: std}
}

func within(v float64, gs groupStats, z float64) bool {
	if math.IsNaN(gs.std) || gs.std == 0 {
		return true
	}
	return math.Abs(v-gs.mean)/gs.std < z
}

// groupKey normalises a grouping cell into a comparable map key. Integer kinds
// collapse to int64 so 2024 and int64(2024) share a group.
func groupKey(v any) (any, error) {
	switch k := v.(type) {
	case nil, string, bool, int64, float64:
		return k, nil
	case int:
		return int64(k), nil
	case int32:
		return int64(k), nil
	case *float64:
		if k == nil {
			return nil, nil
		}
		return *k, nil
	case time.Time:
		// UTC drops the location pointer so equal instants compare equal.
		return k.UTC(), nil
	default:
		return nil, fmt.Errorf("unsupported group key type %T", v)
	}
}
