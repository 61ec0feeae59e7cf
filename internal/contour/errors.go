package contour

import "errors"

var (
	// ErrConfig reports an unusable configuration: bad bounds, unknown
	// kernel, non-finite parameters, or a numerically singular fit.
	ErrConfig = errors.New("contour: invalid configuration")

	// ErrSingular reports that the interpolation system could not be solved.
	// It is always wrapped together with ErrConfig.
	ErrSingular = errors.New("contour: singular interpolation system")

	// ErrDegenerate reports a sample set that cannot support a surface:
	// fewer than three usable points, or all points collinear. Extract maps
	// it to an empty contour instead of failing.
	ErrDegenerate = errors.New("contour: degenerate sample set")
)
