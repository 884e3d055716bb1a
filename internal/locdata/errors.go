package locdata

import "errors"

// Sentinel errors for validation and persistence failures. Callers should
// match with errors.Is; wrapped messages carry the offending values.
var (
	// ErrDimensionColumnMismatch is returned when the requested dimensionality
	// disagrees with the supplied column mapping (2D with a z column, or 3D
	// without one), or when dim is not 2 or 3.
	ErrDimensionColumnMismatch = errors.New("dimension/column mismatch")

	// ErrUnsupportedFormat is returned for file format tags other than csv
	// and parquet. There is no fallback parser.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrLabelCountMismatch is returned when fewer channel labels are
	// supplied than there are distinct channels in the table.
	ErrLabelCountMismatch = errors.New("more channels than channel labels")

	// ErrInvalidBinCount is returned for zero, negative, or missing per-axis
	// bin counts.
	ErrInvalidBinCount = errors.New("invalid bin count")

	// ErrFileExists is returned by save operations when the destination
	// exists and overwrite was not requested. The existing file is left
	// untouched.
	ErrFileExists = errors.New("destination file exists")

	// ErrNotRendered is returned by operations that need histogram geometry
	// (pixel indexing, mask reconciliation) before Render has run.
	ErrNotRendered = errors.New("point cloud has not been rendered")

	// ErrMaskShapeMismatch is returned when a label mask's shape differs
	// from the histogram pixel grid.
	ErrMaskShapeMismatch = errors.New("mask shape does not match histogram grid")

	// ErrMask3DUnsupported is returned for mask reconciliation on 3D data.
	// Only 2D masks are supported.
	ErrMask3DUnsupported = errors.New("3D mask reconciliation is not supported")

	// ErrMissingMask is returned when reconciliation is requested but no
	// mask has been attached. Callers treat this as "no labels drawn" and
	// continue without a gt_label column.
	ErrMissingMask = errors.New("no label mask attached")

	// ErrEmptyTable is returned when rendering a point cloud with no rows;
	// axis extents cannot be derived from an empty table.
	ErrEmptyTable = errors.New("cannot render an empty table")
)
