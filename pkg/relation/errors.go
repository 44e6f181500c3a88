package relation

import "errors"

// Sentinel errors for relation definition and resolution
var (
	// ErrMissingBaseConstraints is returned when a Definition has no Base strategy
	ErrMissingBaseConstraints = errors.New("relation definition missing base constraints")

	// ErrKeysRequired is returned when key-based defaults would run without
	// key names and no strategy replaces them
	ErrKeysRequired = errors.New("relation keys required")

	// ErrInvalidEntity is returned when a parent or related entity type
	// cannot be resolved to a queryable source
	ErrInvalidEntity = errors.New("invalid relation entity")

	// ErrInvalidIdentifier is returned for table or column names that are not
	// safe to interpolate into SQL
	ErrInvalidIdentifier = errors.New("invalid SQL identifier")
)

// IsMissingBaseConstraints checks if an error is ErrMissingBaseConstraints
func IsMissingBaseConstraints(err error) bool {
	return errors.Is(err, ErrMissingBaseConstraints)
}

// IsKeysRequired checks if an error is ErrKeysRequired
func IsKeysRequired(err error) bool {
	return errors.Is(err, ErrKeysRequired)
}

// IsInvalidEntity checks if an error is ErrInvalidEntity
func IsInvalidEntity(err error) bool {
	return errors.Is(err, ErrInvalidEntity)
}
