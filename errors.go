package gopager

import "errors"

var (
	// ErrConfiguration is returned when pagination options cannot describe a
	// query: no data source, an unknown relation or an invalid column reference.
	// It is always returned before the data source is touched.
	ErrConfiguration = errors.New("invalid pagination configuration")

	// ErrUnsupportedKeyType is returned when a primary key value has no
	// canonical string form.
	ErrUnsupportedKeyType = errors.New("unsupported primary key type")
)
