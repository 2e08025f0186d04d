package store

import "errors"

// ErrNotFound reports an update, delete or lookup that matched no product.
var ErrNotFound = errors.New("product not found")

// ErrSchemaVersion reports a database written by an incompatible schema.
var ErrSchemaVersion = errors.New("unsupported schema version")
