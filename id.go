package leasing

import "github.com/stallworks/leasing/id"

// ID is the primary identifier type for all leasing entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
