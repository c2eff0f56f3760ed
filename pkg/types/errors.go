package types

import (
	"errors"
	"fmt"
)

// Error kinds. Every catalog error wraps exactly one of these, so callers can
// branch on the kind with errors.Is without knowing the entity involved.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrConflict         = errors.New("conflict")
	ErrInvalidReference = errors.New("invalid reference")
	ErrNotInCollection  = errors.New("not in collection")
)

// Entity errors.
var (
	ErrProjectNotFound          = fmt.Errorf("project %w", ErrNotFound)
	ErrSampleNotFound           = fmt.Errorf("sample %w", ErrNotFound)
	ErrSchemaNotFound           = fmt.Errorf("schema %w", ErrNotFound)
	ErrSchemaGroupNotFound      = fmt.Errorf("schema group %w", ErrNotFound)
	ErrViewNotFound             = fmt.Errorf("view %w", ErrNotFound)
	ErrNamespaceNotFound        = fmt.Errorf("namespace %w", ErrNotFound)
	ErrProjectAlreadyExists     = fmt.Errorf("project %w", ErrAlreadyExists)
	ErrSchemaAlreadyExists      = fmt.Errorf("schema %w", ErrAlreadyExists)
	ErrSchemaGroupAlreadyExists = fmt.Errorf("schema group %w", ErrAlreadyExists)
	ErrViewAlreadyExists        = fmt.Errorf("view %w", ErrAlreadyExists)
	ErrSampleAlreadyInView      = fmt.Errorf("sample already in view: %w", ErrConflict)
	ErrSchemaAlreadyInGroup     = fmt.Errorf("schema already in group: %w", ErrConflict)
	ErrProjectAlreadyFavorite   = fmt.Errorf("project already in favorites: %w", ErrConflict)
	ErrInvalidRegistryPath      = fmt.Errorf("malformed registry path: %w", ErrInvalidReference)
	ErrUnknownProject           = fmt.Errorf("referenced project does not exist: %w", ErrInvalidReference)
	ErrUnknownSample            = fmt.Errorf("referenced sample does not exist: %w", ErrInvalidReference)
	ErrUnknownSchema            = fmt.Errorf("referenced schema does not exist: %w", ErrInvalidReference)
	ErrSampleNotInView          = fmt.Errorf("sample not in view: %w", ErrNotInCollection)
	ErrSchemaNotInGroup         = fmt.Errorf("schema not in group: %w", ErrNotInCollection)
	ErrProjectNotFavorite       = fmt.Errorf("project not in favorites: %w", ErrNotInCollection)
)

// Input validation errors.
var (
	ErrInvalidName    = errors.New("name must not be empty")
	ErrInvalidData    = errors.New("invalid entity data")
	ErrInvalidOrderBy = errors.New("invalid order_by value")
	ErrDetached       = errors.New("backend is detached")
	ErrAttached       = errors.New("backend is already attached")
)
