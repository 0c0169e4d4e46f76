package draft

import (
	"errors"
	"fmt"

	"github.com/effectus/schemadraft/schema"
)

var (
	// ErrDuplicateUID matches any DuplicateUIDError
	ErrDuplicateUID = errors.New("schema uid already exists")

	// ErrInvalidUID is returned when a schema is created without a uid
	ErrInvalidUID = errors.New("schema uid is required")

	// ErrInvalidAttribute is returned when an attribute has no name
	ErrInvalidAttribute = errors.New("attribute name is required")

	// ErrStoreClosed is returned by Dispatch once the writer has stopped
	ErrStoreClosed = errors.New("draft store closed")
)

// DuplicateUIDError rejects a CreateSchema whose uid is already taken in
// the target catalog
type DuplicateUIDError struct {
	Kind schema.Kind
	UID  string
}

func (e *DuplicateUIDError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.UID, ErrDuplicateUID)
}

// Is lets errors.Is match ErrDuplicateUID
func (e *DuplicateUIDError) Is(target error) bool {
	return target == ErrDuplicateUID
}
