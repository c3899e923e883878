package listings

import (
	"encoding/json"
	"fmt"

	"marketplace/internal/errors"
)

// Directive is one client-submitted instruction for a listing image. The
// wire format is loosely typed (id present or absent, delete flag); we
// decide the variant once here at the boundary and the reconciler matches
// on the concrete types.
type Directive interface {
	isDirective()
}

// KeepImage repositions an existing image.
type KeepImage struct {
	ID       string
	Position int32
}

// DeleteImage removes an existing image and releases its blob.
type DeleteImage struct {
	ID string
}

// CreateImage adds a new image at Position from the upload identified by
// FileKey in the multipart manifest.
type CreateImage struct {
	Position int32
	FileKey  string
}

func (KeepImage) isDirective()   {}
func (DeleteImage) isDirective() {}
func (CreateImage) isDirective() {}

type rawImageUpdate struct {
	ID      *string `json:"id"`
	Order   *int32  `json:"order"`
	Delete  bool    `json:"delete"`
	FileKey *string `json:"file_key"`
}

// ParseDirectives decodes the image_updates JSON array into tagged
// directives and validates it against the upload manifest: every create must
// name an uploaded file, every uploaded file must be claimed by exactly one
// create, and no two directives may target the same position.
func ParseDirectives(raw []byte, uploads map[string]Upload) ([]Directive, error) {
	if len(raw) == 0 {
		// An empty batch with no uploads is a no-op, but attached files
		// that nothing references are an error, not a silent discard.
		if len(uploads) > 0 {
			return nil, errors.New(errors.ErrInvalidInput,
				"uploaded files were attached but image_updates is empty", nil)
		}
		return nil, nil
	}

	var updates []rawImageUpdate
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, errors.New(errors.ErrInvalidInput, "image_updates is not a valid JSON array", err)
	}

	directives := make([]Directive, 0, len(updates))
	usedKeys := make(map[string]bool, len(uploads))
	usedPositions := make(map[int32]bool, len(updates))

	for i, u := range updates {
		// delete wins over any order also present
		if u.Delete {
			if u.ID == nil {
				return nil, errors.New(errors.ErrInvalidInput,
					fmt.Sprintf("image_updates[%d]: delete requires an id", i), nil)
			}
			directives = append(directives, DeleteImage{ID: *u.ID})
			continue
		}

		if u.Order == nil {
			return nil, errors.New(errors.ErrInvalidInput,
				fmt.Sprintf("image_updates[%d]: order is required", i), nil)
		}
		if *u.Order < 1 {
			return nil, errors.New(errors.ErrInvalidInput,
				fmt.Sprintf("image_updates[%d]: order must be a positive integer", i), nil)
		}
		if usedPositions[*u.Order] {
			return nil, errors.New(errors.ErrInvalidInput,
				fmt.Sprintf("image_updates[%d]: duplicate order %d", i, *u.Order), nil)
		}
		usedPositions[*u.Order] = true

		if u.ID != nil {
			directives = append(directives, KeepImage{ID: *u.ID, Position: *u.Order})
			continue
		}

		if u.FileKey == nil || *u.FileKey == "" {
			return nil, errors.New(errors.ErrInvalidInput,
				fmt.Sprintf("image_updates[%d]: new images require a file_key", i), nil)
		}
		if _, ok := uploads[*u.FileKey]; !ok {
			return nil, errors.New(errors.ErrInvalidInput,
				fmt.Sprintf("image_updates[%d]: no uploaded file for key %q", i, *u.FileKey), nil)
		}
		if usedKeys[*u.FileKey] {
			return nil, errors.New(errors.ErrInvalidInput,
				fmt.Sprintf("image_updates[%d]: file key %q referenced twice", i, *u.FileKey), nil)
		}
		usedKeys[*u.FileKey] = true

		directives = append(directives, CreateImage{Position: *u.Order, FileKey: *u.FileKey})
	}

	for key := range uploads {
		if !usedKeys[key] {
			return nil, errors.New(errors.ErrInvalidInput,
				fmt.Sprintf("uploaded file %q is not referenced by any directive", key), nil)
		}
	}

	return directives, nil
}
