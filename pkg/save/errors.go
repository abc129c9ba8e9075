package save

import (
	"github.com/calvinalkan/savekit/pkg/save/codec"
	"github.com/calvinalkan/savekit/pkg/save/record"
	"github.com/calvinalkan/savekit/pkg/save/slot"
	"github.com/calvinalkan/savekit/pkg/save/transform"
)

// Sentinel errors returned by [Manager] operations. They alias the errors of
// the component that detects the condition, so errors.Is works with either.
//
//	if errors.Is(err, save.ErrCorruptSave) {
//	    // offer to delete the slot or load a different one
//	}
var (
	// ErrInvalidKey indicates an empty encryption key.
	ErrInvalidKey = transform.ErrInvalidKey

	// ErrIO indicates the storage layer failed. The OS error is wrapped.
	ErrIO = slot.ErrIO

	// ErrNotFound indicates the slot has no file. [Manager.Load] never returns
	// it; [Manager.Delete] and [Manager.Inspect] do.
	ErrNotFound = slot.ErrNotFound

	// ErrInvalidSlot indicates a slot name that cannot be stored.
	ErrInvalidSlot = slot.ErrInvalidSlot

	// ErrCorruptSave indicates the file failed its integrity check, or was
	// written with a key this manager does not hold.
	ErrCorruptSave = record.ErrCorrupt

	// ErrUnsupportedSchema indicates the file's schema version cannot be read
	// by the configured codec.
	ErrUnsupportedSchema = codec.ErrUnsupportedSchema

	// ErrMalformedPayload indicates the payload does not match the requested
	// type, or the value could not be encoded.
	ErrMalformedPayload = codec.ErrMalformedPayload
)
