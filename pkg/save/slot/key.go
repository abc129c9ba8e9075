package slot

import (
	"fmt"
	"strings"
	"unicode"
)

// Slot is one of the well-known save slots.
type Slot uint8

// Well-known slots. Their identifiers are part of the on-disk file names;
// never rename them.
const (
	AutoSave Slot = iota + 1
	QuickSave
	Slot1
	Slot2
	Slot3
)

var slotNames = map[Slot]string{
	AutoSave:  "AutoSave",
	QuickSave: "QuickSave",
	Slot1:     "Slot1",
	Slot2:     "Slot2",
	Slot3:     "Slot3",
}

// Slots returns the well-known slots in declaration order.
func Slots() []Slot {
	return []Slot{AutoSave, QuickSave, Slot1, Slot2, Slot3}
}

// String returns the slot identifier, for example "QuickSave".
func (s Slot) String() string {
	if name, ok := slotNames[s]; ok {
		return name
	}

	return fmt.Sprintf("Slot(%d)", uint8(s))
}

// Key returns the slot key for s.
func (s Slot) Key() Key {
	return Key{slot: s}
}

// ParseSlot parses a well-known slot identifier (case-insensitive).
func ParseSlot(s string) (Slot, bool) {
	for _, slot := range Slots() {
		if strings.EqualFold(slot.String(), s) {
			return slot, true
		}
	}

	return 0, false
}

// Key identifies a save file: a well-known [Slot] or a free-form name.
//
// A Key's identity is the file name it renders to. Under the default prefix,
// QuickSave.Key() and Named("SaveFile_QuickSave") address the same file.
//
// The zero Key is invalid.
type Key struct {
	slot Slot
	name string
}

// Named returns a key for a free-form save name such as "profile" or
// "campaign-2". Validity is checked when the key is used.
func Named(name string) Key {
	return Key{name: name}
}

// Slot returns the well-known slot and true, or false for named keys.
func (k Key) Slot() (Slot, bool) {
	return k.slot, k.slot != 0
}

// String returns a human readable form of the key for logs.
func (k Key) String() string {
	if k.slot != 0 {
		return k.slot.String()
	}

	return k.name
}

// render returns the file stem for k under prefix.
func (k Key) render(prefix string) (string, error) {
	if k.slot != 0 {
		if _, ok := slotNames[k.slot]; !ok {
			return "", fmt.Errorf("%w: unknown slot %d", ErrInvalidSlot, uint8(k.slot))
		}

		return prefix + k.slot.String(), nil
	}

	err := validateName(k.name)
	if err != nil {
		return "", err
	}

	return k.name, nil
}

// validateName rejects names that could escape the store root, collide with
// temp files, or confuse the filesystem.
func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidSlot)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: name %q starts with a dot", ErrInvalidSlot, name)
	case strings.ContainsAny(name, `/\:`):
		return fmt.Errorf("%w: name %q contains a path separator", ErrInvalidSlot, name)
	}

	for _, r := range name {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("%w: name %q contains a control character", ErrInvalidSlot, name)
		}
	}

	return nil
}
