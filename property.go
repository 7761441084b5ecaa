package coreaudio

import (
	"fmt"
	"unsafe"
)

// PropertyInfo queries the native size and writability of a property without
// reading its value.
func (u *AudioUnit) PropertyInfo(sel PropertySelector, scope Scope, elem Element) (size uint32, writable bool, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.disposed {
		return 0, false, ErrDisposed
	}

	size, writable, status := u.eng.propertyInfo(u.inst, sel, scope, elem)
	if status != StatusOK {
		return 0, false, fmt.Errorf("property info for %d: %w", sel, statusErr(status))
	}

	return size, writable, nil
}

// getPropertyRaw reads up to *ioSize bytes of the property into data and
// updates *ioSize with the number of bytes actually written.
func (u *AudioUnit) getPropertyRaw(sel PropertySelector, scope Scope, elem Element, data unsafe.Pointer, ioSize *uint32) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.disposed {
		return ErrDisposed
	}

	if status := u.eng.getProperty(u.inst, sel, scope, elem, data, ioSize); status != StatusOK {
		return fmt.Errorf("get property %d: %w", sel, statusErr(status))
	}

	return nil
}

// setPropertyRaw writes size bytes from data to the property.
func (u *AudioUnit) setPropertyRaw(sel PropertySelector, scope Scope, elem Element, data unsafe.Pointer, size uint32) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.disposed {
		return ErrDisposed
	}

	if status := u.eng.setProperty(u.inst, sel, scope, elem, data, size); status != StatusOK {
		return fmt.Errorf("set property %d: %w", sel, statusErr(status))
	}

	return nil
}

// GetProperty reads the property at (sel, scope, elem) as a value of type T.
//
// The native side reports only a byte size for each property; binding the
// access to T at the call site is what keeps the many distinct property
// shapes type-safe. The reported size must equal unsafe.Sizeof(T) exactly,
// or the access fails with a SizeMismatchError before any bytes move.
func GetProperty[T any](u *AudioUnit, sel PropertySelector, scope Scope, elem Element) (T, error) {
	var value T

	size, _, err := u.PropertyInfo(sel, scope, elem)
	if err != nil {
		return value, err
	}

	want := uint32(unsafe.Sizeof(value))
	if size != want {
		return value, &SizeMismatchError{Selector: sel, Expected: want, Actual: size}
	}

	if err := u.getPropertyRaw(sel, scope, elem, unsafe.Pointer(&value), &size); err != nil {
		return value, err
	}

	return value, nil
}

// SetProperty writes value to the property at (sel, scope, elem).
//
// If the native side reports a fixed size for the property it must equal
// unsafe.Sizeof(T), or the write is rejected with a SizeMismatchError.
// Native rejections (for example setting an initialization-only property on
// a started unit) are surfaced as the mapped status error.
func SetProperty[T any](u *AudioUnit, sel PropertySelector, scope Scope, elem Element, value T) error {
	size := uint32(unsafe.Sizeof(value))

	if reported, _, err := u.PropertyInfo(sel, scope, elem); err == nil && reported != 0 && reported != size {
		return &SizeMismatchError{Selector: sel, Expected: size, Actual: reported}
	}

	return u.setPropertyRaw(sel, scope, elem, unsafe.Pointer(&value), size)
}
