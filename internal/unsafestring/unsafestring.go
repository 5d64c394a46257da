// Package unsafestring avoids the copy a plain []byte(s) conversion
// would cost on every dictionary lookup keyed by a string.
package unsafestring

import (
	"unsafe"
)

// ToBytes returns a byte slice referring to the contents of s, for
// handing a string key to the double array's []byte-only search path
// without copying it. The result must never be written to.
func ToBytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
