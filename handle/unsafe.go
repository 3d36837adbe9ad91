package handle

import (
	"reflect"
	"unsafe"
)

// emptyInterface is the header for an interface{} value.
type emptyInterface struct {
	typ   unsafe.Pointer
	value *rtype
}

// rtype mirrors the leading fields of the runtime type descriptor.
type rtype struct {
	size    uintptr
	ptrdata uintptr
}

// ptrdataOf reports the number of leading bytes of T that can contain
// pointers. Zero means T is pointer-free and safe to place in memory
// the garbage collector does not scan.
func ptrdataOf[T any]() uintptr {
	t := reflect.TypeOf((*T)(nil)).Elem()
	typ := (*emptyInterface)(unsafe.Pointer(&t))
	return typ.value.ptrdata
}

func sizeOf[T any]() uintptr {
	var v T
	return unsafe.Sizeof(v)
}
