package atomicx

// NoCopy may be embedded into structs which must not be copied
// after the first use. go vet's copylocks check reports violations.
type NoCopy struct{}

func (*NoCopy) Lock()   {}
func (*NoCopy) Unlock() {}

type noCopy = NoCopy
