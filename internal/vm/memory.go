package vm

import (
	"time"

	"github.com/tliron/commonlog"
)

var gcLog = commonlog.GetLogger("lox.gc")

// HeapStats is a snapshot of the collector's bookkeeping.
type HeapStats struct {
	BytesAllocated int
	NextGC         int
	Objects        int
	Collections    int
	Freed          int // objects reclaimed over the VM's lifetime
}

// allocate charges size bytes, possibly collects, and then links obj into
// the object list. obj is linked after the collection, so it can never be
// swept by the collection its own allocation triggered.
func (vm *VM) allocate(obj Obj, size int) {
	vm.bytesAllocated += size
	if vm.settings.GC.Stress || vm.bytesAllocated > vm.nextGC {
		vm.collectGarbage()
	}

	h := obj.header()
	h.size = size
	h.next = vm.objects
	vm.objects = obj
	vm.objectCount++
}

func (vm *VM) collectGarbage() {
	start := time.Now()
	before := vm.bytesAllocated
	beforeObjects := vm.objectCount

	vm.markRoots()
	vm.traceReferences()
	interned := vm.strings.removeWhite()
	freed := vm.sweep()

	next := int(float64(vm.bytesAllocated) * vm.settings.GC.GrowthFactor)
	if next < vm.settings.GC.MinThreshold {
		next = vm.settings.GC.MinThreshold
	}
	vm.nextGC = next
	vm.collections++
	vm.freed += freed

	logf := gcLog.Debugf
	if vm.settings.GC.LogCollections {
		logf = gcLog.Infof
	}
	logf("[%s] gc #%d: %d -> %d bytes, %d -> %d objects (%d interned strings dropped), next at %d, took %s",
		vm.shortID(), vm.collections, before, vm.bytesAllocated,
		beforeObjects, vm.objectCount, interned, vm.nextGC, time.Since(start))
}

func (vm *VM) markRoots() {
	for i := 0; i < vm.sp; i++ {
		vm.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.Next {
		vm.markObject(uv)
	}
	vm.globals.mark(vm)
	for c := vm.compiler; c != nil; c = c.enclosing {
		vm.markObject(c.function)
	}
	if vm.initString != nil {
		vm.markObject(vm.initString)
	}
	for _, v := range vm.hostRoots {
		vm.markValue(v)
	}
}

func (vm *VM) markValue(v Value) {
	if v.Type == ValObj {
		vm.markObject(v.Obj)
	}
}

// markObject grays obj. obj must not be a typed nil pointer.
func (vm *VM) markObject(obj Obj) {
	if obj == nil {
		return
	}
	h := obj.header()
	if h.marked {
		return
	}
	h.marked = true
	vm.grayStack = append(vm.grayStack, obj)
}

func (vm *VM) traceReferences() {
	for len(vm.grayStack) > 0 {
		obj := vm.grayStack[len(vm.grayStack)-1]
		vm.grayStack = vm.grayStack[:len(vm.grayStack)-1]
		vm.blacken(obj)
	}
}

func (vm *VM) blacken(obj Obj) {
	switch o := obj.(type) {
	case *ObjString, *ObjNative:
		// no references
	case *ObjUpvalue:
		vm.markValue(o.Closed)
	case *ObjFunction:
		if o.Name != nil {
			vm.markObject(o.Name)
		}
		for _, c := range o.Chunk.Constants {
			vm.markValue(c)
		}
	case *ObjClosure:
		vm.markObject(o.Function)
		for _, uv := range o.Upvalues {
			// Still nil while OP_CLOSURE is capturing.
			if uv != nil {
				vm.markObject(uv)
			}
		}
	case *ObjClass:
		vm.markObject(o.Name)
		if o.Superclass != nil {
			vm.markObject(o.Superclass)
		}
		o.Methods.mark(vm)
	case *ObjInstance:
		vm.markObject(o.Class)
		o.Fields.mark(vm)
	case *ObjBoundMethod:
		vm.markValue(o.Receiver)
		vm.markObject(o.Method)
	}
}

// sweep unlinks every unmarked object and clears the mark on survivors.
func (vm *VM) sweep() int {
	freed := 0
	var previous Obj
	obj := vm.objects
	for obj != nil {
		h := obj.header()
		if h.marked {
			h.marked = false
			previous = obj
			obj = h.next
			continue
		}

		unreached := obj
		obj = h.next
		if previous == nil {
			vm.objects = obj
		} else {
			previous.header().next = obj
		}
		vm.free(unreached)
		freed++
	}
	return freed
}

// free releases the VM's hold on obj. Go's collector reclaims the memory
// once nothing else points at it.
func (vm *VM) free(obj Obj) {
	h := obj.header()
	vm.bytesAllocated -= h.size
	vm.objectCount--
	h.next = nil
}

// CollectGarbage forces a full collection.
func (vm *VM) CollectGarbage() {
	vm.collectGarbage()
}

// Stats reports heap bookkeeping.
func (vm *VM) Stats() HeapStats {
	return HeapStats{
		BytesAllocated: vm.bytesAllocated,
		NextGC:         vm.nextGC,
		Objects:        vm.objectCount,
		Collections:    vm.collections,
		Freed:          vm.freed,
	}
}
