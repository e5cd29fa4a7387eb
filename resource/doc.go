// Package resource tracks ownership of native handles.
//
// A Runtime owns every Module and Value it produces. The owner records each
// child in a table so that releasing the owner can release whatever the
// caller left behind.
//
// # Handle Table
//
// The UnifiedTable maps small integer handles to Go values:
//
//	table := resource.NewTable()
//
//	// Track a child, get a handle
//	h := table.Insert(typeID, child)
//
//	// Child released itself: forget it without dropping
//	table.Remove(h)
//
//	// Owner closing: drop everything still tracked, newest first
//	table.Clear()
//
// Values implementing Dropper have Drop called when the table drops them.
// Dropping a handle twice is a no-op.
//
// # Type Safety
//
// Each tracked kind gets its own type ID, and GetTyped refuses a handle
// that was inserted under a different one.
//
// # Observers
//
// Observers see every insert and drop:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//		log.Printf("%s %d", e.Type, e.Handle)
//	}))
package resource
