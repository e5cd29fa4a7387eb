package resource

import (
	"testing"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

func TestUnifiedTable_Basic(t *testing.T) {
	table := NewTable()

	h := table.Insert(1, "test")
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := table.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if _, ok = table.GetTyped(h, 1); !ok {
		t.Fatal("GetTyped with correct type failed")
	}
	if _, ok = table.GetTyped(h, 2); ok {
		t.Fatal("GetTyped with wrong type should fail")
	}

	val, ok = table.Remove(h)
	if !ok {
		t.Fatal("Remove failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
}

func TestUnifiedTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	h := table.Insert(1, "test")
	if len(obs.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventCreated {
		t.Fatal("Expected EventCreated")
	}
	if obs.events[0].Handle != h || obs.events[0].TypeID != 1 {
		t.Fatal("Wrong handle or type in event")
	}

	table.Remove(h)
	if len(obs.events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(obs.events))
	}
	if obs.events[1].Type != EventDropped {
		t.Fatal("Expected EventDropped")
	}
	if obs.events[1].TypeID != 1 {
		t.Fatalf("Expected dropped TypeID 1, got %d", obs.events[1].TypeID)
	}

	table.Unsubscribe(obs)
	table.Insert(1, "test2")
	if len(obs.events) != 2 {
		t.Fatal("Should not receive events after Unsubscribe")
	}
}

type dropLog struct {
	order *[]string
	name  string
	count int
}

func (d *dropLog) Drop() {
	d.count++
	if d.order != nil {
		*d.order = append(*d.order, d.name)
	}
}

func TestUnifiedTable_Clear(t *testing.T) {
	table := NewTable()
	var order []string

	a := &dropLog{name: "a", order: &order}
	b := &dropLog{name: "b", order: &order}
	c := &dropLog{name: "c", order: &order}
	table.Insert(1, a)
	table.Insert(2, b)
	table.Insert(1, c)

	if table.Len() != 3 {
		t.Fatal("Expected Len() == 3")
	}

	if n := table.Clear(); n != 3 {
		t.Fatalf("Clear() = %d, want 3", n)
	}
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Clear")
	}

	want := []string{"c", "b", "a"}
	if len(order) != len(want) {
		t.Fatalf("drop order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("drop order = %v, want %v", order, want)
		}
	}

	if n := table.Clear(); n != 0 {
		t.Fatalf("second Clear() = %d, want 0", n)
	}
}

func TestUnifiedTable_ClearAfterSlotReuse(t *testing.T) {
	table := NewTable()
	var order []string

	a := table.Insert(1, &dropLog{name: "a", order: &order})
	table.Insert(1, &dropLog{name: "b", order: &order})
	table.Insert(1, &dropLog{name: "c", order: &order})
	table.Remove(a)
	if h := table.Insert(1, &dropLog{name: "d", order: &order}); h != a {
		t.Fatalf("Insert reused handle %d, want %d", h, a)
	}

	table.Clear()

	want := []string{"d", "c", "b"}
	if len(order) != len(want) {
		t.Fatalf("drop order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("drop order = %v, want %v", order, want)
		}
	}
}

func TestUnifiedTable_Close(t *testing.T) {
	table := NewTable()
	d := &dropLog{}

	table.Insert(1, d)
	table.Insert(1, "b")

	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if d.count != 1 {
		t.Fatalf("Close dropped tracked value %d times, want 1", d.count)
	}
	if err := table.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if d.count != 1 {
		t.Fatal("second Close dropped again")
	}

	if h := table.Insert(1, "c"); h != 0 {
		t.Fatal("Expected Insert to fail after Close")
	}
}

func TestUnifiedTable_RemoveDoesNotDrop(t *testing.T) {
	table := NewTable()
	d := &dropLog{}

	h := table.Insert(1, d)
	table.Remove(h)

	if d.count != 0 {
		t.Fatalf("Remove called Drop %d times", d.count)
	}
}

func TestUnifiedTable_DropperInterface(t *testing.T) {
	table := NewTable()
	d := &dropLog{}

	h := table.Insert(1, d)
	if !table.Drop(h) {
		t.Fatal("Drop should report a live handle")
	}
	if table.Drop(h) {
		t.Fatal("second Drop should report false")
	}

	if d.count != 1 {
		t.Fatalf("Expected Drop() to be called once, called %d times", d.count)
	}
}

func TestObserverFunc(t *testing.T) {
	table := NewTable()
	var got []EventType
	table.Subscribe(ObserverFunc(func(e Event) {
		got = append(got, e.Type)
	}))

	h := table.Insert(1, "x")
	table.Drop(h)
	table.Clear()

	want := []EventType{EventCreated, EventDropped, EventCleared}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
	if EventCleared.String() != "cleared" {
		t.Fatalf("String() = %q", EventCleared.String())
	}
}
