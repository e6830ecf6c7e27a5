package core

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type recorder struct {
	events []string
}

type fakeModule struct {
	name string
	fail bool
	rec  *recorder
}

func (f fakeModule) Name() string { return f.name }

func (f fakeModule) Start(context.Context) error {
	if f.fail {
		return errors.New("boom")
	}
	f.rec.events = append(f.rec.events, "start "+f.name)
	return nil
}

func (f fakeModule) Stop(context.Context) {
	f.rec.events = append(f.rec.events, "stop "+f.name)
}

func TestManagerStartsInOrderAndStopsInReverse(t *testing.T) {
	rec := &recorder{}
	m := NewManager(fakeModule{name: "a", rec: rec}, nil)
	if err := m.Add(fakeModule{name: "b", rec: rec}); err != nil {
		t.Fatal(err)
	}
	if got := m.Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("names = %v", got)
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.Add(fakeModule{name: "late", rec: rec}); err == nil {
		t.Fatal("expected error adding after start")
	}
	if err := m.Start(ctx); err == nil {
		t.Fatal("expected error on second start")
	}
	m.Stop(ctx)

	want := []string{"start a", "start b", "stop b", "stop a"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
}

func TestManagerRollsBackOnFailure(t *testing.T) {
	rec := &recorder{}
	m := NewManager(
		fakeModule{name: "a", rec: rec},
		fakeModule{name: "b", rec: rec},
		fakeModule{name: "c", fail: true, rec: rec},
	)
	err := m.Start(context.Background())
	if err == nil {
		t.Fatal("expected start error")
	}

	want := []string{"start a", "start b", "stop b", "stop a"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}

	m.Stop(context.Background())
	if len(rec.events) != len(want) {
		t.Fatalf("stop after failed start touched modules: %v", rec.events)
	}
}
