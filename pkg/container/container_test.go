package container

import (
	"errors"
	"strings"
	"testing"
)

type store interface{ Name() string }

type memStore struct{ name string }

func (m *memStore) Name() string { return m.name }

type service struct{ s store }

func TestContainer_ResolvesInterfaceThroughImplementation(t *testing.T) {
	c := New()
	calls := 0
	c.MustProvide(func() *memStore { calls++; return &memStore{name: "records"} })
	c.MustProvide(func(s store) *service { return &service{s: s} })

	svc, err := Get[*service](c)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if svc.s.Name() != "records" {
		t.Errorf("store = %q", svc.s.Name())
	}
	if _, err := Get[*memStore](c); err != nil || calls != 1 {
		t.Errorf("singleton built %d times, err %v", calls, err)
	}
}

func TestContainer_Errors(t *testing.T) {
	c := New()
	if err := c.Provide("not a func", true); err == nil {
		t.Error("non-function provider accepted")
	}
	c.MustProvide(func() (*memStore, error) { return nil, errors.New("dial failed") })
	if _, err := Get[*memStore](c); err == nil || !strings.Contains(err.Error(), "dial failed") {
		t.Errorf("err = %v", err)
	}
	if _, err := Get[*service](c); err == nil {
		t.Error("missing provider resolved")
	}
	if err := c.Provide(func() *memStore { return nil }, true); err == nil {
		t.Error("duplicate provider accepted")
	}
	err := c.Invoke(func(s *memStore) error { return nil })
	if err == nil {
		t.Error("Invoke ignored provider error")
	}
}

type fileStore struct{}

func (fileStore) Name() string { return "files" }

type a struct{}
type b struct{}

func TestContainer_AmbiguousInterface(t *testing.T) {
	c := New()
	c.MustProvide(func() *memStore { return &memStore{} })
	c.MustProvide(func() fileStore { return fileStore{} })
	_, err := Get[store](c)
	if err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("err = %v", err)
	}
}

func TestContainer_Cycle(t *testing.T) {
	c := New()
	c.MustProvide(func(*b) *a { return &a{} })
	c.MustProvide(func(*a) *b { return &b{} })
	_, err := Get[*a](c)
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("err = %v", err)
	}
}

func TestContainer_SharedDependencyIsNotACycle(t *testing.T) {
	c := New()
	c.MustProvide(func() *memStore { return &memStore{name: "x"} })
	c.MustProvide(func(s *memStore, st store) *service {
		if s != st {
			t.Error("concrete and interface lookups built different instances")
		}
		return &service{s: st}
	})
	if err := c.Invoke(func(*service, *memStore) {}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
}
