package artifact

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	content := []byte("diagram-bytes")
	id, err := s.Put(ctx, content, "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if id != ContentID(content) {
		t.Fatalf("id = %s, want content hash", id)
	}

	got, mime, err := s.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) || mime != "image/png" {
		t.Fatalf("got %q (%s)", got, mime)
	}
}

func TestMemoryStorePutIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id1, err := s.Put(ctx, []byte("same"), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := s.Put(ctx, []byte("same"), "image/jpeg")
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("ids differ: %s vs %s", id1, id2)
	}
	// First write wins; the artifact is immutable.
	_, mime, err := s.Get(ctx, id1)
	if err != nil || mime != "image/png" {
		t.Fatalf("mime = %s, err = %v", mime, err)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreRejectsEmptyContent(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Put(context.Background(), nil, "image/png"); err == nil {
		t.Fatal("want error for empty content")
	}
}

func TestMemoryStoreCopiesContent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	content := []byte("original")
	id, err := s.Put(ctx, content, "image/png")
	if err != nil {
		t.Fatal(err)
	}
	content[0] = 'X'
	got, _, err := s.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "original" {
		t.Fatalf("stored content was aliased: %q", got)
	}
}
