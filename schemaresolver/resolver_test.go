package schemaresolver

import (
	"context"
	"testing"

	"github.com/xmletl/core/opener"
	"github.com/xmletl/core/value"
)

type fakeFetcher struct {
	calls int
	data  []byte
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

const bookXSD = `<schema xmlns="http://www.w3.org/2001/XMLSchema">
	<element name="book">
		<complexType>
			<sequence>
				<element name="title" type="string" minOccurs="1"/>
				<element name="year" type="int" minOccurs="0"/>
				<element name="tags" type="string" minOccurs="0" maxOccurs="unbounded"/>
				<element name="author">
					<complexType>
						<sequence>
							<element name="name" type="string"/>
						</sequence>
					</complexType>
				</element>
			</sequence>
		</complexType>
	</element>
</schema>`

func TestResolveParsesAndCachesSchema(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte(bookXSD)}
	r := New(fetcher)

	doc := `<catalog schemaLocation="http://example.com/book.xsd"><book><title>T</title></book></catalog>`
	op := opener.InMemorySource{SourceName: "fixture", Data: []byte(doc)}

	schema, ok, err := r.Resolve(context.Background(), op)
	if err != nil || !ok {
		t.Fatalf("Resolve: ok=%v err=%v", ok, err)
	}
	if schema.RootElementName != "book" {
		t.Fatalf("RootElementName = %q", schema.RootElementName)
	}
	title, ok := schema.Fields.Get("title")
	if !ok || title.Type.Kind != value.Str || title.Nullable {
		t.Fatalf("title field = %+v, ok=%v", title, ok)
	}
	tags, ok := schema.Fields.Get("tags")
	if !ok || !tags.Repeating {
		t.Fatalf("tags field = %+v, want Repeating=true", tags)
	}
	author, ok := schema.Fields.Get("author")
	if !ok || author.Type.Kind != value.StructKind {
		t.Fatalf("author field = %+v, want StructKind", author)
	}
	if _, ok := author.Type.Fields.Get("name"); !ok {
		t.Fatalf("author.name field missing")
	}

	// Second resolve for the same URL must hit the cache.
	if _, _, err := r.Resolve(context.Background(), op); err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetch called %d times, want 1 (cache hit expected)", fetcher.calls)
	}
}

func TestResolveNoSchemaLocationYieldsNone(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte(bookXSD)}
	r := New(fetcher)
	doc := `<catalog><book><title>T</title></book></catalog>`
	op := opener.InMemorySource{SourceName: "fixture", Data: []byte(doc)}

	schema, ok, err := r.Resolve(context.Background(), op)
	if err != nil || ok || schema != nil {
		t.Fatalf("expected (nil, false, nil), got (%v, %v, %v)", schema, ok, err)
	}
}

func TestResolveFetchFailureYieldsNone(t *testing.T) {
	fetcher := &fakeFetcher{err: errBoom}
	r := New(fetcher)
	doc := `<catalog schemaLocation="http://example.com/book.xsd"><book/></catalog>`
	op := opener.InMemorySource{SourceName: "fixture", Data: []byte(doc)}

	schema, ok, err := r.Resolve(context.Background(), op)
	if err != nil || ok || schema != nil {
		t.Fatalf("expected (nil, false, nil) on fetch failure, got (%v, %v, %v)", schema, ok, err)
	}
}

func TestDisabledResolverYieldsNone(t *testing.T) {
	r := New(nil)
	doc := `<catalog schemaLocation="http://example.com/book.xsd"><book/></catalog>`
	op := opener.InMemorySource{SourceName: "fixture", Data: []byte(doc)}

	schema, ok, err := r.Resolve(context.Background(), op)
	if err != nil || ok || schema != nil {
		t.Fatalf("expected (nil, false, nil) for disabled resolver, got (%v, %v, %v)", schema, ok, err)
	}
}

var errBoom = &boomErr{}

type boomErr struct{}

func (*boomErr) Error() string { return "boom" }
