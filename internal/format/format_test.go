package format

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	ID           string   `json:"id"`
	ContainerKey string   `json:"containerKey"`
	OrderKey     *float64 `json:"orderKey,omitempty"`
	Depth        int      `json:"depth"`
	Tags         []string `json:"tags"`
	Done         bool     `json:"done"`
}

type rendered struct{ s string }

func (r rendered) Text() string { return r.s }

func TestWriteEDN(t *testing.T) {
	k := 150.5
	var b bytes.Buffer
	if err := WriteEDN(&b, sample{ID: "t-1", ContainerKey: "todo", OrderKey: &k, Depth: 2, Tags: []string{}}, false); err != nil {
		t.Fatalf("edn: %v", err)
	}
	got := strings.TrimSpace(b.String())
	want := `{:container-key "todo" :depth 2 :done false :id "t-1" :order-key 150.5 :tags []}`
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestWriteEDNWholeFloat(t *testing.T) {
	var b bytes.Buffer
	if err := WriteEDN(&b, map[string]any{"k": 1000.25, "n": 3}, true); err != nil {
		t.Fatalf("edn: %v", err)
	}
	if !strings.Contains(b.String(), ":k 1000.25") || !strings.Contains(b.String(), ":n 3") {
		t.Fatalf("unexpected output: %s", b.String())
	}
	if !strings.HasPrefix(b.String(), "{\n  :k") {
		t.Fatalf("expected pretty layout, got %q", b.String())
	}
}

func TestWriteDispatch(t *testing.T) {
	var b bytes.Buffer
	if err := Write(&b, rendered{"board"}, "text", false); err != nil {
		t.Fatalf("text: %v", err)
	}
	if b.String() != "board\n" {
		t.Fatalf("expected Text rendering, got %q", b.String())
	}
	b.Reset()
	if err := Write(&b, sample{ID: "x"}, "yaml", false); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(b.String(), "id: x") || !strings.Contains(b.String(), "containerKey: \"\"") {
		t.Fatalf("unexpected yaml: %s", b.String())
	}
	b.Reset()
	if err := Write(&b, sample{ID: "x"}, "", false); err != nil || !strings.HasPrefix(b.String(), `{"id":"x"`) {
		t.Fatalf("expected compact json, got %q (%v)", b.String(), err)
	}
	if err := Write(&b, nil, "xml", false); err == nil {
		t.Fatalf("expected unknown format error")
	}
}
