package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestBuildDocument(t *testing.T) {
	doc := buildDocument("http://localhost:8080")

	if doc.OpenAPI != "3.0.3" {
		t.Errorf("Invalid openapi version: %s", doc.OpenAPI)
	}
	if doc.Info.Title != "SousChef API" {
		t.Errorf("Invalid title: %s", doc.Info.Title)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://localhost:8080" {
		t.Errorf("Server URL not propagated: %+v", doc.Servers)
	}

	wantPaths := []string{
		"/",
		"/healthz",
		"/metrics",
		"/api/chat",
		"/api/analyze-ingredients",
		"/api/search-recipes",
		"/api/shopping-list",
		"/ws/chat",
	}
	for _, path := range wantPaths {
		if _, ok := doc.Paths[path]; !ok {
			t.Errorf("Missing path: %s", path)
		}
	}

	chat := doc.Paths["/api/chat"]
	if chat.Post == nil {
		t.Fatal("POST /api/chat missing")
	}
	if chat.Post.RequestBody == nil || !chat.Post.RequestBody.Required {
		t.Error("POST /api/chat request body should be required")
	}
	body := chat.Post.RequestBody.Content["application/json"].Schema
	if body.Ref != "#/components/schemas/ChatRequest" {
		t.Errorf("Unexpected chat request schema ref: %s", body.Ref)
	}

	analyze := doc.Paths["/api/analyze-ingredients"]
	if analyze.Post == nil {
		t.Fatal("POST /api/analyze-ingredients missing")
	}
	if _, ok := analyze.Post.RequestBody.Content["multipart/form-data"]; !ok {
		t.Error("Analyze endpoint should accept multipart uploads")
	}

	queryType := doc.Components.Schemas["ChatResponse"].Properties["query_type"]
	wantEnum := []string{"recipe_search", "cooking_question", "ingredient_recognition"}
	if diff := cmp.Diff(wantEnum, queryType.Enum); diff != "" {
		t.Errorf("query_type enum mismatch (-want +got):\n%s", diff)
	}
}

// TestSchemaRefsResolve walks every $ref in the document and verifies it
// points at a defined component schema.
func TestSchemaRefsResolve(t *testing.T) {
	doc := buildDocument("http://localhost:8080")

	var refs []string
	var collect func(s SchemaObject)
	collect = func(s SchemaObject) {
		if s.Ref != "" {
			refs = append(refs, s.Ref)
		}
		for _, prop := range s.Properties {
			collect(prop)
		}
		if s.Items != nil {
			collect(*s.Items)
		}
	}

	collectOp := func(op *Operation) {
		if op == nil {
			return
		}
		if op.RequestBody != nil {
			for _, media := range op.RequestBody.Content {
				collect(media.Schema)
			}
		}
		for _, resp := range op.Responses {
			for _, media := range resp.Content {
				collect(media.Schema)
			}
		}
	}

	for _, item := range doc.Paths {
		collectOp(item.Get)
		collectOp(item.Post)
	}
	for _, schema := range doc.Components.Schemas {
		collect(schema)
	}

	if len(refs) == 0 {
		t.Fatal("No schema refs found in document")
	}
	for _, r := range refs {
		name := strings.TrimPrefix(r, "#/components/schemas/")
		if name == r {
			t.Errorf("Ref does not use components/schemas prefix: %s", r)
			continue
		}
		if _, ok := doc.Components.Schemas[name]; !ok {
			t.Errorf("Ref points at undefined schema: %s", r)
		}
	}
}

func TestWriteDocumentYAML(t *testing.T) {
	doc := buildDocument("http://localhost:8080")

	var buf bytes.Buffer
	if err := writeDocument(&buf, "yaml", doc); err != nil {
		t.Fatalf("Failed to write YAML: %v", err)
	}

	if !strings.HasPrefix(buf.String(), "# OpenAPI 3.0 Specification") {
		t.Error("Generated YAML missing header comment")
	}

	var decoded OpenAPIDocument
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Generated YAML does not parse: %v", err)
	}
	if diff := cmp.Diff(doc, decoded); diff != "" {
		t.Errorf("YAML round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteDocumentJSON(t *testing.T) {
	doc := buildDocument("http://localhost:9000")

	var buf bytes.Buffer
	if err := writeDocument(&buf, "json", doc); err != nil {
		t.Fatalf("Failed to write JSON: %v", err)
	}

	var decoded OpenAPIDocument
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Generated JSON does not parse: %v", err)
	}
	if diff := cmp.Diff(doc, decoded); diff != "" {
		t.Errorf("JSON round trip mismatch (-want +got):\n%s", diff)
	}
}
