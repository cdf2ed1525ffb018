// Command schema-exporter writes the OpenAPI 3.0 specification for the
// SousChef HTTP API. The spec is generated from the same request and
// response shapes the gateway serves, so frontend and API clients can
// codegen against a file that cannot drift silently.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

func main() {
	openapiOut := flag.String("openapi", "./specs/openapi.v3.yaml", "Output path for OpenAPI spec, '-' for stdout")
	format := flag.String("format", "yaml", "Output format: yaml or json")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL to advertise in the spec")
	flag.Parse()

	if *format != "yaml" && *format != "json" {
		log.Fatalf("Invalid format %q: expected yaml or json", *format)
	}

	doc := buildDocument(*serverURL)

	if *openapiOut == "-" {
		if err := writeDocument(os.Stdout, *format, doc); err != nil {
			log.Fatalf("Failed to write OpenAPI spec: %v", err)
		}
		return
	}

	log.Printf("Schema Exporter")
	log.Printf("  OpenAPI spec: %s", *openapiOut)
	log.Printf("  Format: %s", *format)

	if err := os.MkdirAll(filepath.Dir(*openapiOut), 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	out, err := os.Create(*openapiOut)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	err = writeDocument(out, *format, doc)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		log.Fatalf("Failed to write OpenAPI spec: %v", err)
	}

	log.Printf("  ✓ Generated OpenAPI spec: %s", *openapiOut)
	log.Printf("✅ Schema generation complete!")
}

// writeDocument renders the document in the requested format. YAML
// output carries the generation header so committed specs are
// recognizably machine-written.
func writeDocument(w io.Writer, format string, doc OpenAPIDocument) error {
	if format == "json" {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	}

	yamlData, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	header := []byte(strings.TrimSpace(`
# OpenAPI 3.0 Specification for the SousChef API
# Generated by schema-exporter tool
# DO NOT EDIT MANUALLY - This file is auto-generated
`) + "\n\n")

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(yamlData); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}
