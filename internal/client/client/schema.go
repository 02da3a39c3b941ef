package client

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://agrisync.local/schemas/"

// payloadSchemas holds the compiled response schemas. A payload that parses
// as JSON but violates its schema is reported as a decode failure before any
// field reaches the local store.
type payloadSchemas struct {
	history *jsonschema.Schema
	predict *jsonschema.Schema
}

func compileSchemas() (*payloadSchemas, error) {
	c := jsonschema.NewCompiler()
	names := []string{"history.json", "predict.json"}
	for _, name := range names {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", name, err)
		}
		if err := c.AddResource(schemaBaseURL+name, doc); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}

	history, err := c.Compile(schemaBaseURL + "history.json")
	if err != nil {
		return nil, fmt.Errorf("compile history schema: %w", err)
	}
	predict, err := c.Compile(schemaBaseURL + "predict.json")
	if err != nil {
		return nil, fmt.Errorf("compile predict schema: %w", err)
	}
	return &payloadSchemas{history: history, predict: predict}, nil
}

func validatePayload(schema *jsonschema.Schema, payload []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return err
	}
	return schema.Validate(inst)
}
