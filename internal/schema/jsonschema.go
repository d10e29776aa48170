package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaDoc is the JSON Schema (Draft 2020-12) for persisted schema
// documents. It documents the structure written by Save.
const SchemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://github.com/scry-dev/scry/schema.schema.json",
  "title": "Scry Callable Schema",
  "type": "object",
  "required": ["function", "module", "input", "config"],
  "properties": {
    "function": { "type": "string" },
    "module": { "type": "string" },
    "input": {
      "type": "object",
      "additionalProperties": { "$ref": "#/$defs/ParameterSpec" }
    },
    "output": { "$ref": "#/$defs/ReturnSpec" },
    "new": { "$ref": "#/$defs/Instantiation" },
    "relationships": {
      "type": "array",
      "items": { "$ref": "#/$defs/Relationship" }
    },
    "config": {
      "type": "object",
      "required": ["named_args", "fuzz", "mutation"],
      "properties": {
        "named_args": { "type": "boolean" },
        "fuzz": { "type": "boolean" },
        "mutation": { "type": "boolean" }
      }
    },
    "input_confidence": { "$ref": "#/$defs/Confidence" },
    "output_confidence": { "$ref": "#/$defs/Confidence" }
  },
  "$defs": {
    "Confidence": {
      "enum": ["none", "very-low", "low", "medium", "high"]
    },
    "ParameterSpec": {
      "type": "object",
      "required": ["type", "optional"],
      "properties": {
        "type": {
          "enum": ["string", "integer", "number", "boolean", "array",
                   "map", "object", "code-reference", "unknown"]
        },
        "optional": { "enum": ["required", "optional", "unknown"] },
        "position": { "type": "integer", "minimum": 0 },
        "min": { "type": "number" },
        "max": { "type": "number" },
        "matches": { "type": "string" },
        "enum": { "type": "array", "items": { "type": "string" } },
        "class": { "type": "string" },
        "semantic": { "type": "string" },
        "note": { "type": "string" }
      }
    },
    "ReturnSpec": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": { "type": "string" },
        "value": { "type": "string" },
        "class": { "type": "string" },
        "boolean_score": { "type": "integer" },
        "context_aware": { "type": "boolean" },
        "convention": {
          "enum": ["implicit-undef", "explicit-sentinel", "throws"]
        }
      }
    },
    "Instantiation": {
      "type": "object",
      "required": ["class"],
      "properties": {
        "class": { "type": "string" },
        "params": { "type": "array", "items": { "type": "string" } },
        "required": { "type": "array", "items": { "type": "string" } },
        "optional": { "type": "array", "items": { "type": "string" } },
        "external": { "type": "boolean" }
      }
    },
    "Relationship": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {
          "enum": ["mutually-exclusive", "required-group",
                   "conditional-requirement", "dependency",
                   "value-constraint", "value-conditional"]
        },
        "params": { "type": "array", "items": { "type": "string" } },
        "if": { "type": "string" },
        "then": { "type": "string" },
        "operator": { "type": "string" },
        "value": { "type": "string" }
      }
    }
  }
}`

// CorpusDoc is the JSON Schema for persisted corpus files.
const CorpusDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://github.com/scry-dev/scry/corpus.schema.json",
  "title": "Scry Fuzzing Corpus",
  "type": "object",
  "required": ["seed", "corpus", "bugs"],
  "properties": {
    "seed": {
      "type": "integer",
      "description": "Originating RNG seed, advisory only"
    },
    "corpus": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["input"],
        "properties": { "input": {} }
      }
    },
    "bugs": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["input", "error"],
        "properties": {
          "input": {},
          "error": { "type": "string" }
        }
      }
    }
  }
}`

// MutationReportDoc is the JSON Schema for mutation score reports.
const MutationReportDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://github.com/scry-dev/scry/mutation-report.schema.json",
  "title": "Scry Mutation Report",
  "type": "object",
  "required": ["score", "total", "killed", "survived"],
  "properties": {
    "score": { "type": "number", "minimum": 0, "maximum": 100 },
    "total": { "type": "integer", "minimum": 0 },
    "killed": { "type": "integer", "minimum": 0 },
    "survived": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "description", "line", "file"],
        "properties": {
          "id": { "type": "string" },
          "description": { "type": "string" },
          "line": { "type": "integer", "minimum": 1 },
          "file": { "type": "string" }
        }
      }
    }
  }
}`

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

// compileAll compiles the embedded schema documents once. The
// documents are constants, so a compile failure is programmer error
// surfaced on first use.
func compileAll() {
	compiled = make(map[string]*jsonschema.Schema, 3)
	c := jsonschema.NewCompiler()
	for name, doc := range map[string]string{
		"schema.schema.json":          SchemaDoc,
		"corpus.schema.json":          CorpusDoc,
		"mutation-report.schema.json": MutationReportDoc,
	} {
		parsed, err := jsonschema.UnmarshalJSON(strings.NewReader(doc))
		if err != nil {
			compileErr = fmt.Errorf("parsing embedded schema %s: %w", name, err)
			return
		}
		if err := c.AddResource(name, parsed); err != nil {
			compileErr = fmt.Errorf("registering embedded schema %s: %w", name, err)
			return
		}
	}
	for _, name := range []string{
		"schema.schema.json",
		"corpus.schema.json",
		"mutation-report.schema.json",
	} {
		sch, err := c.Compile(name)
		if err != nil {
			compileErr = fmt.Errorf("compiling embedded schema %s: %w", name, err)
			return
		}
		compiled[name] = sch
	}
}

// ValidateDocument validates the first JSON value in data against
// one of the embedded schema documents (SchemaDoc, CorpusDoc, or
// MutationReportDoc). Trailing text after the value is ignored.
func ValidateDocument(doc string, data []byte) error {
	compileOnce.Do(compileAll)
	if compileErr != nil {
		return compileErr
	}

	var name string
	switch doc {
	case SchemaDoc:
		name = "schema.schema.json"
	case CorpusDoc:
		name = "corpus.schema.json"
	case MutationReportDoc:
		name = "mutation-report.schema.json"
	default:
		return fmt.Errorf("unknown embedded schema document")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var instance any
	if err := dec.Decode(&instance); err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	return compiled[name].Validate(instance)
}
