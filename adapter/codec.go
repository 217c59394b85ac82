package adapter

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v3"
)

// Codec serializes a collection snapshot.
type Codec interface {
	// Name identifies the codec in configuration.
	Name() string
	// Ext is the file extension, including the dot.
	Ext() string
	Marshal(docs []map[string]any) ([]byte, error)
	Unmarshal(data []byte) ([]map[string]any, error)
}

var (
	JSON Codec = jsonCodec{}
	BSON Codec = bsonCodec{}
	YAML Codec = yamlCodec{}
)

// CodecByName returns the codec registered under name. An empty name
// selects JSON.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "json", "":
		return JSON, nil
	case "bson":
		return BSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return nil, fmt.Errorf("unknown codec: %q (supported: json, bson, yaml)", name)
	}
}

func nonNil(docs []map[string]any) []map[string]any {
	if docs == nil {
		return []map[string]any{}
	}
	return docs
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) Ext() string  { return ".json" }

func (jsonCodec) Marshal(docs []map[string]any) ([]byte, error) {
	return json.Marshal(nonNil(docs))
}

func (jsonCodec) Unmarshal(data []byte) ([]map[string]any, error) {
	var docs []map[string]any
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, err
	}
	return nonNil(docs), nil
}

// bsonCodec stores the snapshot under a "documents" key, since a BSON
// value at the top level must be a document.
type bsonCodec struct{}

type bsonSnapshot struct {
	Documents []map[string]any `bson:"documents"`
}

func (bsonCodec) Name() string { return "bson" }
func (bsonCodec) Ext() string  { return ".bson" }

func (bsonCodec) Marshal(docs []map[string]any) ([]byte, error) {
	return bson.Marshal(bsonSnapshot{Documents: nonNil(docs)})
}

func (bsonCodec) Unmarshal(data []byte) ([]map[string]any, error) {
	var snap bsonSnapshot
	if err := bson.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	docs := nonNil(snap.Documents)
	for i, d := range docs {
		docs[i] = normalize(d).(map[string]any)
	}
	return docs, nil
}

type yamlCodec struct{}

func (yamlCodec) Name() string { return "yaml" }
func (yamlCodec) Ext() string  { return ".yaml" }

func (yamlCodec) Marshal(docs []map[string]any) ([]byte, error) {
	return yaml.Marshal(nonNil(docs))
}

func (yamlCodec) Unmarshal(data []byte) ([]map[string]any, error) {
	var docs []map[string]any
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, err
	}
	docs = nonNil(docs)
	for i, d := range docs {
		docs[i] = normalize(d).(map[string]any)
	}
	return docs, nil
}

// normalize converts decoder-specific container types into the plain
// map[string]any and []any shapes used by the query engine, and integers
// into float64 so every codec yields the same numbers as JSON.
func normalize(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case bson.M:
		return normalize(map[string]any(t))
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = normalize(e)
		}
		return m
	case bson.A:
		return normalize([]any(t))
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	}
	return v
}
