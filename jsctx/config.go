package jsctx

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// ResourceConfig is the resource-limit document a Context accepts as JSON or
// YAML: a coarse memory-estimate ceiling in bytes (see vm.VM.memoryEstimate),
// a wall-clock budget in seconds, and an optional minimum engine version gate.
type ResourceConfig struct {
	MemoryLimitBytes int     `json:"memory_limit"`
	TimeLimitSecs    float64 `json:"time_limit"`
	EngineVersion    string  `json:"engine_version,omitempty"`
}

const resourceConfigSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"memory_limit": {"type": "integer", "minimum": 0},
		"time_limit": {"type": "number", "minimum": 0},
		"engine_version": {"type": "string"}
	},
	"additionalProperties": false
}`

// validatorCache memoizes compiled JSON Schema validators keyed by a hash of
// the schema text, the same shape as a registry that never needs to recheck
// the same schema source twice.
type validatorCache struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

var schemaCache = &validatorCache{cache: make(map[string]*jsonschema.Schema)}

func hashSchemaText(schema string) string {
	sum := sha256.Sum256([]byte(schema))
	return hex.EncodeToString(sum[:])
}

func (c *validatorCache) get(key string) (*jsonschema.Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.cache[key]
	return v, ok
}

func (c *validatorCache) put(key string, v *jsonschema.Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = v
}

func compiledResourceSchema() (*jsonschema.Schema, error) {
	key := hashSchemaText(resourceConfigSchema)
	if v, ok := schemaCache.get(key); ok {
		return v, nil
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("jsctx://resource-config.json", strings.NewReader(resourceConfigSchema)); err != nil {
		return nil, err
	}
	validator, err := compiler.Compile("jsctx://resource-config.json")
	if err != nil {
		return nil, err
	}
	schemaCache.put(key, validator)
	return validator, nil
}

// validateResourceDoc runs a decoded JSON document (map[string]any, the shape
// both the JSON and YAML loaders below produce) through the shared schema.
func validateResourceDoc(doc any) error {
	validator, err := compiledResourceSchema()
	if err != nil {
		return fmt.Errorf("jsctx: compiling resource-config schema: %w", err)
	}
	if err := validator.Validate(doc); err != nil {
		return fmt.Errorf("jsctx: invalid resource config: %w", err)
	}
	return nil
}

// LoadResourceConfigJSON decodes and validates a resource-limit document
// supplied as JSON, then checks engineVersion (if present) is a well-formed
// semver tag before returning it.
func LoadResourceConfigJSON(data []byte) (*ResourceConfig, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("jsctx: invalid JSON resource config: %w", err)
	}
	if err := validateResourceDoc(doc); err != nil {
		return nil, err
	}
	var cfg ResourceConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("jsctx: decoding resource config: %w", err)
	}
	if err := checkEngineVersion(cfg.EngineVersion); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadResourceConfigYAML decodes the same document as YAML, routes it
// through the identical JSON-Schema validator by re-marshalling the decoded
// value to JSON, so both formats share one validation path.
func LoadResourceConfigYAML(data []byte) (*ResourceConfig, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("jsctx: invalid YAML resource config: %w", err)
	}
	jsonDoc, err := remarshalYAMLMap(doc)
	if err != nil {
		return nil, fmt.Errorf("jsctx: converting YAML resource config: %w", err)
	}
	reencoded, err := json.Marshal(jsonDoc)
	if err != nil {
		return nil, fmt.Errorf("jsctx: re-encoding YAML resource config: %w", err)
	}
	return LoadResourceConfigJSON(reencoded)
}

// remarshalYAMLMap walks a yaml.v3-decoded value tree and replaces any
// map[any]any nodes (yaml.v3 decodes YAML mappings with interface{} keys)
// with map[string]any, the shape encoding/json and jsonschema/v5 both expect.
func remarshalYAMLMap(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			converted, err := remarshalYAMLMap(val)
			if err != nil {
				return nil, err
			}
			out[k] = converted
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string map key %v", k)
			}
			converted, err := remarshalYAMLMap(val)
			if err != nil {
				return nil, err
			}
			out[ks] = converted
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			converted, err := remarshalYAMLMap(val)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	default:
		return v, nil
	}
}

// checkEngineVersion accepts a semver tag understood by
// golang.org/x/mod/semver, prepending the "v" when it is missing, gating Eval before any script runs rather than
// failing confusingly partway through execution.
func checkEngineVersion(version string) error {
	if version == "" {
		return nil
	}
	v := version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("jsctx: engine_version %q is not a valid semver tag", version)
	}
	if semver.Compare(v, EngineVersion) > 0 {
		return fmt.Errorf("jsctx: engine_version %q exceeds the running engine version %q", version, EngineVersion)
	}
	return nil
}

// EngineVersion is this module's own semver tag, compared against an
// incoming engine_version gate by checkEngineVersion.
const EngineVersion = "v1.0.0"
