package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	gen "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Tenant declares one backend tenant in the tenants file. Credentials are
// never part of the file; they stay in <prefix>_CLIENT_ID_<CODE> and
// <prefix>_CLIENT_SECRET_<CODE> environment variables.
type Tenant struct {
	Code        string `yaml:"code" json:"code" jsonschema:"required,minLength=1"`
	BaseURL     string `yaml:"base_url,omitempty" json:"base_url,omitempty" jsonschema:"format=uri"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// TenantsFile is the parsed tenants declaration.
type TenantsFile struct {
	Tenants []Tenant `yaml:"tenants" json:"tenants" jsonschema:"required,minItems=1"`
}

// Codes returns the declared tenant codes in file order.
func (f *TenantsFile) Codes() []string {
	codes := make([]string, len(f.Tenants))
	for i, t := range f.Tenants {
		codes[i] = t.Code
	}
	return codes
}

// BaseURLOverrides returns the per-tenant base URL overrides declared in the
// file, keyed by tenant code.
func (f *TenantsFile) BaseURLOverrides() map[string]string {
	out := make(map[string]string)
	for _, t := range f.Tenants {
		if t.BaseURL != "" {
			out[t.Code] = t.BaseURL
		}
	}
	return out
}

// LoadTenants reads and validates a tenants YAML file. The document is
// checked against a schema generated from the Tenant struct so a typo in a
// key fails loudly at startup instead of silently dropping a tenant.
func LoadTenants(path string) (*TenantsFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tenants file: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing tenants file: %w", err)
	}
	if msgs := validateTenantsDoc(doc); len(msgs) > 0 {
		return nil, fmt.Errorf("tenants file %s: %s", path, strings.Join(msgs, "; "))
	}

	var file TenantsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing tenants file: %w", err)
	}

	seen := make(map[string]bool, len(file.Tenants))
	for _, t := range file.Tenants {
		code := strings.ToUpper(strings.TrimSpace(t.Code))
		if seen[code] {
			return nil, fmt.Errorf("tenants file %s: duplicate tenant code %q", path, t.Code)
		}
		seen[code] = true
	}

	return &file, nil
}

// validateTenantsDoc checks an already-parsed document against the generated
// schema and returns human-readable problem descriptions.
func validateTenantsDoc(doc any) []string {
	reflector := gen.Reflector{DoNotReference: true}
	schemaJSON, err := json.Marshal(reflector.Reflect(&TenantsFile{}))
	if err != nil {
		return []string{fmt.Sprintf("generating schema: %v", err)}
	}

	var schemaValue any
	if err := json.Unmarshal(schemaJSON, &schemaValue); err != nil {
		return []string{fmt.Sprintf("decoding schema: %v", err)}
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("tenants.json", schemaValue); err != nil {
		return []string{fmt.Sprintf("adding schema resource: %v", err)}
	}
	compiled, err := compiler.Compile("tenants.json")
	if err != nil {
		return []string{fmt.Sprintf("compiling schema: %v", err)}
	}

	if err := compiled.Validate(doc); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			byPath := make(map[string][]string)
			collectValidationErrors(validationErr, byPath)
			var msgs []string
			for path, pathMsgs := range byPath {
				seen := make(map[string]bool)
				for _, m := range pathMsgs {
					if seen[m] {
						continue
					}
					seen[m] = true
					if path != "" {
						msgs = append(msgs, path+": "+m)
					} else {
						msgs = append(msgs, m)
					}
				}
			}
			return msgs
		}
		return []string{err.Error()}
	}
	return nil
}

// printer renders validation messages in English.
var printer = message.NewPrinter(language.English)

// collectValidationErrors gathers leaf errors keyed by instance path,
// skipping the $ref noise the library reports alongside real failures.
func collectValidationErrors(err *jsonschema.ValidationError, byPath map[string][]string) {
	path := ""
	if len(err.InstanceLocation) > 0 {
		path = "/" + strings.Join(err.InstanceLocation, "/")
	}

	if err.ErrorKind != nil && len(err.Causes) == 0 {
		msg := err.ErrorKind.LocalizedString(printer)
		if !strings.HasPrefix(msg, "$ref ") && !strings.HasPrefix(msg, "doesn't validate with") {
			byPath[path] = append(byPath[path], msg)
		}
	}
	for _, cause := range err.Causes {
		collectValidationErrors(cause, byPath)
	}
}
