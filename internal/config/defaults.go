package config

import (
	_ "embed"

	"gopkg.in/yaml.v3"
)

// Template is the annotated catalog file written by "catalogscan init".
// Its catalogs are also the built-in defaults.
//
//go:embed templates/catalogscan.yaml
var Template []byte

// DefaultFile returns the built-in catalogs: "herbal" (dual taxonomy) and
// "equipment" (single taxonomy), both from calebasse.com.
func DefaultFile() *File {
	var cf File
	if err := yaml.Unmarshal(Template, &cf); err != nil {
		// The template is compiled into the binary and covered by tests.
		panic("config: invalid embedded template: " + err.Error())
	}
	return &cf
}
