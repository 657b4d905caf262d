// Package importer applies tenant snapshot documents with deduplication,
// overwrite and dry-run support.
package importer

import "fmt"

// sectioned lists the data sections that must be arrays when present.
var sectioned = []string{"users", "tickets", "config_fields"}

// Validate structurally checks a candidate document. It never touches
// storage and always runs before any section processing; an empty result
// means the document may be handed to the executor.
func Validate(raw map[string]any) []string {
	if raw == nil {
		return []string{"document must be a JSON object"}
	}

	var errs []string
	header, ok := raw["header"]
	if !ok {
		errs = append(errs, "document is missing the header section")
	} else if _, isObject := header.(map[string]any); !isObject {
		errs = append(errs, "header must be an object")
	}

	data, ok := raw["data"]
	if !ok {
		return append(errs, "document is missing the data section")
	}
	dataMap, isObject := data.(map[string]any)
	if !isObject {
		return append(errs, "data must be an object")
	}

	for _, section := range sectioned {
		value, ok := dataMap[section]
		if !ok || value == nil {
			continue
		}
		if _, isList := value.([]any); !isList {
			errs = append(errs, fmt.Sprintf("data.%s must be an array", section))
		}
	}
	return errs
}
