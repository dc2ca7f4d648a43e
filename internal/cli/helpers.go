package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/thoas/go-funk"
	"golang.org/x/text/unicode/norm"
	"sigs.k8s.io/yaml"
)

const (
	jsonFormat = "json"
	yamlFormat = "yaml"
)

var (
	legalOutputTypes = []string{jsonFormat, yamlFormat}
)

func validateOutput(output string) error {
	if len(output) > 0 && !funk.ContainsString(legalOutputTypes, output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}
	return nil
}

// printStructured writes v as JSON or YAML. It reports false for the table
// format so that the caller prints its own table.
func printStructured(w io.Writer, output string, v any) (bool, error) {
	switch output {
	case jsonFormat:
		marshalled, err := json.Marshal(v)
		if err != nil {
			return true, fmt.Errorf("marshalling resource: %w", err)
		}
		fmt.Fprintf(w, "%s\n", string(marshalled))
		return true, nil
	case yamlFormat:
		marshalled, err := yaml.Marshal(v)
		if err != nil {
			return true, fmt.Errorf("marshalling resource: %w", err)
		}
		fmt.Fprintf(w, "%s", string(marshalled))
		return true, nil
	default:
		return false, nil
	}
}

// chooseTargets computes the launch selection over catalog. An empty include
// list means every target. Names given on the command line are matched after
// NFKC folding, so full-width input finds the published name. Unknown names
// are rejected.
func chooseTargets(catalog, include, exclude []string) ([]string, error) {
	byKey := make(map[string]string, len(catalog))
	for _, name := range catalog {
		byKey[targetKey(name)] = name
	}
	resolve := func(names []string) (found, unknown []string) {
		for _, n := range names {
			if name, ok := byKey[targetKey(n)]; ok {
				found = append(found, name)
			} else {
				unknown = append(unknown, n)
			}
		}
		return found, unknown
	}

	includes, unknownIncludes := resolve(include)
	excludes, unknownExcludes := resolve(exclude)
	if unknown := funk.UniqString(append(unknownIncludes, unknownExcludes...)); len(unknown) > 0 {
		return nil, fmt.Errorf("unknown targets: %s", strings.Join(unknown, ", "))
	}

	chosen := catalog
	if len(include) > 0 {
		chosen = funk.FilterString(catalog, func(name string) bool {
			return funk.ContainsString(includes, name)
		})
	}
	return funk.FilterString(chosen, func(name string) bool {
		return !funk.ContainsString(excludes, name)
	}), nil
}

func targetKey(name string) string {
	return norm.NFKC.String(strings.TrimSpace(name))
}
