package config

import (
	"fmt"
	"strconv"
	"strings"
)

// SchemaVersion is the configuration format this client writes and reads.
// Files declaring another major version are rejected.
var SchemaVersion = schemaVersion{major: 1}

type schemaVersion struct {
	major int
	minor int
	patch int
}

// parseSchemaVersion reads "MAJOR[.MINOR[.PATCH]]" with an optional "v"
// prefix. Missing components are zero.
func parseSchemaVersion(s string) (schemaVersion, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")

	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return schemaVersion{}, fmt.Errorf("invalid version %q: expected MAJOR[.MINOR[.PATCH]]", s)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return schemaVersion{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		if n < 0 {
			return schemaVersion{}, fmt.Errorf("invalid version %q: components must be non-negative", s)
		}
		nums[i] = n
	}

	return schemaVersion{major: nums[0], minor: nums[1], patch: nums[2]}, nil
}

func (v schemaVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch)
}

// compatible reports whether a file of version v can be read. Newer minor
// versions are accepted; unknown keys are ignored by the YAML decoder.
func (v schemaVersion) compatible() bool {
	return v.major == SchemaVersion.major
}

// checkSchemaVersion validates the version field; an empty field is
// treated as the current version.
func checkSchemaVersion(s string) error {
	if s == "" {
		return nil
	}
	v, err := parseSchemaVersion(s)
	if err != nil {
		return err
	}
	if !v.compatible() {
		return fmt.Errorf("unsupported configuration version %s (supported: %d.x)", v, SchemaVersion.major)
	}
	return nil
}
