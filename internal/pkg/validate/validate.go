package validate

import "strings"

// Field pairs a name with a value for presence checks.
type Field struct {
	Name  string
	Value string
}

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// Missing returns the names of blank fields, in argument order.
func Missing(fields ...Field) []string {
	var missing []string
	for _, f := range fields {
		if !Required(f.Value) {
			missing = append(missing, f.Name)
		}
	}
	return missing
}
