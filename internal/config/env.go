package config

import "strings"

// EnvPrefix prefixes every environment variable read by the application.
const EnvPrefix = "PIVOT"

// envKeyReplacer maps nested keys such as report.top_n to PIVOT_REPORT_TOP_N.
var envKeyReplacer = strings.NewReplacer(".", "_")

// EnvKeyReplacer returns the replacer used to derive environment variable names from keys.
func EnvKeyReplacer() *strings.Replacer {
	return envKeyReplacer
}
