// Verity validates YAML and JSON documents against declarative rule sets and
// reports, per failing property, the minimal rule tree explaining the failure.
//
// Usage:
//
//	# Validate documents against the rule sets in ./rules
//	verity check --rules rules/ --rule-set person people.yaml
//
//	# Lint rule files
//	verity lint rules/
//
//	# Serve the HTTP validation API
//	verity serve --config verity.yaml
//
//	# Query and export validation history
//	verity history list --invalid
//	verity history export --format csv --output history.csv
//
//	# Show version information
//	verity version
package main

import "os"

func main() {
	os.Exit(Execute())
}
