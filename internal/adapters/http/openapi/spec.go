// Package openapi embeds the HTTP contract served by the API.
package openapi

import _ "embed"

//go:embed openapi.yaml
var Spec []byte
