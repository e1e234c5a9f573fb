// Package schema embeds the JSON Schemas that structured-generation
// targets must satisfy. Providers enforce them on every decoded
// response.
package schema

import _ "embed"

//go:embed rubric.schema.json
var Rubric []byte

//go:embed feedback_overall.schema.json
var FeedbackOverall []byte

//go:embed feedback_multi.schema.json
var FeedbackMulti []byte
