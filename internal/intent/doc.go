// Package intent resolves free-form text to a tool and its parameters.
//
// # Pipeline
//
// Resolution is a two-call pipeline against a language-model collaborator:
//
//  1. MatchTool: the model picks one tool id from the candidate list, or
//     none. An id not in the list is treated exactly like no match; the
//     resolver never substitutes a default.
//  2. ExtractParams: the model fills the matched tool's declared parameters
//     from the text, reporting found values and missing names.
//
// Resolve chains both and then reconciles the model's answer against the
// tool's own validator: a parameter that fails validation moves from
// foundParams to missingParams (deduplicated) and its validation error is
// preserved verbatim. A parameter is never in both foundParams and the
// validation errors.
//
// # Model Output
//
// The model must answer with a JSON object. Fenced or lightly-broken JSON
// is recovered with jsonrepair; anything that does not parse as an object
// after repair is an external error. The resolver holds no conversation
// state and never retries; callers own timeouts via context.
package intent
