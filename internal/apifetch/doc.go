// Package apifetch polls JSON APIs and pulls a primary field out of their
// responses.
//
// FetchJSON always returns a model.APIResult. Its Status tells the failure
// kinds apart: FAILED_HTTP_STATUS (with the status code and a short body
// excerpt), FAILED_NETWORK, FAILED_DECODE and FAILED_VALIDATION for a URL
// that cannot be requested at all.
//
// ExtractField reduces a decoded object to a small record: the primary key
// plus companion fields chosen by the first matching entry of ExtractRules,
// or a diagnostic message with a bounded snippet when the key is missing.
package apifetch
