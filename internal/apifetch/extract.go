package apifetch

import (
	"fmt"
	"sort"
)

const (
	// snippetEntries is the number of top-level entries kept in a snippet.
	snippetEntries = 3

	// snippetMaxString bounds string values copied into a snippet, in runes.
	snippetMaxString = 200
)

// FieldMapping copies one response field into the extracted record.
type FieldMapping struct {
	// From is the response key to read.
	From string
	// To is the key written to the record.
	To string
}

// ExtractRule adds companion fields when Trigger is present in a response.
type ExtractRule struct {
	Trigger string
	Fields  []FieldMapping
}

// ExtractRules lists the known response shapes, checked in order. Only the
// first rule whose Trigger is present applies. New shapes are added by
// appending a rule.
var ExtractRules = []ExtractRule{
	{
		// catfact.ninja
		Trigger: "length",
		Fields:  []FieldMapping{{From: "length", To: "length"}},
	},
	{
		// bored-api style activity payloads
		Trigger: "activity",
		Fields: []FieldMapping{
			{From: "type", To: "activity_type"},
			{From: "participants", To: "participants"},
		},
	},
}

// ExtractField reduces response to a small record keyed for reporting.
//
// The record always has data_retrieved set to true. When primaryKey is
// present the record holds it plus the companion fields of the first
// matching rule in ExtractRules; companions missing from the response are
// recorded as nil. Otherwise the record holds a message and a
// response_snippet with the first few entries in sorted key order.
func ExtractField(response map[string]any, primaryKey string) map[string]any {
	record := map[string]any{"data_retrieved": true}

	if value, ok := response[primaryKey]; ok {
		record[primaryKey] = value
		for _, rule := range ExtractRules {
			if _, ok := response[rule.Trigger]; !ok {
				continue
			}
			for _, field := range rule.Fields {
				record[field.To] = response[field.From]
			}
			break
		}
		return record
	}

	record["message"] = fmt.Sprintf("Primary key '%s' not found in response.", primaryKey)
	record["response_snippet"] = snippet(response)
	return record
}

// snippet returns the first snippetEntries entries of response in sorted
// key order, with long strings shortened.
func snippet(response map[string]any) map[string]any {
	keys := make([]string, 0, len(response))
	for k := range response {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > snippetEntries {
		keys = keys[:snippetEntries]
	}

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		out[k] = shorten(response[k])
	}
	return out
}

func shorten(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	runes := []rune(s)
	if len(runes) <= snippetMaxString {
		return s
	}
	return string(runes[:snippetMaxString]) + "..."
}
