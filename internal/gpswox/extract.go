package gpswox

import (
	"bytes"
	"encoding/json"
)

// Extractor pulls a list out of one known response shape. ok is false when
// the body does not have that shape.
type Extractor[T any] func(body []byte) (items []T, ok bool)

// ExtractFirst runs the extractors in order; the first non-empty result wins.
// New provider shapes are handled by appending to the list.
func ExtractFirst[T any](body []byte, extractors []Extractor[T]) ([]T, bool) {
	for _, extract := range extractors {
		if items, ok := extract(body); ok && len(items) > 0 {
			return items, true
		}
	}
	return nil, false
}

// DeviceExtractors covers the grouped, enveloped and flat device list shapes.
var DeviceExtractors = []Extractor[RawDevice]{
	groupedItems[RawDevice],
	envelopeItems[RawDevice](false),
	flatArray[RawDevice],
}

// DriverExtractors covers the shapes seen across the driver endpoints.
var DriverExtractors = []Extractor[RawDriver]{
	flatArray[RawDriver],
	envelopeItems[RawDriver](true),
	nestedData[RawDriver]("items", "drivers", "data"),
	nestedData[RawDriver]("drivers", "data"),
}

// HistoryExtractors covers the history shapes: position groups, a flat item
// list, and the positions/data variants.
var HistoryExtractors = []Extractor[HistorySample]{
	nestedGroups[HistorySample]("items"),
	nestedFlat[HistorySample]("items"),
	nestedData[HistorySample]("positions"),
	nestedData[HistorySample]("data"),
	nestedData[HistorySample]("data", "items"),
	flatArray[HistorySample],
}

func isArray(body []byte) bool {
	b := bytes.TrimSpace(body)
	return len(b) > 0 && b[0] == '['
}

func isObject(body []byte) bool {
	b := bytes.TrimSpace(body)
	return len(b) > 0 && b[0] == '{'
}

// decodeEach decodes every element on its own so one bad record does not
// discard the list.
func decodeEach[T any](raws []json.RawMessage) []T {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		if !isObject(raw) {
			continue
		}
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		out = append(out, item)
	}
	return out
}

func asArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	if !isArray(raw) {
		return nil, false
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, false
	}
	return arr, true
}

// dig walks nested object keys.
func dig(body []byte, path ...string) (json.RawMessage, bool) {
	cur := json.RawMessage(body)
	for _, key := range path {
		if !isObject(cur) {
			return nil, false
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(cur, &obj); err != nil {
			return nil, false
		}
		next, ok := obj[key]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func hasKey(raw json.RawMessage, key string) bool {
	_, ok := dig(raw, key)
	return ok
}

// flatArray: the body itself is an array of records, none of them groups.
func flatArray[T any](body []byte) ([]T, bool) {
	arr, ok := asArray(body)
	if !ok {
		return nil, false
	}
	for _, el := range arr {
		if hasKey(el, "items") {
			return nil, false
		}
	}
	return decodeEach[T](arr), true
}

// groupedItems: an array of groups, each with its own items array.
func groupedItems[T any](body []byte) ([]T, bool) {
	arr, ok := asArray(body)
	if !ok {
		return nil, false
	}
	grouped := false
	var out []T
	for _, group := range arr {
		items, ok := dig(group, "items")
		if !ok {
			continue
		}
		grouped = true
		if list, ok := asArray(items); ok {
			out = append(out, decodeEach[T](list)...)
		}
	}
	return out, grouped
}

// envelopeItems: {"status": 1, "items": [...]}. With requireStatus the
// status must be present and equal to 1.
func envelopeItems[T any](requireStatus bool) Extractor[T] {
	return func(body []byte) ([]T, bool) {
		if !isObject(body) {
			return nil, false
		}
		var env struct {
			Status FlexFloat       `json:"status"`
			Items  json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, false
		}
		if requireStatus && (!env.Status.Valid || env.Status.Value != 1) {
			return nil, false
		}
		list, ok := asArray(env.Items)
		if !ok {
			return nil, false
		}
		return decodeEach[T](list), true
	}
}

// nestedData: an array found under the given object path.
func nestedData[T any](path ...string) Extractor[T] {
	return func(body []byte) ([]T, bool) {
		raw, ok := dig(body, path...)
		if !ok {
			return nil, false
		}
		list, ok := asArray(raw)
		if !ok {
			return nil, false
		}
		return decodeEach[T](list), true
	}
}

// nestedGroups: an array under path whose elements carry their own items.
func nestedGroups[T any](path ...string) Extractor[T] {
	return func(body []byte) ([]T, bool) {
		raw, ok := dig(body, path...)
		if !ok {
			return nil, false
		}
		return groupedItems[T](raw)
	}
}

// nestedFlat: like nestedData but rejects arrays of groups.
func nestedFlat[T any](path ...string) Extractor[T] {
	return func(body []byte) ([]T, bool) {
		raw, ok := dig(body, path...)
		if !ok {
			return nil, false
		}
		return flatArray[T](raw)
	}
}
