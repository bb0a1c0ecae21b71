// Package merge implements the structured three-way merge git invokes for
// issue files. It understands issue semantics rather than text: sets union,
// timestamps take the later value, and scalars resolve last-write-wins by
// the updated_at stamp.
//
// The merge operates on generic JSON maps, not the typed issue struct, so a
// file written by a newer version with extra fields merges without loss.
package merge

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"
)

// setFields are merged as sets: additions from either side survive, removals
// from either side stick.
var setFields = map[string]bool{
	"labels":       true,
	"dependencies": true,
}

// timestampFields resolve to the later value. Canonical timestamps compare
// correctly as strings.
var timestampFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"closed_at":  true,
}

// Issues merges two divergent versions of an issue against their common
// ancestor. The result covers the union of all three key sets.
func Issues(base, ours, theirs map[string]any) map[string]any {
	oursUpdated := stringOr(ours["updated_at"], "")
	theirsUpdated := stringOr(theirs["updated_at"], "")
	newer := ours
	if oursUpdated < theirsUpdated {
		newer = theirs
	}

	keys := make(map[string]bool, len(base)+len(ours)+len(theirs))
	for k := range base {
		keys[k] = true
	}
	for k := range ours {
		keys[k] = true
	}
	for k := range theirs {
		keys[k] = true
	}

	result := make(map[string]any, len(keys))
	for key := range keys {
		baseVal := base[key]
		oursVal := ours[key]
		theirsVal := theirs[key]

		switch {
		case setFields[key]:
			result[key] = mergeSet(baseVal, oursVal, theirsVal)

		case timestampFields[key]:
			result[key] = mergeTimestamp(key, oursVal, theirsVal)

		case key == "id":
			result[key] = firstNonNil(oursVal, theirsVal, baseVal)

		default:
			// Scalar: a side that diverged from base wins; if both
			// diverged, the side with the later updated_at wins.
			oursChanged := !reflect.DeepEqual(oursVal, baseVal)
			theirsChanged := !reflect.DeepEqual(theirsVal, baseVal)
			switch {
			case oursChanged && theirsChanged:
				result[key] = newer[key]
			case oursChanged:
				result[key] = oursVal
			case theirsChanged:
				result[key] = theirsVal
			default:
				result[key] = baseVal
			}
		}
	}

	return result
}

// mergeSet keeps elements present on both sides and in base, plus anything
// either side added relative to base. An element one side removed stays
// removed. The result is sorted for canonical output.
func mergeSet(baseVal, oursVal, theirsVal any) []string {
	baseSet := toSet(baseVal)
	oursSet := toSet(oursVal)
	theirsSet := toSet(theirsVal)

	merged := make(map[string]bool)
	for v := range oursSet {
		if !baseSet[v] {
			merged[v] = true // added by ours
		}
	}
	for v := range theirsSet {
		if !baseSet[v] {
			merged[v] = true // added by theirs
		}
	}
	for v := range baseSet {
		if oursSet[v] && theirsSet[v] {
			merged[v] = true // kept by both
		}
	}

	out := make([]string, 0, len(merged))
	for v := range merged {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func mergeTimestamp(key string, oursVal, theirsVal any) any {
	ours := stringOr(oursVal, "")
	theirs := stringOr(theirsVal, "")

	if key == "closed_at" {
		// Present on both sides: later wins. Present on one: presence wins,
		// even against a null (a reopen on the other side loses to a close).
		if ours != "" && theirs != "" {
			return maxString(ours, theirs)
		}
		if ours != "" {
			return ours
		}
		if theirs != "" {
			return theirs
		}
		return nil
	}

	if v := maxString(ours, theirs); v != "" {
		return v
	}
	return nil
}

func firstNonNil(vals ...any) any {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func toSet(val any) map[string]bool {
	set := make(map[string]bool)
	items, ok := val.([]any)
	if !ok {
		return set
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			set[s] = true
		}
	}
	return set
}

func stringOr(val any, fallback string) string {
	if s, ok := val.(string); ok {
		return s
	}
	return fallback
}

func maxString(a, b string) string {
	if a >= b {
		return a
	}
	return b
}

// Files runs the three-way merge over the paths git hands a merge driver:
// ancestor, ours, theirs. The result is written back to oursPath in
// canonical form (sorted keys, trailing newline). A missing ancestor file is
// treated as an empty base, which happens when both sides created the issue
// independently.
func Files(basePath, oursPath, theirsPath string) error {
	base := map[string]any{}
	if data, err := os.ReadFile(basePath); err == nil && len(data) > 0 {
		if err := json.Unmarshal(data, &base); err != nil {
			return fmt.Errorf("parsing base %s: %w", basePath, err)
		}
	}

	ours, err := readVersion(oursPath)
	if err != nil {
		return err
	}
	theirs, err := readVersion(theirsPath)
	if err != nil {
		return err
	}

	merged := Issues(base, ours, theirs)

	out, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding merge result: %w", err)
	}
	if err := os.WriteFile(oursPath, append(out, '\n'), 0644); err != nil {
		return fmt.Errorf("writing merge result: %w", err)
	}
	return nil
}

func readVersion(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}
