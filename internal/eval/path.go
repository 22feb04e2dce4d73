package eval

import (
	"strconv"
	"strings"
)

// lookupPath resolves a dot- and bracket-path ("items[0].name",
// "meta.tags[2]") against a value tree of maps/slices produced by
// unmarshaling JSON or YAML, as spec.md §6's validateEach requires.
func lookupPath(value any, path string) (any, bool) {
	for _, segment := range splitPath(path) {
		if segment.index != nil {
			slice, ok := value.([]any)
			if !ok || *segment.index < 0 || *segment.index >= len(slice) {
				return nil, false
			}
			value = slice[*segment.index]
			continue
		}

		m, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}
		value, ok = m[segment.key]
		if !ok {
			return nil, false
		}
	}
	return value, true
}

type pathSegment struct {
	key   string
	index *int
}

// splitPath turns "a.b[0][1].c" into [{key:a} {key:b} {index:0} {index:1} {key:c}].
func splitPath(path string) []pathSegment {
	var segments []pathSegment
	for _, dotPart := range strings.Split(path, ".") {
		for len(dotPart) > 0 {
			bracket := strings.IndexByte(dotPart, '[')
			if bracket == -1 {
				if dotPart != "" {
					segments = append(segments, pathSegment{key: dotPart})
				}
				break
			}
			if bracket > 0 {
				segments = append(segments, pathSegment{key: dotPart[:bracket]})
			}
			closeBracket := strings.IndexByte(dotPart, ']')
			if closeBracket == -1 {
				break
			}
			if idx, err := strconv.Atoi(dotPart[bracket+1 : closeBracket]); err == nil {
				segments = append(segments, pathSegment{index: &idx})
			}
			dotPart = dotPart[closeBracket+1:]
		}
	}
	return segments
}
