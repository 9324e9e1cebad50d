package service

import "strings"

const pathSeparator = "/"

// normalizePath returns the canonical form of path: exactly one leading
// separator, no empty, "." or ".." segments. ".." pops one segment and never
// underflows past the root, so a normalized path cannot reference anything
// above "/". Idempotent.
func normalizePath(path string) string {
	segments := strings.Split(path, pathSeparator)

	result := make([]string, 0, len(segments))
	for _, segment := range segments {
		switch segment {
		case "", ".":
			// skip
		case "..":
			if len(result) > 0 {
				result = result[:len(result)-1]
			}
		default:
			result = append(result, segment)
		}
	}

	if len(result) == 0 {
		return pathSeparator
	}
	return pathSeparator + strings.Join(result, pathSeparator)
}

// sandboxPath interprets raw relative to the mount point and returns the
// canonical internal path. A raw path carrying the mount prefix has it
// stripped; anything else is taken as mount-relative even when it begins
// with a separator. Traversal sequences collapse to "/" at worst: the
// result can never denote a location above the mount root.
func sandboxPath(mountPath, raw string) string {
	mountPrefix := strings.TrimRight(mountPath, pathSeparator)

	var inner string
	switch {
	case mountPrefix != "" && strings.HasPrefix(raw, mountPrefix+pathSeparator):
		inner = raw[len(mountPrefix):]
	case mountPrefix != "" && raw == mountPrefix:
		inner = pathSeparator
	default:
		inner = raw
	}

	return normalizePath(inner)
}

// splitPath breaks a canonical path into its ordered segments; the root
// path has none.
func splitPath(path string) []string {
	normalized := normalizePath(path)
	if normalized == pathSeparator {
		return nil
	}
	return strings.Split(strings.TrimPrefix(normalized, pathSeparator), pathSeparator)
}

// parentPath returns the canonical path of the parent directory.
func parentPath(path string) string {
	segments := splitPath(path)
	if len(segments) <= 1 {
		return pathSeparator
	}
	return pathSeparator + strings.Join(segments[:len(segments)-1], pathSeparator)
}

// joinPath resolves target against the directory containing path: absolute
// targets stand alone, relative ones are normalized against the parent.
func joinPath(path, target string) string {
	if strings.HasPrefix(target, pathSeparator) {
		return normalizePath(target)
	}
	return normalizePath(parentPath(path) + pathSeparator + target)
}
