package discovery

import (
	"path"
	"path/filepath"
	"strings"
)

// RoutePath derives the canonical route path for file beneath apiRoot.
// Route groups "(name)" and parallel-route slots "@name" vanish, the
// handler file names listed in stripNames collapse onto their directory,
// and any other file name becomes the final segment. ok is false for
// files under private "_folders" or outside apiRoot.
func RoutePath(apiRoot, file, prefix string, stripNames []string) (string, bool) {
	rel, err := filepath.Rel(apiRoot, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)

	dir, base := path.Split(rel)
	name := strings.TrimSuffix(base, path.Ext(base))

	var segs []string
	for _, seg := range strings.Split(strings.Trim(dir, "/"), "/") {
		switch {
		case seg == "":
			continue
		case strings.HasPrefix(seg, "_"):
			return "", false
		case strings.HasPrefix(seg, "(") && strings.HasSuffix(seg, ")"):
			continue
		case strings.HasPrefix(seg, "@"):
			continue
		}
		segs = append(segs, seg)
	}

	if strings.HasPrefix(name, "_") {
		return "", false
	}
	if !contains(stripNames, name) {
		segs = append(segs, name)
	}

	prefix = "/" + strings.Trim(prefix, "/")
	if len(segs) == 0 {
		return prefix, true
	}
	return prefix + "/" + strings.Join(segs, "/"), true
}

// FunctionID derives the flat function identifier for file inside
// functionsDir. Only direct children count: "name.ext" is function
// "name"; "name/index.ext" and "name/name.ext" are function "name".
func FunctionID(functionsDir, file string) (string, bool) {
	rel, err := filepath.Rel(functionsDir, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	base := parts[len(parts)-1]
	name := strings.TrimSuffix(base, path.Ext(base))

	switch len(parts) {
	case 1:
		if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			return "", false
		}
		return name, true
	case 2:
		dir := parts[0]
		if strings.HasPrefix(dir, "_") || strings.HasPrefix(dir, ".") {
			return "", false
		}
		if name == "index" || name == dir {
			return dir, true
		}
	}
	return "", false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
