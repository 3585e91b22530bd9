package analyzer

import (
	"regexp"
	"strings"
)

var (
	reViteAliasDecl = regexp.MustCompile(`alias\s*:\s*[\s\S]{0,200}?['"]@['"]`)
	rePackageESM    = regexp.MustCompile(`"type"\s*:\s*"module"`)
	reDirnameUsage  = regexp.MustCompile(`__dirname`)
)

// detectViteAliasState inspects vite.config.* and package.json (if present in
// the workspace) to back the two extra unresolved-import checks spec.md §4.6
// names for the "@/" alias: a missing declaration, and a __dirname-based
// declaration inside an ESM project (package.json "type":"module").
func detectViteAliasState(files map[string]string) (hasAlias, esmWithDirnameAlias bool) {
	var viteConfig string
	var packageJSON string
	for path, content := range files {
		base := path
		if idx := strings.LastIndex(base, "/"); idx >= 0 {
			base = base[idx+1:]
		}
		if strings.HasPrefix(base, "vite.config.") {
			viteConfig = content
		}
		if base == "package.json" {
			packageJSON = content
		}
	}
	hasAlias = reViteAliasDecl.MatchString(viteConfig)
	esm := rePackageESM.MatchString(packageJSON)
	usesDirname := reDirnameUsage.MatchString(viteConfig)
	esmWithDirnameAlias = esm && usesDirname && hasAlias
	return hasAlias, esmWithDirnameAlias
}
