package handlers

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"shifts-bot/internal/prefs"
)

// ZoneinfoDir is where the host keeps its timezone database.
const ZoneinfoDir = "/usr/share/zoneinfo"

var zoneAreas = []string{
	"Africa", "America", "Antarctica", "Asia", "Atlantic",
	"Australia", "Europe", "Indian", "Pacific",
}

// SystemZones lists the Area/City zone names under root, sorted. Without a
// zoneinfo tree the common zones are returned.
func SystemZones(root string) []string {
	var zones []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		name, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		name = filepath.ToSlash(name)
		area, _, ok := strings.Cut(name, "/")
		if ok && slices.Contains(zoneAreas, area) && !strings.HasSuffix(name, ".tab") {
			zones = append(zones, name)
		}
		return nil
	})
	if len(zones) == 0 {
		for _, c := range prefs.CommonTimezones {
			zones = append(zones, c.Zone)
		}
	}
	slices.Sort(zones)
	return zones
}
