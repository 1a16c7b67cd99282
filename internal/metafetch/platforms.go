package metafetch

import "strings"

// platformAliases maps a game-database platform id to the console names
// users commonly type. Matching is exact after lowercasing and trimming.
var platformAliases = map[int][]string{
	15:  {"ps2", "playstation 2", "sony playstation 2"},
	16:  {"ps3", "playstation 3", "sony playstation 3"},
	18:  {"ps4", "playstation 4", "sony playstation 4"},
	187: {"ps5", "playstation 5", "sony playstation 5"},

	14:  {"xbox", "original xbox", "microsoft xbox"},
	17:  {"xbox 360", "x360"},
	1:   {"xbox one"},
	186: {"xbox series x", "xbox series s", "series x"},

	13: {"gamecube", "nintendo gamecube", "ngc"},
	11: {"wii", "nintendo wii"},
	10: {"switch", "nintendo switch", "nsw"},
	9:  {"nds", "nintendo ds", "ds"},
	8:  {"3ds", "nintendo 3ds", "cia"},
	4:  {"pc", "windows", "steam"},
}

// PlatformID resolves a console name to a platform id, returning 0 when the
// name is not a known alias.
func PlatformID(consoleName string) int {
	name := strings.TrimSpace(strings.ToLower(consoleName))
	for pid, aliases := range platformAliases {
		for _, alias := range aliases {
			if name == alias {
				return pid
			}
		}
	}
	return 0
}
