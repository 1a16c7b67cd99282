package model

// Console groups games under a user-defined platform (e.g. "Switch", "PS2").
// Path points at the folder scanned for game entries; it may be empty for a
// manually curated console.
type Console struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	GameCount  int    `json:"game_count"`
	CreateTime int64  `json:"created_at"`
}

// Game is a catalog entry. FolderName is the on-disk identifier (directory
// name or file name minus extension), Title the normalized display title.
type Game struct {
	ID           int64  `json:"id"`
	ConsoleID    int64  `json:"console_id"`
	FolderName   string `json:"folder_name"`
	Title        string `json:"title"`
	Genre        string `json:"genre"`
	Description  string `json:"description"`
	CoverURL     string `json:"cover_url"`
	MetadataPath string `json:"metadata_path,omitempty"`
	CreateTime   int64  `json:"created_at"`
	UpdateTime   int64  `json:"updated_at"`
}

// Screenshot references one stored screenshot image of a game.
type Screenshot struct {
	ID     int64  `json:"id"`
	GameID int64  `json:"-"`
	URL    string `json:"url"`
}

// GameStatus tracks the personal play state of a game.
type GameStatus struct {
	GameID            int64  `json:"game_id"`
	IsFavorite        bool   `json:"is_favorite"`
	HasPlanToPlay     bool   `json:"has_plan_to_play"`
	IsPlaying         bool   `json:"is_playing"`
	IsCompleted       bool   `json:"is_completed"`
	CompletedDateNote string `json:"completed_date_note,omitempty"`
	IsDropped         bool   `json:"is_dropped"`
	IsOnHold          bool   `json:"is_on_hold"`
}

// StatusPatch is a partial status update; nil fields are left untouched.
type StatusPatch struct {
	IsFavorite        *bool   `json:"is_favorite"`
	HasPlanToPlay     *bool   `json:"has_plan_to_play"`
	IsPlaying         *bool   `json:"is_playing"`
	IsCompleted       *bool   `json:"is_completed"`
	CompletedDateNote *string `json:"completed_date_note"`
	IsDropped         *bool   `json:"is_dropped"`
	IsOnHold          *bool   `json:"is_on_hold"`
}

// IsEmpty reports whether the patch carries no field at all.
func (p StatusPatch) IsEmpty() bool {
	return p.IsFavorite == nil && p.HasPlanToPlay == nil && p.IsPlaying == nil &&
		p.IsCompleted == nil && p.CompletedDateNote == nil && p.IsDropped == nil &&
		p.IsOnHold == nil
}

// GameSummary is the cross-console row shape used by search, status and
// recently-viewed listings.
type GameSummary struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Genre       string `json:"genre"`
	CoverURL    string `json:"cover_url"`
	ConsoleName string `json:"console_name"`
}

// StatusCounts aggregates the per-flag game counts.
type StatusCounts struct {
	Completed  int `json:"completed_count"`
	Favorites  int `json:"favorites_count"`
	Playing    int `json:"playing_count"`
	PlanToPlay int `json:"plan_to_play_count"`
	Dropped    int `json:"dropped_count"`
	OnHold     int `json:"on_hold_count"`
}

// Stats is the archive-wide statistics payload.
type Stats struct {
	TotalConsoles int `json:"total_consoles"`
	TotalGames    int `json:"total_games"`
	StatusCounts
}
