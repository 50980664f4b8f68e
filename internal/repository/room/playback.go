package room

// Playback is the authoritative playback record of a room. CurrentTime is
// only meaningful relative to UpdatedAt: while playing, the true position is
// CurrentTime plus the wall-clock seconds elapsed since UpdatedAt.
type Playback struct {
	IsPlaying   bool    `redis:"is_playing" json:"is_playing"`
	CurrentTime float64 `redis:"current_time" json:"current_time"`
	UpdatedAt   int64   `redis:"updated_at" json:"updated_at"`
}

type EnsurePlaybackParams struct {
	RoomID string `json:"room_id"`
}

type UpdatePlaybackParams struct {
	IsPlaying   bool    `json:"is_playing"`
	CurrentTime float64 `json:"current_time"`
	UpdatedAt   int64   `json:"updated_at"`
	RoomID      string  `json:"room_id"`
}
