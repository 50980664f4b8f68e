package room

// Media describes the room's current selection. It is replaced wholesale on
// every set-media, never patched field by field.
type Media struct {
	Type      string  `redis:"type" json:"type"`
	ID        string  `redis:"id" json:"id"`
	Season    int     `redis:"season" json:"season"`
	Episode   int     `redis:"episode" json:"episode"`
	StartAt   float64 `redis:"start_at" json:"start_at"`
	Theme     string  `redis:"theme" json:"theme"`
	UpdatedAt int64   `redis:"updated_at" json:"updated_at"`
}

type SetMediaParams struct {
	Media  Media  `json:"media"`
	RoomID string `json:"room_id"`
}
