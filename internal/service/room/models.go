package room

type Member struct {
	ID            string   `json:"id"`
	Nickname      string   `json:"nickname"`
	EstimatedTime *float64 `json:"estimated_time,omitempty"`
	RTT           *int     `json:"rtt,omitempty"`
	Downlink      *float64 `json:"downlink,omitempty"`
	EffectiveType *string  `json:"effective_type,omitempty"`
}

type Playback struct {
	IsPlaying   bool    `json:"is_playing"`
	CurrentTime float64 `json:"current_time"`
	UpdatedAt   int64   `json:"updated_at"`
}

type Media struct {
	Type      string  `json:"type"`
	ID        string  `json:"id"`
	Season    int     `json:"season"`
	Episode   int     `json:"episode"`
	StartAt   float64 `json:"start_at"`
	Theme     string  `json:"theme"`
	UpdatedAt int64   `json:"updated_at"`
}

// RoomState is the init snapshot sent to a joining client.
type RoomState struct {
	IsPlaying   bool     `json:"is_playing"`
	CurrentTime float64  `json:"current_time"`
	UpdatedAt   int64    `json:"updated_at"`
	HostID      string   `json:"host_id"`
	Users       []Member `json:"users"`
	Media       *Media   `json:"media"`
}
