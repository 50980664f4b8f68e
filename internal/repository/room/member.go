package room

type Member struct {
	Nickname      string   `redis:"nickname" json:"nickname"`
	EstimatedTime *float64 `redis:"estimated_time" json:"estimated_time"`
	RTT           *int     `redis:"rtt" json:"rtt"`
	Downlink      *float64 `redis:"downlink" json:"downlink"`
	EffectiveType *string  `redis:"effective_type" json:"effective_type"`
	StatsAt       *int64   `redis:"stats_at" json:"stats_at"`
}

// MemberStats carries only the telemetry fields so a merge never touches
// the nickname.
type MemberStats struct {
	EstimatedTime *float64 `redis:"estimated_time" json:"estimated_time"`
	RTT           *int     `redis:"rtt" json:"rtt"`
	Downlink      *float64 `redis:"downlink" json:"downlink"`
	EffectiveType *string  `redis:"effective_type" json:"effective_type"`
	StatsAt       *int64   `redis:"stats_at" json:"stats_at"`
}

type AddMemberParams struct {
	ClientID string `json:"client_id"`
	Nickname string `json:"nickname"`
	RoomID   string `json:"room_id"`
}

type GetMemberParams struct {
	ClientID string `json:"client_id"`
	RoomID   string `json:"room_id"`
}

type RemoveMemberParams struct {
	ClientID string `json:"client_id"`
	RoomID   string `json:"room_id"`
}

type UpdateMemberStatsParams struct {
	ClientID      string   `json:"client_id"`
	RoomID        string   `json:"room_id"`
	EstimatedTime *float64 `json:"estimated_time"`
	RTT           *int     `json:"rtt"`
	Downlink      *float64 `json:"downlink"`
	EffectiveType *string  `json:"effective_type"`
	StatsAt       int64    `json:"stats_at"`
}
