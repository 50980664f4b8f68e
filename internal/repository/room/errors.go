package room

import "errors"

var (
	ErrMemberNotFound   = errors.New("member not found")
	ErrPlaybackNotFound = errors.New("playback not found")
	ErrMediaNotFound    = errors.New("media not found")
	ErrHostNotFound     = errors.New("host not found")
)
