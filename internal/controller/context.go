package controller

import "context"

type contextKey int

const (
	clientIDCtxKey contextKey = iota
)

func (c *controller) getClientIDFromCtx(ctx context.Context) string {
	clientID, ok := ctx.Value(clientIDCtxKey).(string)
	if !ok {
		return ""
	}

	return clientID
}
