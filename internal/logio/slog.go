package logio

import (
	"context"
	"fmt"
	"log/slog"
)

// Slogf returns a printf-style logging function, as accepted by options like
// WithLogf, that emits each formatted message as a record at level.
// Messages are only formatted when the logger enables level.
func Slogf(log *slog.Logger, level slog.Level) func(mess string, args ...interface{}) {
	return func(mess string, args ...interface{}) {
		ctx := context.Background()
		if !log.Enabled(ctx, level) {
			return
		}
		if len(args) > 0 {
			mess = fmt.Sprintf(mess, args...)
		}
		log.Log(ctx, level, mess)
	}
}
