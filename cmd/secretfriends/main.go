// Command secretfriends serves the friend-request API and manages its database.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/secretfriends/backend/internal/app"
)

func main() {
	if err := app.Run(context.Background(), os.Args[1:]); err != nil {
		slog.Error("secretfriends exited", "error", err)
		os.Exit(1)
	}
}
