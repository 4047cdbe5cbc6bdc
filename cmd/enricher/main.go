package main

import (
	"context"

	"site-file-enricher/cmd/enricher/commands"
	"site-file-enricher/lib/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext(context.Background())
	commands.ExecuteContext(ctx)
}
