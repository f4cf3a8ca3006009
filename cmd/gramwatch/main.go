package main

import (
	"gramwatch-backend/cmd/gramwatch/commands"
	"gramwatch-backend/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
