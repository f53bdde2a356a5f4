package main

import (
	"ictu-backend/cmd/ictu-cli/commands"
	"ictu-backend/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
