// Command dashboard serves the admin dashboard.
package main

import (
	"github.com/trezcool/dailies/apps/shared"
	"github.com/trezcool/dailies/core"
)

func main() {
	shared.Run(core.AppDashboard)
}
