// Command daily serves the student daily-status form.
package main

import (
	"github.com/trezcool/dailies/apps/shared"
	"github.com/trezcool/dailies/core"
)

func main() {
	shared.Run(core.AppDaily)
}
