// Package autoload initializes the process logger from the environment on
// import. Blank-import it from main.
package autoload

import (
	configx "github.com/BrianMwas/vocare/pkg/config"
	logx "github.com/BrianMwas/vocare/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
