package log

import (
	"flag"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// Setup binds the zap flags to fs, which must be parsed before the returned
// function is called. The function installs the logger and returns it named
// after component.
func Setup(fs *flag.FlagSet, component string) func() logr.Logger {
	opts := zap.Options{Development: true}
	opts.BindFlags(fs)
	return func() logr.Logger {
		log.SetLogger(zap.New(zap.UseFlagOptions(&opts)))
		return log.Log.WithName(component)
	}
}
