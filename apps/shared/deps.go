package shared

import (
	"log"

	"github.com/pkg/errors"

	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/activity"
	"github.com/trezcool/mergington/core/dashboard"
	"github.com/trezcool/mergington/core/session"
	apisvc "github.com/trezcool/mergington/services/api"
	logsvc "github.com/trezcool/mergington/services/logger"
	"github.com/trezcool/mergington/storage/filestore"
)

// Deps holds what every front end is built on.
type Deps struct {
	Conf    *core.Config
	Logger  core.Logger
	Session *session.Session
	Store   *activity.Store
	Gateway dashboard.Gateway
}

// NewDeps wires the logger, the durable session and the backend client from conf.
func NewDeps(conf *core.Config, std *log.Logger) (*Deps, error) {
	logger := logsvc.NewRollbarLogger(std, conf)

	slots, err := filestore.Open(conf.StorageDir)
	if err != nil {
		return nil, errors.Wrap(err, "opening client storage")
	}
	sess := session.New(slots)
	if err = sess.Restore(); err != nil {
		return nil, errors.Wrap(err, "restoring session")
	}

	gw, err := apisvc.NewClient(apisvc.OptionsFromConfig(conf, logger))
	if err != nil {
		return nil, errors.Wrap(err, "creating backend client")
	}
	return &Deps{
		Conf:    conf,
		Logger:  logger,
		Session: sess,
		Store:   activity.NewStore(),
		Gateway: gw,
	}, nil
}

// NewController returns a controller scheduled on a fresh loop; the caller runs it.
func (d *Deps) NewController(opts dashboard.Options) *dashboard.Controller {
	return dashboard.NewController(d.Gateway, d.Store, d.Session, dashboard.NewLoop(0), d.Logger, opts)
}
