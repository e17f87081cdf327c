package query

import (
	"net/http"
	"time"

	"github.com/canopy-network/addrhistory/app/query/controller"
	"github.com/canopy-network/addrhistory/app/query/types"
	"github.com/canopy-network/addrhistory/pkg/utils"
	"go.uber.org/zap"
)

// NewServer builds the HTTP server on app.Server. No write timeout is set: a page
// over a sparse range may stream from the indexer for a long time.
func NewServer(app *types.App) error {
	ctler := controller.NewController(app)
	handler, err := ctler.Handler()
	if err != nil {
		return err
	}

	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := utils.Env("ADDR", ":3001")

	app.Server = &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	app.Logger.Info("Starting server", zap.String("addr", addr))

	return nil
}
