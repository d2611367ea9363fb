package sqlxrepos

import (
	"database/sql"
	"database/sql/driver"

	"github.com/trezcool/kozi/core"
)

// trapShutdownErr maps fatal connection states to a shutdown error so the
// error handler can signal the server to stop. Returns nil for anything else.
func trapShutdownErr(err error) error {
	if err == sql.ErrConnDone || err == driver.ErrBadConn {
		return core.NewShutdownError(err.Error())
	}
	return nil
}
