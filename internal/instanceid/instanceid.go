// Package instanceid generates the short, human-readable instance ids
// this module's cmd/ binaries attach to their metrics labels and log
// lines, so two processes serving the same endpoint name are easy to
// tell apart in a dashboard.
package instanceid

import (
	"time"

	"github.com/teris-io/shortid"
)

const alphabet = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

// New returns a fresh short id, seeded from the current time so
// successive processes don't collide.
func New() string {
	sid, err := shortid.New(1, alphabet, uint64(time.Now().UnixNano()))
	if err != nil {
		return "zrf"
	}
	id, err := sid.Generate()
	if err != nil {
		return "zrf"
	}
	return id
}
