package xport

import "strings"

// parseURI turns a "tcp://host:port" or "tcp://*:port" endpoint string
// into a dialable/listenable address and a bind flag. A "*" in the host
// position denotes a binding (server) endpoint, matching every other
// role in this package.
func parseURI(uri string) (addr string, bind bool) {
	const prefix = "tcp://"
	u := strings.TrimPrefix(uri, prefix)
	if strings.Contains(u, "*") {
		return strings.Replace(u, "*", "", 1), true
	}
	return u, false
}
