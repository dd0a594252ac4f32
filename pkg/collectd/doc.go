/*
Package collectd is the runtime that turns a Go c-shared object into a
collectd plugin.

Importing it for side effects exports module_register and the C callbacks
collectd expects. When the daemon loads the shared object it calls
module_register, which registers a config callback for every manager found in
plugin.GetRegistry and an init and a shutdown callback for the module. The
managers' plugins are created in the init callback, after the configuration
has been read, and their read, write, log, flush and notification callbacks
are registered with the daemon at that point.

Daemon functions are resolved with dlsym at their first use, so the shared
object does not need to be linked against collectd.

	package main

	import (
	    _ "collectd.szuro.net/pkg/collectd"
	    "collectd.szuro.net/pkg/plugin"
	)

	func init() {
	    plugin.RegisterManager(myManager{})
	}

	func main() {}

Build against the daemon's headers:

	export COLLECTD_SRC=/path/to/collectd
	export CGO_CPPFLAGS="-I${COLLECTD_SRC}/src/daemon -I${COLLECTD_SRC}/src"
	go build -buildmode=c-shared -o myplugin.so

collectd 5.5 and later are supported by default. Add -tags collectd54 for
5.4, whose read callbacks are registered with a struct timespec interval.
*/
package collectd
