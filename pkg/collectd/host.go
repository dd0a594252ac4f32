//go:build cgo

package collectd

// #include "plugin.h"
// #include <stdint.h>
// #include <stdlib.h>
//
// int gocd_register_config(char const *name);
// int gocd_register_init(char const *name);
// int gocd_register_write(char const *name, uint64_t id);
// int gocd_register_log(char const *name, uint64_t id);
// int gocd_register_flush(char const *name, uint64_t id);
// int gocd_register_notification(char const *name, uint64_t id);
// int gocd_register_shutdown(char const *name);
// int gocd_dispatch_values(value_list_t const *vl);
// int gocd_dispatch_notification(notification_t const *n);
// void gocd_plugin_log(int level, char const *msg);
// cdtime_t gocd_get_interval(void);
// char const *gocd_hostname(void);
import "C"

import (
	"time"
	"unsafe"

	"collectd.szuro.net/internal/bridge"
	"collectd.szuro.net/pkg/api"
	"collectd.szuro.net/pkg/plugin"
)

// Read callbacks share one group so they can be addressed together in the
// daemon's configuration.
const readGroup = "golang"

var module = bridge.New(cHost{}, plugin.GetRegistry())

func init() {
	module.Install()
}

// cHost is the daemon as seen from inside its own process.
type cHost struct{}

var _ bridge.Host = cHost{}

func (cHost) RegisterConfig(name string) error {
	return register("plugin_register_complex_config", name, func(n *C.char) C.int {
		return C.gocd_register_config(n)
	})
}

func (cHost) RegisterInit(name string) error {
	return register("plugin_register_init", name, func(n *C.char) C.int {
		return C.gocd_register_init(n)
	})
}

func (cHost) RegisterShutdown(name string) error {
	return register("plugin_register_shutdown", name, func(n *C.char) C.int {
		return C.gocd_register_shutdown(n)
	})
}

func (cHost) RegisterRead(name string, id uint64, interval time.Duration) error {
	return registerRead(name, id, interval)
}

func (cHost) RegisterWrite(name string, id uint64) error {
	return register("plugin_register_write", name, func(n *C.char) C.int {
		return C.gocd_register_write(n, C.uint64_t(id))
	})
}

func (cHost) RegisterLog(name string, id uint64) error {
	return register("plugin_register_log", name, func(n *C.char) C.int {
		return C.gocd_register_log(n, C.uint64_t(id))
	})
}

func (cHost) RegisterFlush(name string, id uint64) error {
	return register("plugin_register_flush", name, func(n *C.char) C.int {
		return C.gocd_register_flush(n, C.uint64_t(id))
	})
}

func (cHost) RegisterNotification(name string, id uint64) error {
	return register("plugin_register_notification", name, func(n *C.char) C.int {
		return C.gocd_register_notification(n, C.uint64_t(id))
	})
}

func (cHost) DispatchValues(vl api.ValueList) error {
	cvl, release, err := newValueList(vl)
	if err != nil {
		return err
	}
	defer release()
	return status("plugin_dispatch_values", C.gocd_dispatch_values(cvl))
}

// DispatchNotification fills in the host name and time the way the daemon's
// own plugins do before dispatching.
func (h cHost) DispatchNotification(n api.Notification) error {
	if n.Host == "" {
		n.Host = h.Hostname()
	}
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	cn, release, err := newNotification(n)
	if err != nil {
		return err
	}
	defer release()
	return status("plugin_dispatch_notification", C.gocd_dispatch_notification(cn))
}

func (cHost) Log(level api.LogLevel, msg string) {
	cMsg := C.CString(msg)
	defer C.free(unsafe.Pointer(cMsg))
	C.gocd_plugin_log(C.int(level), cMsg)
}

func (cHost) Interval() time.Duration {
	return fromCDDuration(C.gocd_get_interval())
}

func (cHost) Hostname() string {
	h := C.gocd_hostname()
	if h == nil {
		return ""
	}
	return C.GoString(h)
}
