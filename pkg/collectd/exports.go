//go:build cgo

package collectd

// #include "plugin.h"
// #include <stdint.h>
//
// uint64_t gocd_ud_id(user_data_t *ud);
// uint64_t gocd_ptr_id(void *p);
import "C"

import (
	"fmt"
	"unsafe"

	"collectd.szuro.net/pkg/api"
	"collectd.szuro.net/pkg/logger"
)

//export module_register
func module_register() {
	module.ModuleRegister()
}

//export gocd_config
func gocd_config(ci *C.oconfig_item_t) C.int {
	return C.int(module.Configure(readConfigItem(ci)))
}

//export gocd_init
func gocd_init() C.int {
	return C.int(module.Init())
}

//export gocd_shutdown
func gocd_shutdown() C.int {
	return C.int(module.Shutdown())
}

//export gocd_read
func gocd_read(ud *C.user_data_t) C.int {
	return C.int(module.Read(uint64(C.gocd_ud_id(ud))))
}

//export gocd_write
func gocd_write(ds *C.data_set_t, vl *C.value_list_t, ud *C.user_data_t) C.int {
	v, err := readValueList(ds, vl)
	if err != nil {
		logger.Default().Error(fmt.Sprintf("write: %v", err))
		return -1
	}
	return C.int(module.Write(uint64(C.gocd_ud_id(ud)), v))
}

//export gocd_log
func gocd_log(severity C.int, msg *C.char, ud *C.user_data_t) {
	module.Log(uint64(C.gocd_ud_id(ud)), api.LogLevel(severity), C.GoString(msg))
}

//export gocd_flush
func gocd_flush(timeout C.cdtime_t, identifier *C.char, ud *C.user_data_t) C.int {
	var id string
	if identifier != nil {
		id = C.GoString(identifier)
	}
	return C.int(module.Flush(uint64(C.gocd_ud_id(ud)), fromCDDuration(timeout), id))
}

//export gocd_notification
func gocd_notification(n *C.notification_t, ud *C.user_data_t) C.int {
	v, err := readNotification(n)
	if err != nil {
		logger.Default().Error(fmt.Sprintf("notification: %v", err))
		return -1
	}
	return C.int(module.Notify(uint64(C.gocd_ud_id(ud)), v))
}

//export gocd_free
func gocd_free(p unsafe.Pointer) {
	module.Free(uint64(C.gocd_ptr_id(p)))
}
