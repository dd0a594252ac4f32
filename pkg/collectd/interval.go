//go:build cgo && !collectd54

package collectd

// #include "plugin.h"
// #include <dlfcn.h>
// #include <errno.h>
// #include <stdint.h>
// #include <stdlib.h>
//
// extern int gocd_read(user_data_t *);
// extern void gocd_free(void *);
//
// static int (*plugin_register_complex_read_ptr)(char const *, char const *,
//                                                plugin_read_cb, cdtime_t,
//                                                user_data_t const *);
//
// int gocd_register_read(char const *group, char const *name, uint64_t id,
//                        cdtime_t interval) {
//   if (plugin_register_complex_read_ptr == NULL) {
//     void *hnd = dlopen(NULL, RTLD_LAZY);
//     plugin_register_complex_read_ptr =
//         dlsym(hnd, "plugin_register_complex_read");
//     dlclose(hnd);
//   }
//   if (plugin_register_complex_read_ptr == NULL)
//     return ENOSYS;
//   user_data_t ud = {
//       .data = (void *)(uintptr_t)id,
//       .free_func = gocd_free,
//   };
//   return (*plugin_register_complex_read_ptr)(group, name, gocd_read,
//                                              interval, &ud);
// }
import "C"

import (
	"time"
	"unsafe"
)

func registerRead(name string, id uint64, interval time.Duration) error {
	cGroup := C.CString(readGroup)
	defer C.free(unsafe.Pointer(cGroup))
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	// A zero interval selects the daemon's global interval.
	return status("plugin_register_complex_read", C.gocd_register_read(cGroup, cName, C.uint64_t(id), toCDDuration(interval)))
}
