//go:build cgo

package collectd

// #cgo CPPFLAGS: -DHAVE_CONFIG_H
// #cgo LDFLAGS: -ldl
// #include "plugin.h"
// #include <dlfcn.h>
// #include <errno.h>
// #include <stdbool.h>
// #include <stdint.h>
// #include <stdio.h>
// #include <stdlib.h>
//
// #define LOAD(f)                                                                \
//   if (f##_ptr == NULL) {                                                       \
//     void *hnd = dlopen(NULL, RTLD_LAZY);                                       \
//     f##_ptr = dlsym(hnd, #f);                                                  \
//     dlclose(hnd);                                                              \
//   }
//
// extern int gocd_config(oconfig_item_t *);
// extern int gocd_init(void);
// extern int gocd_read(user_data_t *);
// extern int gocd_write(data_set_t *, value_list_t *, user_data_t *);
// extern void gocd_log(int, char *, user_data_t *);
// extern int gocd_flush(cdtime_t, char *, user_data_t *);
// extern int gocd_notification(notification_t *, user_data_t *);
// extern int gocd_shutdown(void);
// extern void gocd_free(void *);
//
// static int (*plugin_register_complex_config_ptr)(char const *,
//                                                  int (*)(oconfig_item_t *));
// static int (*plugin_register_init_ptr)(char const *, plugin_init_cb);
// static int (*plugin_register_write_ptr)(char const *, plugin_write_cb,
//                                         user_data_t const *);
// static int (*plugin_register_log_ptr)(char const *, plugin_log_cb,
//                                       user_data_t const *);
// static int (*plugin_register_flush_ptr)(char const *, plugin_flush_cb,
//                                         user_data_t const *);
// static int (*plugin_register_notification_ptr)(char const *,
//                                                plugin_notification_cb,
//                                                user_data_t const *);
// static int (*plugin_register_shutdown_ptr)(char const *, plugin_shutdown_cb);
// static int (*plugin_dispatch_values_ptr)(value_list_t const *);
// static int (*plugin_dispatch_notification_ptr)(notification_t const *);
// static void (*plugin_log_ptr)(int, char const *, ...);
// static cdtime_t (*plugin_get_interval_ptr)(void);
// static int (*plugin_notification_meta_add_string_ptr)(notification_t *,
//                                                       char const *,
//                                                       char const *);
// static int (*plugin_notification_meta_add_signed_int_ptr)(notification_t *,
//                                                           char const *,
//                                                           int64_t);
// static int (*plugin_notification_meta_add_unsigned_int_ptr)(
//     notification_t *, char const *, uint64_t);
// static int (*plugin_notification_meta_add_double_ptr)(notification_t *,
//                                                       char const *, double);
// static int (*plugin_notification_meta_add_boolean_ptr)(notification_t *,
//                                                        char const *, bool);
// static int (*plugin_notification_meta_free_ptr)(notification_meta_t *);
// static meta_data_t *(*meta_data_create_ptr)(void);
// static void (*meta_data_destroy_ptr)(meta_data_t *);
// static int (*meta_data_add_string_ptr)(meta_data_t *, char const *,
//                                        char const *);
// static int (*meta_data_add_signed_int_ptr)(meta_data_t *, char const *,
//                                            int64_t);
// static int (*meta_data_add_unsigned_int_ptr)(meta_data_t *, char const *,
//                                              uint64_t);
// static int (*meta_data_add_double_ptr)(meta_data_t *, char const *, double);
// static int (*meta_data_add_boolean_ptr)(meta_data_t *, char const *, bool);
// static int (*meta_data_toc_ptr)(meta_data_t *, char ***);
// static int (*meta_data_type_ptr)(meta_data_t *, char const *);
// static int (*meta_data_get_string_ptr)(meta_data_t *, char const *, char **);
// static int (*meta_data_get_signed_int_ptr)(meta_data_t *, char const *,
//                                            int64_t *);
// static int (*meta_data_get_unsigned_int_ptr)(meta_data_t *, char const *,
//                                              uint64_t *);
// static int (*meta_data_get_double_ptr)(meta_data_t *, char const *,
//                                        double *);
// static int (*meta_data_get_boolean_ptr)(meta_data_t *, char const *, bool *);
// static __typeof__(hostname_g) *hostname_g_ptr;
//
// static user_data_t gocd_user_data(uint64_t id) {
//   return (user_data_t){
//       .data = (void *)(uintptr_t)id,
//       .free_func = gocd_free,
//   };
// }
//
// uint64_t gocd_ud_id(user_data_t *ud) {
//   return ud == NULL ? 0 : (uint64_t)(uintptr_t)ud->data;
// }
//
// uint64_t gocd_ptr_id(void *p) { return (uint64_t)(uintptr_t)p; }
//
// int gocd_register_config(char const *name) {
//   LOAD(plugin_register_complex_config);
//   if (plugin_register_complex_config_ptr == NULL)
//     return ENOSYS;
//   return (*plugin_register_complex_config_ptr)(name, gocd_config);
// }
//
// int gocd_register_init(char const *name) {
//   LOAD(plugin_register_init);
//   if (plugin_register_init_ptr == NULL)
//     return ENOSYS;
//   return (*plugin_register_init_ptr)(name, gocd_init);
// }
//
// int gocd_register_write(char const *name, uint64_t id) {
//   LOAD(plugin_register_write);
//   if (plugin_register_write_ptr == NULL)
//     return ENOSYS;
//   user_data_t ud = gocd_user_data(id);
//   return (*plugin_register_write_ptr)(name, (plugin_write_cb)gocd_write, &ud);
// }
//
// int gocd_register_log(char const *name, uint64_t id) {
//   LOAD(plugin_register_log);
//   if (plugin_register_log_ptr == NULL)
//     return ENOSYS;
//   user_data_t ud = gocd_user_data(id);
//   return (*plugin_register_log_ptr)(name, (plugin_log_cb)gocd_log, &ud);
// }
//
// int gocd_register_flush(char const *name, uint64_t id) {
//   LOAD(plugin_register_flush);
//   if (plugin_register_flush_ptr == NULL)
//     return ENOSYS;
//   user_data_t ud = gocd_user_data(id);
//   return (*plugin_register_flush_ptr)(name, (plugin_flush_cb)gocd_flush, &ud);
// }
//
// int gocd_register_notification(char const *name, uint64_t id) {
//   LOAD(plugin_register_notification);
//   if (plugin_register_notification_ptr == NULL)
//     return ENOSYS;
//   user_data_t ud = gocd_user_data(id);
//   return (*plugin_register_notification_ptr)(
//       name, (plugin_notification_cb)gocd_notification, &ud);
// }
//
// int gocd_register_shutdown(char const *name) {
//   LOAD(plugin_register_shutdown);
//   if (plugin_register_shutdown_ptr == NULL)
//     return ENOSYS;
//   return (*plugin_register_shutdown_ptr)(name, gocd_shutdown);
// }
//
// int gocd_dispatch_values(value_list_t const *vl) {
//   LOAD(plugin_dispatch_values);
//   if (plugin_dispatch_values_ptr == NULL)
//     return ENOSYS;
//   return (*plugin_dispatch_values_ptr)(vl);
// }
//
// int gocd_dispatch_notification(notification_t const *n) {
//   LOAD(plugin_dispatch_notification);
//   if (plugin_dispatch_notification_ptr == NULL)
//     return ENOSYS;
//   return (*plugin_dispatch_notification_ptr)(n);
// }
//
// void gocd_plugin_log(int level, char const *msg) {
//   LOAD(plugin_log);
//   if (plugin_log_ptr == NULL) {
//     fprintf(stderr, "%s\n", msg);
//     return;
//   }
//   (*plugin_log_ptr)(level, "%s", msg);
// }
//
// cdtime_t gocd_get_interval(void) {
//   LOAD(plugin_get_interval);
//   if (plugin_get_interval_ptr == NULL)
//     return 0;
//   return (*plugin_get_interval_ptr)();
// }
//
// char const *gocd_hostname(void) {
//   LOAD(hostname_g);
//   if (hostname_g_ptr == NULL)
//     return NULL;
//   return *hostname_g_ptr;
// }
//
// int gocd_notification_meta_add_string(notification_t *n, char const *k,
//                                       char const *v) {
//   LOAD(plugin_notification_meta_add_string);
//   if (plugin_notification_meta_add_string_ptr == NULL)
//     return ENOSYS;
//   return (*plugin_notification_meta_add_string_ptr)(n, k, v);
// }
//
// int gocd_notification_meta_add_signed_int(notification_t *n, char const *k,
//                                           int64_t v) {
//   LOAD(plugin_notification_meta_add_signed_int);
//   if (plugin_notification_meta_add_signed_int_ptr == NULL)
//     return ENOSYS;
//   return (*plugin_notification_meta_add_signed_int_ptr)(n, k, v);
// }
//
// int gocd_notification_meta_add_unsigned_int(notification_t *n,
//                                             char const *k, uint64_t v) {
//   LOAD(plugin_notification_meta_add_unsigned_int);
//   if (plugin_notification_meta_add_unsigned_int_ptr == NULL)
//     return ENOSYS;
//   return (*plugin_notification_meta_add_unsigned_int_ptr)(n, k, v);
// }
//
// int gocd_notification_meta_add_double(notification_t *n, char const *k,
//                                       double v) {
//   LOAD(plugin_notification_meta_add_double);
//   if (plugin_notification_meta_add_double_ptr == NULL)
//     return ENOSYS;
//   return (*plugin_notification_meta_add_double_ptr)(n, k, v);
// }
//
// int gocd_notification_meta_add_boolean(notification_t *n, char const *k,
//                                        bool v) {
//   LOAD(plugin_notification_meta_add_boolean);
//   if (plugin_notification_meta_add_boolean_ptr == NULL)
//     return ENOSYS;
//   return (*plugin_notification_meta_add_boolean_ptr)(n, k, v);
// }
//
// void gocd_notification_meta_free(notification_t *n) {
//   LOAD(plugin_notification_meta_free);
//   if (plugin_notification_meta_free_ptr != NULL && n->meta != NULL)
//     (*plugin_notification_meta_free_ptr)(n->meta);
//   n->meta = NULL;
// }
//
// meta_data_t *gocd_meta_data_create(void) {
//   LOAD(meta_data_create);
//   if (meta_data_create_ptr == NULL)
//     return NULL;
//   return (*meta_data_create_ptr)();
// }
//
// void gocd_meta_data_destroy(meta_data_t *md) {
//   LOAD(meta_data_destroy);
//   if (meta_data_destroy_ptr != NULL && md != NULL)
//     (*meta_data_destroy_ptr)(md);
// }
//
// int gocd_meta_data_add_string(meta_data_t *md, char const *k,
//                               char const *v) {
//   LOAD(meta_data_add_string);
//   if (meta_data_add_string_ptr == NULL)
//     return ENOSYS;
//   return (*meta_data_add_string_ptr)(md, k, v);
// }
//
// int gocd_meta_data_add_signed_int(meta_data_t *md, char const *k,
//                                   int64_t v) {
//   LOAD(meta_data_add_signed_int);
//   if (meta_data_add_signed_int_ptr == NULL)
//     return ENOSYS;
//   return (*meta_data_add_signed_int_ptr)(md, k, v);
// }
//
// int gocd_meta_data_add_unsigned_int(meta_data_t *md, char const *k,
//                                     uint64_t v) {
//   LOAD(meta_data_add_unsigned_int);
//   if (meta_data_add_unsigned_int_ptr == NULL)
//     return ENOSYS;
//   return (*meta_data_add_unsigned_int_ptr)(md, k, v);
// }
//
// int gocd_meta_data_add_double(meta_data_t *md, char const *k, double v) {
//   LOAD(meta_data_add_double);
//   if (meta_data_add_double_ptr == NULL)
//     return ENOSYS;
//   return (*meta_data_add_double_ptr)(md, k, v);
// }
//
// int gocd_meta_data_add_boolean(meta_data_t *md, char const *k, bool v) {
//   LOAD(meta_data_add_boolean);
//   if (meta_data_add_boolean_ptr == NULL)
//     return ENOSYS;
//   return (*meta_data_add_boolean_ptr)(md, k, v);
// }
//
// int gocd_meta_data_toc(meta_data_t *md, char ***toc) {
//   LOAD(meta_data_toc);
//   if (meta_data_toc_ptr == NULL || md == NULL)
//     return 0;
//   return (*meta_data_toc_ptr)(md, toc);
// }
//
// int gocd_meta_data_type(meta_data_t *md, char const *k) {
//   LOAD(meta_data_type);
//   if (meta_data_type_ptr == NULL)
//     return 0;
//   return (*meta_data_type_ptr)(md, k);
// }
//
// int gocd_meta_data_get_string(meta_data_t *md, char const *k, char **v) {
//   LOAD(meta_data_get_string);
//   if (meta_data_get_string_ptr == NULL)
//     return ENOSYS;
//   return (*meta_data_get_string_ptr)(md, k, v);
// }
//
// int gocd_meta_data_get_signed_int(meta_data_t *md, char const *k,
//                                   int64_t *v) {
//   LOAD(meta_data_get_signed_int);
//   if (meta_data_get_signed_int_ptr == NULL)
//     return ENOSYS;
//   return (*meta_data_get_signed_int_ptr)(md, k, v);
// }
//
// int gocd_meta_data_get_unsigned_int(meta_data_t *md, char const *k,
//                                     uint64_t *v) {
//   LOAD(meta_data_get_unsigned_int);
//   if (meta_data_get_unsigned_int_ptr == NULL)
//     return ENOSYS;
//   return (*meta_data_get_unsigned_int_ptr)(md, k, v);
// }
//
// int gocd_meta_data_get_double(meta_data_t *md, char const *k, double *v) {
//   LOAD(meta_data_get_double);
//   if (meta_data_get_double_ptr == NULL)
//     return ENOSYS;
//   return (*meta_data_get_double_ptr)(md, k, v);
// }
//
// int gocd_meta_data_get_boolean(meta_data_t *md, char const *k, bool *v) {
//   LOAD(meta_data_get_boolean);
//   if (meta_data_get_boolean_ptr == NULL)
//     return ENOSYS;
//   return (*meta_data_get_boolean_ptr)(md, k, v);
// }
//
// size_t gocd_values_len(value_list_t const *vl) {
//   return (size_t)vl->values_len;
// }
//
// void gocd_set_values(value_list_t *vl, value_t *values, size_t n) {
//   vl->values = values;
//   vl->values_len = n;
// }
//
// value_t *gocd_values_alloc(size_t n) { return calloc(n, sizeof(value_t)); }
//
// gauge_t gocd_value_gauge(value_t const *v, size_t i) { return v[i].gauge; }
// derive_t gocd_value_derive(value_t const *v, size_t i) { return v[i].derive; }
// counter_t gocd_value_counter(value_t const *v, size_t i) {
//   return v[i].counter;
// }
// absolute_t gocd_value_absolute(value_t const *v, size_t i) {
//   return v[i].absolute;
// }
//
// void gocd_set_gauge(value_t *v, size_t i, gauge_t x) { v[i].gauge = x; }
// void gocd_set_derive(value_t *v, size_t i, derive_t x) { v[i].derive = x; }
// void gocd_set_counter(value_t *v, size_t i, counter_t x) { v[i].counter = x; }
// void gocd_set_absolute(value_t *v, size_t i, absolute_t x) {
//   v[i].absolute = x;
// }
//
// size_t gocd_ds_num(data_set_t const *ds) { return (size_t)ds->ds_num; }
// data_source_t *gocd_ds_at(data_set_t const *ds, size_t i) {
//   return ds->ds + i;
// }
//
// int gocd_oconfig_values_num(oconfig_item_t const *ci) {
//   return ci->values_num;
// }
// oconfig_value_t *gocd_oconfig_value_at(oconfig_item_t const *ci, int i) {
//   return ci->values + i;
// }
// int gocd_oconfig_children_num(oconfig_item_t const *ci) {
//   return ci->children_num;
// }
// oconfig_item_t *gocd_oconfig_child_at(oconfig_item_t const *ci, int i) {
//   return ci->children + i;
// }
// char *gocd_oconfig_string(oconfig_value_t const *v) { return v->value.string; }
// double gocd_oconfig_number(oconfig_value_t const *v) {
//   return v->value.number;
// }
// int gocd_oconfig_boolean(oconfig_value_t const *v) {
//   return v->value.boolean;
// }
//
// char const *gocd_nm_string(notification_meta_t const *m) {
//   return m->nm_value.nm_string;
// }
// int64_t gocd_nm_signed_int(notification_meta_t const *m) {
//   return m->nm_value.nm_signed_int;
// }
// uint64_t gocd_nm_unsigned_int(notification_meta_t const *m) {
//   return m->nm_value.nm_unsigned_int;
// }
// double gocd_nm_double(notification_meta_t const *m) {
//   return m->nm_value.nm_double;
// }
// bool gocd_nm_boolean(notification_meta_t const *m) {
//   return m->nm_value.nm_boolean;
// }
import "C"

import (
	"fmt"
	"time"
	"unsafe"

	"collectd.szuro.net/pkg/api"
	"collectd.szuro.net/pkg/cdtime"
)

// Meta data type codes from meta_data.h and plugin.h.
const (
	mdTypeString      = 1
	mdTypeSignedInt   = 2
	mdTypeUnsignedInt = 3
	mdTypeDouble      = 4
	mdTypeBoolean     = 5

	nmTypeString      = 0
	nmTypeSignedInt   = 1
	nmTypeUnsignedInt = 2
	nmTypeDouble      = 3
	nmTypeBoolean     = 4
)

func status(op string, rc C.int) error {
	if rc != 0 {
		return &api.DispatchError{Op: op, Status: int(rc)}
	}
	return nil
}

// setArray copies s, NUL padded, into a fixed size char array.
func setArray(dst []C.char, s string) error {
	b, err := api.ToArray(s, len(dst))
	if err != nil {
		return err
	}
	for i, c := range b {
		dst[i] = C.char(c)
	}
	return nil
}

func getArray(src []C.char) (string, error) {
	return api.FromArray(C.GoBytes(unsafe.Pointer(&src[0]), C.int(len(src))))
}

func register(op string, name string, fn func(*C.char) C.int) error {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	return status(op, fn(cName))
}

func toCDTime(t time.Time) C.cdtime_t {
	return C.cdtime_t(cdtime.New(t))
}

func toCDDuration(d time.Duration) C.cdtime_t {
	return C.cdtime_t(cdtime.NewDuration(d))
}

func fromCDTime(t C.cdtime_t) time.Time {
	return cdtime.Time(t).Time()
}

func fromCDDuration(t C.cdtime_t) time.Duration {
	return cdtime.Time(t).Duration()
}

// newMetaData builds a meta_data_t. The caller destroys it.
func newMetaData(m api.Meta) (*C.meta_data_t, error) {
	if len(m) == 0 {
		return nil, nil
	}
	md := C.gocd_meta_data_create()
	if md == nil {
		return nil, fmt.Errorf("meta_data_create failed")
	}
	for _, k := range m.Keys() {
		if err := addMetaData(md, k, m[k]); err != nil {
			C.gocd_meta_data_destroy(md)
			return nil, err
		}
	}
	return md, nil
}

func addMetaData(md *C.meta_data_t, key string, v any) error {
	cKey := C.CString(key)
	defer C.free(unsafe.Pointer(cKey))

	v, err := api.NormalizeMetaValue(v)
	if err != nil {
		return fmt.Errorf("meta data %q: %w", key, err)
	}

	var rc C.int
	switch v := v.(type) {
	case string:
		cValue := C.CString(v)
		defer C.free(unsafe.Pointer(cValue))
		rc = C.gocd_meta_data_add_string(md, cKey, cValue)
	case int64:
		rc = C.gocd_meta_data_add_signed_int(md, cKey, C.int64_t(v))
	case uint64:
		rc = C.gocd_meta_data_add_unsigned_int(md, cKey, C.uint64_t(v))
	case float64:
		rc = C.gocd_meta_data_add_double(md, cKey, C.double(v))
	case bool:
		rc = C.gocd_meta_data_add_boolean(md, cKey, C.bool(v))
	default:
		return fmt.Errorf("meta data %q: unsupported type %T", key, v)
	}
	return status("meta_data_add", rc)
}

// readMetaData copies a meta_data_t. Entries of unknown type are skipped.
func readMetaData(md *C.meta_data_t) api.Meta {
	if md == nil {
		return nil
	}
	var toc **C.char
	n := int(C.gocd_meta_data_toc(md, &toc))
	if n <= 0 || toc == nil {
		return nil
	}
	keys := unsafe.Slice(toc, n)
	defer C.free(unsafe.Pointer(toc))

	m := make(api.Meta, n)
	for _, cKey := range keys {
		key := C.GoString(cKey)
		switch C.gocd_meta_data_type(md, cKey) {
		case mdTypeString:
			var v *C.char
			if C.gocd_meta_data_get_string(md, cKey, &v) == 0 && v != nil {
				m[key] = C.GoString(v)
				C.free(unsafe.Pointer(v))
			}
		case mdTypeSignedInt:
			var v C.int64_t
			if C.gocd_meta_data_get_signed_int(md, cKey, &v) == 0 {
				m[key] = int64(v)
			}
		case mdTypeUnsignedInt:
			var v C.uint64_t
			if C.gocd_meta_data_get_unsigned_int(md, cKey, &v) == 0 {
				m[key] = uint64(v)
			}
		case mdTypeDouble:
			var v C.double
			if C.gocd_meta_data_get_double(md, cKey, &v) == 0 {
				m[key] = float64(v)
			}
		case mdTypeBoolean:
			var v C.bool
			if C.gocd_meta_data_get_boolean(md, cKey, &v) == 0 {
				m[key] = bool(v)
			}
		}
		C.free(unsafe.Pointer(cKey))
	}
	return m
}
