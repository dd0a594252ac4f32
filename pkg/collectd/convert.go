//go:build cgo

package collectd

// #include "plugin.h"
// #include <stdbool.h>
// #include <stdint.h>
// #include <stdlib.h>
//
// size_t gocd_values_len(value_list_t const *vl);
// void gocd_set_values(value_list_t *vl, value_t *values, size_t n);
// value_t *gocd_values_alloc(size_t n);
// gauge_t gocd_value_gauge(value_t const *v, size_t i);
// derive_t gocd_value_derive(value_t const *v, size_t i);
// counter_t gocd_value_counter(value_t const *v, size_t i);
// absolute_t gocd_value_absolute(value_t const *v, size_t i);
// void gocd_set_gauge(value_t *v, size_t i, gauge_t x);
// void gocd_set_derive(value_t *v, size_t i, derive_t x);
// void gocd_set_counter(value_t *v, size_t i, counter_t x);
// void gocd_set_absolute(value_t *v, size_t i, absolute_t x);
// size_t gocd_ds_num(data_set_t const *ds);
// data_source_t *gocd_ds_at(data_set_t const *ds, size_t i);
// int gocd_oconfig_values_num(oconfig_item_t const *ci);
// oconfig_value_t *gocd_oconfig_value_at(oconfig_item_t const *ci, int i);
// int gocd_oconfig_children_num(oconfig_item_t const *ci);
// oconfig_item_t *gocd_oconfig_child_at(oconfig_item_t const *ci, int i);
// char *gocd_oconfig_string(oconfig_value_t const *v);
// double gocd_oconfig_number(oconfig_value_t const *v);
// int gocd_oconfig_boolean(oconfig_value_t const *v);
// char const *gocd_nm_string(notification_meta_t const *m);
// int64_t gocd_nm_signed_int(notification_meta_t const *m);
// uint64_t gocd_nm_unsigned_int(notification_meta_t const *m);
// double gocd_nm_double(notification_meta_t const *m);
// bool gocd_nm_boolean(notification_meta_t const *m);
// int gocd_notification_meta_add_string(notification_t *n, char const *k, char const *v);
// int gocd_notification_meta_add_signed_int(notification_t *n, char const *k, int64_t v);
// int gocd_notification_meta_add_unsigned_int(notification_t *n, char const *k, uint64_t v);
// int gocd_notification_meta_add_double(notification_t *n, char const *k, double v);
// int gocd_notification_meta_add_boolean(notification_t *n, char const *k, bool v);
// void gocd_notification_meta_free(notification_t *n);
// void gocd_meta_data_destroy(meta_data_t *md);
import "C"

import (
	"fmt"
	"math"
	"unsafe"

	"collectd.szuro.net/pkg/api"
)

func readIdentifier(host, plugin, pluginInstance, typ, typeInstance []C.char) (api.Identifier, error) {
	var (
		id  api.Identifier
		err error
	)
	fields := []struct {
		name string
		src  []C.char
		dst  *string
	}{
		{"host", host, &id.Host},
		{"plugin", plugin, &id.Plugin},
		{"plugin_instance", pluginInstance, &id.PluginInstance},
		{"type", typ, &id.Type},
		{"type_instance", typeInstance, &id.TypeInstance},
	}
	for _, f := range fields {
		if *f.dst, err = getArray(f.src); err != nil {
			return api.Identifier{}, &api.FieldError{Field: f.name, Err: err}
		}
	}
	return id, nil
}

func writeIdentifier(id api.Identifier, host, plugin, pluginInstance, typ, typeInstance []C.char) error {
	fields := []struct {
		name string
		src  string
		dst  []C.char
	}{
		{"host", id.Host, host},
		{"plugin", id.Plugin, plugin},
		{"plugin_instance", id.PluginInstance, pluginInstance},
		{"type", id.Type, typ},
		{"type_instance", id.TypeInstance, typeInstance},
	}
	for _, f := range fields {
		if err := setArray(f.dst, f.src); err != nil {
			return &api.FieldError{Field: f.name, Err: err}
		}
	}
	return nil
}

func readDataSet(ds *C.data_set_t) (api.DataSet, error) {
	set := api.DataSet{}
	typ, err := getArray(ds._type[:])
	if err != nil {
		return set, &api.FieldError{Field: "data set type", Err: err}
	}
	set.Type = typ
	n := int(C.gocd_ds_num(ds))
	set.Sources = make([]api.DataSource, n)
	for i := range n {
		src := C.gocd_ds_at(ds, C.size_t(i))
		name, err := getArray(src.name[:])
		if err != nil {
			return set, &api.FieldError{Field: "data source name", Err: err}
		}
		set.Sources[i] = api.DataSource{
			Name: name,
			Type: api.DSType(src._type),
			Min:  float64(src.min),
			Max:  float64(src.max),
		}
	}
	return set, nil
}

// readValueList copies a daemon value list. Values are typed by ds, which
// the daemon guarantees has the same length.
func readValueList(ds *C.data_set_t, vl *C.value_list_t) (api.ValueList, error) {
	set, err := readDataSet(ds)
	if err != nil {
		return api.ValueList{}, err
	}
	id, err := readIdentifier(vl.host[:], vl.plugin[:], vl.plugin_instance[:], vl._type[:], vl.type_instance[:])
	if err != nil {
		return api.ValueList{}, err
	}

	n := int(C.gocd_values_len(vl))
	if n != len(set.Sources) {
		return api.ValueList{}, fmt.Errorf("%s: %w: %d values, %d data sources", id, api.ErrValueCountMismatch, n, len(set.Sources))
	}

	out := api.ValueList{
		Identifier: id,
		Time:       fromCDTime(vl.time),
		Interval:   fromCDDuration(vl.interval),
		Values:     make([]api.Value, n),
		Sources:    set.Sources,
		Meta:       readMetaData(vl.meta),
	}
	for i, src := range set.Sources {
		idx := C.size_t(i)
		switch src.Type {
		case api.DSTypeGauge:
			out.Values[i] = api.Gauge(C.gocd_value_gauge(vl.values, idx))
		case api.DSTypeDerive:
			out.Values[i] = api.Derive(C.gocd_value_derive(vl.values, idx))
		case api.DSTypeCounter:
			out.Values[i] = api.Counter(C.gocd_value_counter(vl.values, idx))
		case api.DSTypeAbsolute:
			out.Values[i] = api.Absolute(C.gocd_value_absolute(vl.values, idx))
		default:
			return api.ValueList{}, fmt.Errorf("%s: unknown data source type %d", id, src.Type)
		}
	}
	return out, nil
}

// newValueList converts a Go value list into C memory. The returned release
// func frees it and must be called once the daemon returns.
func newValueList(vl api.ValueList) (*C.value_list_t, func(), error) {
	cvl := (*C.value_list_t)(C.calloc(1, C.size_t(unsafe.Sizeof(C.value_list_t{}))))
	release := func() {
		if cvl.values != nil {
			C.free(unsafe.Pointer(cvl.values))
		}
		C.gocd_meta_data_destroy(cvl.meta)
		C.free(unsafe.Pointer(cvl))
	}

	if err := writeIdentifier(vl.Identifier, cvl.host[:], cvl.plugin[:], cvl.plugin_instance[:], cvl._type[:], cvl.type_instance[:]); err != nil {
		release()
		return nil, nil, err
	}
	if !vl.Time.IsZero() {
		cvl.time = toCDTime(vl.Time)
	}
	cvl.interval = toCDDuration(vl.Interval)

	values := C.gocd_values_alloc(C.size_t(len(vl.Values)))
	C.gocd_set_values(cvl, values, C.size_t(len(vl.Values)))
	for i, v := range vl.Values {
		idx := C.size_t(i)
		switch v := v.(type) {
		case api.Gauge:
			C.gocd_set_gauge(values, idx, C.gauge_t(v))
		case api.Derive:
			C.gocd_set_derive(values, idx, C.derive_t(v))
		case api.Counter:
			C.gocd_set_counter(values, idx, C.counter_t(v))
		case api.Absolute:
			C.gocd_set_absolute(values, idx, C.absolute_t(v))
		}
	}

	md, err := newMetaData(vl.Meta)
	if err != nil {
		release()
		return nil, nil, err
	}
	cvl.meta = md
	return cvl, release, nil
}

func readNotification(n *C.notification_t) (api.Notification, error) {
	id, err := readIdentifier(n.host[:], n.plugin[:], n.plugin_instance[:], n._type[:], n.type_instance[:])
	if err != nil {
		return api.Notification{}, err
	}
	msg, err := getArray(n.message[:])
	if err != nil {
		return api.Notification{}, &api.FieldError{Field: "message", Err: err}
	}
	out := api.Notification{
		Identifier: id,
		Severity:   api.Severity(n.severity),
		Time:       fromCDTime(n.time),
		Message:    msg,
	}

	for m := n.meta; m != nil; m = m.next {
		name, err := getArray(m.name[:])
		if err != nil {
			continue
		}
		if out.Meta == nil {
			out.Meta = api.Meta{}
		}
		switch m._type {
		case nmTypeString:
			out.Meta[name] = C.GoString(C.gocd_nm_string(m))
		case nmTypeSignedInt:
			out.Meta[name] = int64(C.gocd_nm_signed_int(m))
		case nmTypeUnsignedInt:
			out.Meta[name] = uint64(C.gocd_nm_unsigned_int(m))
		case nmTypeDouble:
			out.Meta[name] = float64(C.gocd_nm_double(m))
		case nmTypeBoolean:
			out.Meta[name] = bool(C.gocd_nm_boolean(m))
		}
	}
	return out, nil
}

func newNotification(n api.Notification) (*C.notification_t, func(), error) {
	cn := (*C.notification_t)(C.calloc(1, C.size_t(unsafe.Sizeof(C.notification_t{}))))
	release := func() {
		C.gocd_notification_meta_free(cn)
		C.free(unsafe.Pointer(cn))
	}

	if err := writeIdentifier(n.Identifier, cn.host[:], cn.plugin[:], cn.plugin_instance[:], cn._type[:], cn.type_instance[:]); err != nil {
		release()
		return nil, nil, err
	}
	if err := setArray(cn.message[:], n.Message); err != nil {
		release()
		return nil, nil, &api.FieldError{Field: "message", Err: err}
	}
	cn.severity = C.int(n.Severity)
	if !n.Time.IsZero() {
		cn.time = toCDTime(n.Time)
	}

	for _, k := range n.Meta.Keys() {
		if err := addNotificationMeta(cn, k, n.Meta[k]); err != nil {
			release()
			return nil, nil, err
		}
	}
	return cn, release, nil
}

func addNotificationMeta(n *C.notification_t, key string, v any) error {
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
		rc = C.gocd_notification_meta_add_string(n, cKey, cValue)
	case int64:
		rc = C.gocd_notification_meta_add_signed_int(n, cKey, C.int64_t(v))
	case uint64:
		rc = C.gocd_notification_meta_add_unsigned_int(n, cKey, C.uint64_t(v))
	case float64:
		rc = C.gocd_notification_meta_add_double(n, cKey, C.double(v))
	case bool:
		rc = C.gocd_notification_meta_add_boolean(n, cKey, C.bool(v))
	default:
		return fmt.Errorf("notification meta %q: unsupported type %T", key, v)
	}
	return status("plugin_notification_meta_add", rc)
}

// readConfigItem copies an oconfig tree. Values of unknown type are dropped.
func readConfigItem(ci *C.oconfig_item_t) api.ConfigItem {
	item := api.ConfigItem{Key: C.GoString(ci.key)}

	for i := range int(C.gocd_oconfig_values_num(ci)) {
		v := C.gocd_oconfig_value_at(ci, C.int(i))
		switch api.ConfigValueType(v._type) {
		case api.ConfigString:
			item.Values = append(item.Values, api.StringValue(C.GoString(C.gocd_oconfig_string(v))))
		case api.ConfigNumber:
			n := float64(C.gocd_oconfig_number(v))
			if math.IsNaN(n) {
				continue
			}
			item.Values = append(item.Values, api.NumberValue(n))
		case api.ConfigBoolean:
			item.Values = append(item.Values, api.BooleanValue(C.gocd_oconfig_boolean(v) != 0))
		}
	}
	for i := range int(C.gocd_oconfig_children_num(ci)) {
		item.Children = append(item.Children, readConfigItem(C.gocd_oconfig_child_at(ci, C.int(i))))
	}
	return item
}
