// Package buffer provides an on-disk spool for value lists a write plugin
// could not deliver.
//
// Value lists are gob encoded, compressed with zstd and stored in BadgerDB
// with a TTL, so a target that stays down for longer than the TTL does not
// grow the spool without bound. A typical write plugin buffers on failure and
// drains the spool on the next successful write:
//
//	if err := p.send(vls); err != nil {
//	    return p.buf.Buffer(vls)
//	}
//	old, _ := p.buf.Fetch(100)
//	if len(old) > 0 && p.send(old) == nil {
//	    p.buf.Delete(old)
//	}
package buffer

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"

	"collectd.szuro.net/pkg/api"
	"collectd.szuro.net/pkg/logger"
)

// ErrDisabled is returned by every operation of a buffer opened with TTL 0.
var ErrDisabled = errors.New("buffer disabled")

const keyPrefix = "vl_"

// Buffer is a persistent, TTL-bounded store of value lists. It is safe for
// concurrent use.
type Buffer struct {
	// ttl defines how long records are kept before expiration
	ttl time.Duration

	// path is the directory where BadgerDB files are stored
	path string

	db  *badger.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
	log *slog.Logger
}

// Open opens or creates a buffer in dir. A ttl of 0 returns a disabled
// buffer whose operations fail with ErrDisabled.
func Open(dir string, ttl time.Duration) (*Buffer, error) {
	b := &Buffer{ttl: ttl, path: dir, log: logger.New("buffer")}
	if ttl <= 0 {
		return b, nil
	}

	opts := badger.DefaultOptions(dir).
		WithLogger(logger.FormatLogger{Logger: b.log}).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cannot open buffer in %s: %w", dir, err)
	}
	b.log.Debug("Initialized BadgerDB for offline buffering", slog.String("path", dir))

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		enc.Close()
		return nil, err
	}
	b.db, b.enc, b.dec = db, enc, dec
	return b, nil
}

// Enabled reports whether the buffer stores anything.
func (b *Buffer) Enabled() bool {
	return b != nil && b.db != nil
}

// Path returns the buffer's directory.
func (b *Buffer) Path() string {
	return b.path
}

// Key returns the key a value list is stored under.
func Key(vl api.ValueList) []byte {
	return []byte(keyPrefix + vl.Identifier.String() + ":" + strconv.FormatInt(vl.Time.UnixNano(), 10))
}

func (b *Buffer) encode(vl api.ValueList) ([]byte, error) {
	var value bytes.Buffer
	if err := gob.NewEncoder(&value).Encode(vl); err != nil {
		return nil, err
	}
	return b.enc.EncodeAll(value.Bytes(), nil), nil
}

func (b *Buffer) decode(val []byte) (api.ValueList, error) {
	var vl api.ValueList
	raw, err := b.dec.DecodeAll(val, nil)
	if err != nil {
		return vl, err
	}
	err = gob.NewDecoder(bytes.NewReader(raw)).Decode(&vl)
	return vl, err
}

// Buffer stores vls. A value list with the same identifier and time as a
// stored one replaces it.
func (b *Buffer) Buffer(vls []api.ValueList) error {
	if !b.Enabled() {
		return ErrDisabled
	}
	txn := b.db.NewTransaction(true)
	defer func() { txn.Discard() }()

	for _, vl := range vls {
		value, err := b.encode(vl)
		if err != nil {
			return fmt.Errorf("cannot encode %s: %w", vl.Identifier, err)
		}
		e := badger.NewEntry(Key(vl), value).WithTTL(b.ttl)
		err = txn.SetEntry(e)
		if errors.Is(err, badger.ErrTxnTooBig) {
			if err = txn.Commit(); err != nil {
				return err
			}
			txn = b.db.NewTransaction(true)
			err = txn.SetEntry(e)
		}
		if err != nil {
			return err
		}
	}
	return txn.Commit()
}

// Fetch returns up to n buffered value lists in key order. Records that fail
// to decode are logged and skipped.
func (b *Buffer) Fetch(n int) ([]api.ValueList, error) {
	if !b.Enabled() {
		return nil, ErrDisabled
	}
	var buffered []api.ValueList
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = n
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && len(buffered) < n; it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				b.log.Error("Failed to copy value from buffer", slog.String("key", string(item.Key())), slog.Any("error", err))
				continue
			}
			vl, err := b.decode(val)
			if err != nil {
				b.log.Error("Failed to decode from buffer", slog.String("key", string(item.Key())), slog.Any("error", err))
				continue
			}
			buffered = append(buffered, vl)
		}
		return nil
	})
	return buffered, err
}

// Delete removes vls, typically after they were delivered.
func (b *Buffer) Delete(vls []api.ValueList) error {
	if !b.Enabled() {
		return ErrDisabled
	}
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, vl := range vls {
		if err := wb.Delete(Key(vl)); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Len counts the buffered value lists.
func (b *Buffer) Len() (int, error) {
	if !b.Enabled() {
		return 0, ErrDisabled
	}
	n := 0
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close releases the database. Closing a disabled buffer is a no-op.
func (b *Buffer) Close() error {
	if !b.Enabled() {
		return nil
	}
	b.enc.Close()
	b.dec.Close()
	err := b.db.Close()
	b.db = nil
	return err
}
