package partkv

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

var errTxNotWritable = errors.New("transaction is read-only")

type Tx struct {
	db     *DB
	stx    storageTx
	closed bool

	startTime time.Time
	stack     string

	valueBufs [][]byte
}

func (db *DB) beginTx(writable bool) (*Tx, error) {
	stx, err := db.st.BeginTx(writable)
	if err != nil {
		return nil, err
	}
	tx := &Tx{
		db:  db,
		stx: stx,
	}
	if writable {
		db.WriterCount.Add(1)
		db.WriteCount.Add(1)
	} else {
		db.ReaderCount.Add(1)
		db.ReadCount.Add(1)
	}
	db.addTx(tx)
	return tx, nil
}

func (tx *Tx) DB() *DB {
	return tx.db
}

// Tx runs f in a transaction. A writable transaction commits if f returns
// nil and rolls back otherwise; a panic inside f is returned as an error.
func (db *DB) Tx(writable bool, f func(tx *Tx) error) error {
	tx, err := db.beginTx(writable)
	if err != nil {
		return fmt.Errorf("partkv: begin: %w", err)
	}
	defer tx.Close()

	err = safelyCall(f, tx)
	if err != nil || !writable {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("partkv: commit: %w", err)
	}
	return nil
}

type panicked struct {
	reason interface{}
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}

func safelyCall(fn func(*Tx) error, tx *Tx) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicked{p, string(debug.Stack())}
		}
	}()
	return fn(tx)
}

func (db *DB) BeginRead() *Tx {
	tx, err := db.beginTx(false)
	if err != nil {
		panic(fmt.Errorf("failed to start reading: %w", err))
	}
	return tx
}

func (db *DB) Read(f func(tx *Tx)) {
	tx := db.BeginRead()
	defer tx.Close()
	f(tx)
}

func (db *DB) ReadErr(f func(tx *Tx) error) error {
	return db.Tx(false, f)
}

func (db *DB) Write(f func(tx *Tx)) {
	tx := db.BeginUpdate()
	defer tx.Close()
	f(tx)
	err := tx.Commit()
	if err != nil {
		panic(fmt.Errorf("commit: %w", err))
	}
}

func (db *DB) BeginUpdate() *Tx {
	tx, err := db.beginTx(true)
	if err != nil {
		panic(fmt.Errorf("db.Begin(true) failed: %w", err))
	}
	return tx
}

func (tx *Tx) IsWritable() bool {
	return tx.stx.Writable()
}

func (tx *Tx) ensureWritable() error {
	if !tx.stx.Writable() {
		return errTxNotWritable
	}
	return nil
}

// valueBuf returns a pooled buffer that stays valid until the transaction
// closes, which is what bbolt requires of values passed to Put.
func (tx *Tx) valueBuf() []byte {
	return valueBytesPool.Get().([]byte)[:0]
}

func (tx *Tx) keepValueBuf(buf []byte) {
	if tx.valueBufs == nil {
		tx.valueBufs = arrayOfBytesPool.Get().([][]byte)
	}
	tx.valueBufs = append(tx.valueBufs, buf)
}

// Close rolls back unless committed. Safe to call more than once.
func (tx *Tx) Close() {
	if tx.closed {
		return
	}
	tx.closed = true

	// The only error Rollback returns after Commit is swallowed by the
	// backends, so anything else is unexpected.
	err := tx.stx.Rollback()
	if err != nil {
		panic(err)
	}
	if size := tx.stx.Size(); size > 0 {
		tx.db.lastSize.Store(size)
	}
	if tx.stx.Writable() {
		tx.db.WriterCount.Add(-1)
	} else {
		tx.db.ReaderCount.Add(-1)
	}
	tx.db.removeTx(tx)
	tx.release()
}

func (tx *Tx) release() {
	if tx.valueBufs != nil {
		for i, buf := range tx.valueBufs {
			valueBytesPool.Put(buf[:0])
			tx.valueBufs[i] = nil
		}
		arrayOfBytesPool.Put(tx.valueBufs[:0])
		tx.valueBufs = nil
	}
}

func (tx *Tx) Commit() error {
	return tx.stx.Commit()
}
