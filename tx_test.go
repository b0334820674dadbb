package partkv

import (
	"errors"
	"strings"
	"testing"
)

func TestTx_BeginUpdateRollsBackOnClose(t *testing.T) {
	db := setup(t)

	tx := db.BeginUpdate()
	must(Create[int](tx, "c", 0, 0, false))
	tx.Close() // rollback
	tx.Close()

	db.Read(func(tx *Tx) {
		if Exists(tx, "c") {
			t.Fatalf("container exists after rollback")
		}
	})
}

func TestTx_ReadOnlyRejectsWrites(t *testing.T) {
	db := setup(t)
	db.Write(func(tx *Tx) {
		must(Create[int](tx, "c", 0, 0, false))
	})

	err := db.ReadErr(func(tx *Tx) error {
		if tx.IsWritable() {
			t.Errorf("IsWritable() = true in a read transaction")
		}
		ct := must(Load[int](tx, "c"))
		ensureNoErr(t, ct.Write("a", 1))
		return Save(tx, "c", ct)
	})
	if !errors.Is(err, errTxNotWritable) {
		t.Fatalf("Save in read tx = %v, wanted errTxNotWritable", err)
	}
	err = db.ReadErr(func(tx *Tx) error { return Drop(tx, "c") })
	if !errors.Is(err, errTxNotWritable) {
		t.Fatalf("Drop in read tx = %v, wanted errTxNotWritable", err)
	}
}

func TestTx_Counters(t *testing.T) {
	db := setup(t)
	reads, writes := db.ReadCount.Load(), db.WriteCount.Load()
	db.Read(func(tx *Tx) {
		deepEqual(t, db.ReaderCount.Load(), int64(1))
	})
	db.Write(func(tx *Tx) {
		deepEqual(t, db.WriterCount.Load(), int64(1))
	})
	deepEqual(t, db.ReadCount.Load(), reads+1)
	deepEqual(t, db.WriteCount.Load(), writes+1)
	deepEqual(t, db.ReaderCount.Load(), int64(0))
	deepEqual(t, db.WriterCount.Load(), int64(0))
}

func TestTx_DescribeOpenTxns(t *testing.T) {
	db := setup(t)
	deepEqual(t, db.DescribeOpenTxns(), "NO OPEN TRANSACTIONS")

	tx := db.BeginRead()
	s := db.DescribeOpenTxns()
	if !strings.HasPrefix(s, "1 OPEN TRANSACTIONS:") {
		t.Errorf("DescribeOpenTxns() = %q, wanted 1 open transaction", s)
	}
	tx.Close()
	deepEqual(t, db.DescribeOpenTxns(), "NO OPEN TRANSACTIONS")
}
