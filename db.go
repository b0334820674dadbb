package partkv

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"
)

const trackTxns = true

const (
	catalogBucket    = "catalog"
	containersBucket = "containers"
)

// DB persists named containers in a transactional key-value store.
type DB struct {
	st      storage
	logf    func(format string, args ...any)
	logger  *slog.Logger
	verbose bool

	lastSize    atomic.Int64
	ReaderCount atomic.Int64
	WriterCount atomic.Int64
	ReadCount   atomic.Uint64
	WriteCount  atomic.Uint64

	txns     []*Tx
	txnsLock sync.Mutex
}

type Options struct {
	// Logf receives verbose traces; defaults to the logger at debug level.
	Logf    func(format string, args ...any)
	Verbose bool

	// Logger receives structured warnings about container health.
	Logger *slog.Logger

	IsTesting bool
	MmapSize  int

	// InMemory keeps everything in memory; path is ignored.
	InMemory bool
}

func Open(path string, opt Options) (*DB, error) {
	var st storage
	if opt.InMemory {
		st = newMemStorage()
	} else {
		bopt := &bbolt.Options{}
		*bopt = *bbolt.DefaultOptions
		bopt.Timeout = 10 * time.Second
		if opt.IsTesting {
			bopt.NoSync = true
			bopt.NoFreelistSync = true
			bopt.InitialMmapSize = 1024 * 1024 * 5
		} else {
			bopt.InitialMmapSize = 1024 * 1024 * 1024
			bopt.FreelistType = bbolt.FreelistMapType
		}
		if opt.MmapSize != 0 {
			bopt.InitialMmapSize = opt.MmapSize
		}

		bdb, err := bbolt.Open(path, 0666, bopt)
		if err != nil {
			return nil, fmt.Errorf("partkv: %w", err)
		}
		st = newBoltStorage(bdb)
	}

	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logf := opt.Logf
	if logf == nil {
		logf = func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}
	}

	db := &DB{
		st:      st,
		logf:    logf,
		logger:  logger,
		verbose: opt.Verbose,
	}

	err := db.Tx(true, func(tx *Tx) error {
		for _, name := range []string{catalogBucket, containersBucket} {
			if _, err := tx.stx.CreateBucket(name, ""); err != nil {
				return fmt.Errorf("creating %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("partkv: %w", err)
	}
	return db, nil
}

// Size is the storage size seen by the most recently closed transaction.
func (db *DB) Size() int64 {
	return db.lastSize.Load()
}

func (db *DB) Close() {
	err := db.st.Close()
	if err != nil {
		panic(fmt.Errorf("partkv: closing: %w", err))
	}
}

func (db *DB) addTx(tx *Tx) {
	if !trackTxns {
		return
	}
	tx.startTime = time.Now()
	tx.stack = string(debug.Stack())

	db.txnsLock.Lock()
	defer db.txnsLock.Unlock()
	db.txns = append(db.txns, tx)
}

func (db *DB) removeTx(tx *Tx) {
	if !trackTxns {
		return
	}
	db.txnsLock.Lock()
	defer db.txnsLock.Unlock()

	found := -1
	for i, t := range db.txns {
		if t == tx {
			found = i
			break
		}
	}
	if found < 0 {
		panic("tx not found in list")
	}

	n := len(db.txns)
	db.txns[found] = db.txns[n-1]
	db.txns[n-1] = nil // ensure it gets collected
	db.txns = db.txns[:n-1]
}

func (db *DB) DescribeOpenTxns() string {
	if !trackTxns {
		return "OPEN TX TRACKING DISABLED"
	}

	db.txnsLock.Lock()
	txns := slices.Clone(db.txns)
	db.txnsLock.Unlock()

	if len(txns) == 0 {
		return "NO OPEN TRANSACTIONS"
	}

	slices.SortFunc(txns, func(a, b *Tx) int {
		return a.startTime.Compare(b.startTime)
	})

	now := time.Now()

	var buf strings.Builder
	fmt.Fprintf(&buf, "%d OPEN TRANSACTIONS:\n", len(txns))
	for _, tx := range txns {
		ms := now.Sub(tx.startTime).Milliseconds()
		if ms < 100 {
			fmt.Fprintf(&buf, "\n---\nopen for %d ms\n", ms)
		} else {
			fmt.Fprintf(&buf, "\n---\nopen for %d ms:\n%s", ms, tx.stack)
		}
	}

	return buf.String()
}
