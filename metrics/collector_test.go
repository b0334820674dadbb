package metrics

import (
	"strings"
	"testing"

	"github.com/andreyvit/partkv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector(t *testing.T) {
	db, err := partkv.Open("", partkv.Options{InMemory: true, IsTesting: true})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	err = db.Tx(true, func(tx *partkv.Tx) error {
		ct, err := partkv.Create[string](tx, "users", 20, 10, false)
		if err != nil {
			return err
		}
		for _, k := range []string{"a", "b", "c", "d", "e"} {
			if err := ct.Write(k, k); err != nil {
				return err
			}
		}
		if _, err := ct.Resize(50, 10, false, false); err != nil {
			return err
		}
		return partkv.Save(tx, "users", ct)
	})
	if err != nil {
		t.Fatal(err)
	}

	c := NewCollector(db, "")
	exp := `
# HELP partkv_container_capacity Key limit of the primary group.
# TYPE partkv_container_capacity gauge
partkv_container_capacity{container="users"} 50
# HELP partkv_container_groups Attached groups; more than 1 means a migration is in progress.
# TYPE partkv_container_groups gauge
partkv_container_groups{container="users"} 2
# HELP partkv_container_partitions Partitions of the primary group.
# TYPE partkv_container_partitions gauge
partkv_container_partitions{container="users"} 5
# HELP partkv_container_size Keys stored across all groups; keys being migrated count once per group.
# TYPE partkv_container_size gauge
partkv_container_size{container="users"} 10
# HELP partkv_container_status Health level of the primary group: 0, 60, 70, 80 or 90.
# TYPE partkv_container_status gauge
partkv_container_status{container="users"} 0
# HELP partkv_container_usage_ratio Used divided by capacity.
# TYPE partkv_container_usage_ratio gauge
partkv_container_usage_ratio{container="users"} 0.1
# HELP partkv_container_used Keys stored in the primary group.
# TYPE partkv_container_used gauge
partkv_container_used{container="users"} 5
`
	names := []string{
		"partkv_container_capacity",
		"partkv_container_groups",
		"partkv_container_partitions",
		"partkv_container_size",
		"partkv_container_status",
		"partkv_container_usage_ratio",
		"partkv_container_used",
	}
	if err := testutil.CollectAndCompare(c, strings.NewReader(exp), names...); err != nil {
		t.Fatal(err)
	}

	if n := testutil.CollectAndCount(c, "partkv_container_partition_usage_ratio"); n != 5 {
		t.Errorf("partition_usage_ratio series = %d, wanted 5", n)
	}
	if n := testutil.CollectAndCount(c, "partkv_db_transactions_total"); n != 2 {
		t.Errorf("transactions_total series = %d, wanted 2", n)
	}
	if got := testutil.ToFloat64(c.scrapeErrors); got != 0 {
		t.Errorf("scrape errors = %v, wanted 0", got)
	}

	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register = %v", err)
	}
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather = %v", err)
	}
}

func TestCollectorNamespace(t *testing.T) {
	db, err := partkv.Open("", partkv.Options{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	c := NewCollector(db, "kv")
	if n := testutil.CollectAndCount(c, "kv_db_size_bytes"); n != 1 {
		t.Errorf("kv_db_size_bytes series = %d, wanted 1", n)
	}
	if n := testutil.CollectAndCount(c, "kv_container_used"); n != 0 {
		t.Errorf("kv_container_used series = %d, wanted 0", n)
	}
}
