package partkv

import "testing"

func TestPartitionsFor(t *testing.T) {
	tests := []struct {
		capacity, partitionSize int
		want                    int
	}{
		{DefaultCapacity, DefaultPartitionSize, 23},
		{50000, 5000, 11},
		{150000, 5000, 31},
		{9000, 850, 11},
		{99000, 3300, 31},
		{150, 1500, 1},
		{25000, 5000, 5},
		{5000, 5000, 1},
		{5001, 5000, 2},
		{0, 5000, 1},
		{10, 0, 1},
	}
	for _, tt := range tests {
		if got := PartitionsFor(tt.capacity, tt.partitionSize); got != tt.want {
			t.Errorf("PartitionsFor(%d, %d) = %d, wanted %d", tt.capacity, tt.partitionSize, got, tt.want)
		}
	}
}

func TestGrowPartitions(t *testing.T) {
	tests := []struct {
		current, partitionSize int
		want                   int
	}{
		{5000, 5000, 2},    // 7500 -> 2
		{55000, 5000, 17},  // 82500 -> 17
		{115000, 5000, 37}, // 172500 -> 35 -> 37
		{1, 5000, 1},
		{0, 5000, 1},
	}
	for _, tt := range tests {
		if got := GrowPartitions(tt.current, tt.partitionSize); got != tt.want {
			t.Errorf("GrowPartitions(%d, %d) = %d, wanted %d", tt.current, tt.partitionSize, got, tt.want)
		}
	}
}

func TestPartitionSize(t *testing.T) {
	deepEqual(t, PartitionSize(150, 1500), 150)
	deepEqual(t, PartitionSize(9000, 850), 850)
	deepEqual(t, PartitionSize(0, 850), 850)
	deepEqual(t, PartitionSize(10, 0), 10)
}

func TestIsPrime(t *testing.T) {
	var primes []int
	for i := -2; i <= 30; i++ {
		if isPrime(i) {
			primes = append(primes, i)
		}
	}
	deepEqual(t, primes, []int{1, 2, 3, 5, 7, 11, 13, 17, 19, 23, 29})
}
