package partkv

const (
	// DefaultPartitionSize is the maximum number of keys in a single
	// collection when no size is given.
	DefaultPartitionSize = 5000

	// DefaultCapacity is the capacity of a container created without one.
	DefaultCapacity = 100000
)

// PartitionsFor returns the number of partitions needed to hold capacity
// keys in partitions of at most maxPartitionSize keys. The result is the
// smallest prime not below ceil(capacity/maxPartitionSize); a prime count
// avoids aligning the routing modulus with patterns in key encodings.
//
// Note that 1 is accepted as a count, so a capacity that fits into a single
// partition yields exactly one.
func PartitionsFor(capacity, maxPartitionSize int) int {
	if maxPartitionSize <= 0 {
		maxPartitionSize = DefaultPartitionSize
	}
	return nextPrime(ceilDiv(capacity, maxPartitionSize))
}

// GrowPartitions recommends a partition count for a container whose primary
// group currently holds currentMaxSize keys, leaving 50% headroom.
func GrowPartitions(currentMaxSize, maxPartitionSize int) int {
	if maxPartitionSize <= 0 {
		maxPartitionSize = DefaultPartitionSize
	}
	needed := ceilDiv(currentMaxSize*3, 2)
	return nextPrime(ceilDiv(needed, maxPartitionSize))
}

// PartitionSize is the per-collection limit used for a group that should
// hold capacity keys. Small capacities get a single collection sized to fit.
func PartitionSize(capacity, maxPartitionSize int) int {
	if maxPartitionSize <= 0 {
		maxPartitionSize = DefaultPartitionSize
	}
	if capacity > 0 && capacity < maxPartitionSize {
		return capacity
	}
	return maxPartitionSize
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func nextPrime(n int) int {
	if n < 1 {
		n = 1
	}
	for !isPrime(n) {
		n++
	}
	return n
}

// isPrime treats 1 as prime.
func isPrime(n int) bool {
	if n < 1 {
		return false
	}
	for i := 2; i*i <= n; i++ {
		if n%i == 0 {
			return false
		}
	}
	return true
}
