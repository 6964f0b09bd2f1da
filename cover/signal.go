package cover

type (
	// Signal is the best known feedback: for each edge
	// the union of hit count buckets seen so far.
	Signal struct {
		max   []byte
		edges int
	}
)

const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

var buckets [256]byte

func init() {
	for v := range buckets {
		buckets[v] = bucket(byte(v))
	}
}

func bucket(v byte) byte {
	switch {
	case v == 0:
		return 0
	case v == 1:
		return 1 << 0
	case v == 2:
		return 1 << 1
	case v == 3:
		return 1 << 2
	case v <= 7:
		return 1 << 3
	case v <= 15:
		return 1 << 4
	case v <= 31:
		return 1 << 5
	case v <= 127:
		return 1 << 6
	default:
		return 1 << 7
	}
}

// Bucket maps a hit count to its class: 0, 1, 2, 3, 4-7, 8-15, 16-31, 32-127, 128-255.
// Every non-zero class is a distinct bit.
func Bucket(v byte) byte { return buckets[v] }

func NewSignal() *Signal {
	return &Signal{}
}

// HasNew reports whether cur has an edge bucket never seen before.
func (s *Signal) HasNew(cur []byte) bool {
	for i, v := range cur {
		if v == 0 {
			continue
		}

		if i >= len(s.max) || buckets[v]&^s.max[i] != 0 {
			return true
		}
	}

	return false
}

// Merge adds cur buckets to the signal.
// It returns the number of edges hit for the first time
// and the number of edges which got a new bucket.
func (s *Signal) Merge(cur []byte) (newEdges, newBuckets int) {
	if len(cur) > len(s.max) {
		s.max = append(s.max, make([]byte, len(cur)-len(s.max))...)
	}

	for i, v := range cur {
		if v == 0 {
			continue
		}

		b := buckets[v]
		m := s.max[i]

		if b&^m == 0 {
			continue
		}

		if m == 0 {
			newEdges++
		} else {
			newBuckets++
		}

		s.max[i] = m | b
	}

	s.edges += newEdges

	return
}

// Edges is the number of edges ever hit.
func (s *Signal) Edges() int { return s.edges }

// Reset forgets everything.
func (s *Signal) Reset() {
	s.max = s.max[:0]
	s.edges = 0
}

// Hash is FNV-1a of bucketed counters.
// Inputs with the same hash took the same paths with similar hit counts.
func Hash(cur []byte) uint64 {
	h := uint64(fnvOffset64)

	for i, v := range cur {
		if v == 0 {
			continue
		}

		for _, x := range [...]byte{byte(i), byte(i >> 8), byte(i >> 16), byte(i >> 24), buckets[v]} {
			h ^= uint64(x)
			h *= fnvPrime64
		}
	}

	return h
}

// Count is the number of non-zero counters.
func Count(cur []byte) (n int) {
	for _, v := range cur {
		if v != 0 {
			n++
		}
	}

	return n
}
