package caption

import "math/bits"

// AssignTimes spreads a result's duration across its chunks in proportion to
// their character counts. The first chunk starts at offsetTicks, each chunk
// starts where the previous one ends, and the last chunk ends exactly at
// offsetTicks+durationTicks.
//
// The input slice is not modified.
func AssignTimes(chunks []Chunk, offsetTicks, durationTicks int64) []Chunk {
	if len(chunks) == 0 {
		return nil
	}
	out := make([]Chunk, len(chunks))
	copy(out, chunks)

	total := 0
	for _, c := range out {
		total += c.Runes
	}

	begin := offsetTicks
	cumulative := 0
	for i := range out {
		// Chunks without text still get an even share.
		if total == 0 {
			cumulative++
		} else {
			cumulative += out[i].Runes
		}
		denominator := total
		if denominator == 0 {
			denominator = len(out)
		}

		end := offsetTicks + mulDiv(durationTicks, int64(cumulative), int64(denominator))
		if i == len(out)-1 {
			end = offsetTicks + durationTicks
		}
		out[i].BeginTicks = begin
		out[i].EndTicks = end
		begin = end
	}
	return out
}

// mulDiv returns a*b/c for non-negative a and 0 <= b <= c without overflowing.
func mulDiv(a, b, c int64) int64 {
	if a <= 0 || b <= 0 || c <= 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	q, _ := bits.Div64(hi, lo, uint64(c))
	return int64(q)
}
