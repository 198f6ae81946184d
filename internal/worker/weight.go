// Package worker implements the fixed goroutine pool that pulls mailboxes
// off the global queue, dispatches a weighted batch of their messages,
// and returns them (spec.md §4.3).
package worker

// weightTable spreads batch-size policy across workers so that different
// workers consume different fractions of any single mailbox per turn,
// reducing contention on the global queue (spec.md §4.3). Grounded
// verbatim on skynet_start.c's static weight table: the first four
// workers dispatch one message at a time, the next four drain the whole
// mailbox, then halves, quarters, eighths.
var weightTable = []int{
	-1, -1, -1, -1, 0, 0, 0, 0,
	1, 1, 1, 1, 1, 1, 1, 1,
	2, 2, 2, 2, 2, 2, 2, 2,
	3, 3, 3, 3, 3, 3, 3, 3,
}

// weightFor returns worker i's weight; workers beyond the table default
// to 0 (drain the whole mailbox each turn), matching the source.
func weightFor(i int) int {
	if i < len(weightTable) {
		return weightTable[i]
	}
	return 0
}

// batchSize computes how many messages to dispatch this turn from a
// mailbox currently holding length messages, per spec.md §4.3 step 4:
// w<0 dispatches exactly one; w==0 dispatches everything; w>0 dispatches
// ceil(length >> w), halving repeatedly.
func batchSize(weight, length int) int {
	if length <= 0 {
		return 0
	}
	if weight < 0 {
		return 1
	}
	if weight == 0 {
		return length
	}
	n := length >> uint(weight)
	if n<<uint(weight) < length {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}
