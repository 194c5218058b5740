package tracker

// defaultHugeDatasetThreshold is the result-count at or above which a search
// drops issue history (changelog expansion) from every page after the
// first, regardless of band, to keep a huge search's response payload from ballooning. A caller
// that explicitly sets the threshold to 0 disables history universally,
// even for small searches.
const defaultHugeDatasetThreshold = 5000

// initialBatchSize is requested for a search's first page, before the
// server has reported a total result count to plan against.
const initialBatchSize = 50

// PageSize is the batch size and history-inclusion decision for one page of
// a search, chosen once the server has reported the search's total count.
type PageSize struct {
	BatchSize      int
	IncludeHistory bool
}

// planPage picks a batch size by the size band the total falls into, and
// decides whether to request issue history for this search:
//
//	total <  500   -> one batch covering the whole result set, with history
//	total <  2000   -> 500-issue batches, with history
//	total <  5000   -> 1000-issue batches, with history
//	total >= 5000   -> 1000-issue batches, without history
//
// hugeDatasetThreshold overrides the history cutover point above: a value
// of 0 disables history for every total, any positive value replaces 5000.
func planPage(total, hugeDatasetThreshold int) PageSize {
	return PageSize{
		BatchSize:      batchSizeForTotal(total),
		IncludeHistory: total < hugeDatasetThreshold,
	}
}

func batchSizeForTotal(total int) int {
	switch {
	case total < 500:
		if total <= 0 {
			return initialBatchSize
		}

		return total
	case total < 2000:
		return 500
	default:
		return 1000
	}
}
