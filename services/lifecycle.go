package services

// Insect life stage labels in canonical developmental order. Rank 0 is the
// least developed stage, rank 4 the most developed.
const (
	StageInstar1 = "instar_1"
	StageInstar2 = "instar_2"
	StageInstar3 = "instar_3"
	StagePupa    = "pupa"
	StageAdult   = "adult"
)

// Oldest-stage summary sentinels. A case with no detections at all is
// distinct from a case that simply has not been analyzed yet.
const (
	SummaryNoDetections = "no_detections"
	SummaryNotAnalyzed  = "not_analyzed"
)

// StageOrder lists the life stage labels from least to most developed.
var StageOrder = []string{StageInstar1, StageInstar2, StageInstar3, StagePupa, StageAdult}

var stageRanks = func() map[string]int {
	ranks := make(map[string]int, len(StageOrder))
	for i, label := range StageOrder {
		ranks[label] = i
	}
	return ranks
}()

// StageRank returns the developmental rank of a life stage label.
// Unrecognized labels fall back to rank 0 rather than failing; the detector
// occasionally emits labels outside the canonical set and those detections
// must still flow through the system.
func StageRank(label string) int {
	if rank, ok := stageRanks[label]; ok {
		return rank
	}
	return 0
}

// OldestStage returns the most developmentally advanced label in the
// collection. Ties resolve to the first-seen label of the winning rank.
// The second return value is false when the collection is empty.
func OldestStage(labels []string) (string, bool) {
	if len(labels) == 0 {
		return "", false
	}
	oldest := labels[0]
	oldestRank := StageRank(labels[0])
	for _, label := range labels[1:] {
		if rank := StageRank(label); rank > oldestRank {
			oldest = label
			oldestRank = rank
		}
	}
	return oldest, true
}
