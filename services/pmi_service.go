package services

// Accumulated degree hours (above the base temperature) required to reach
// each developmental stage, Calliphoridae rearing data. The estimate reads
// the onset threshold of the oldest stage observed.
var stageADH = map[string]float64{
	StageInstar1: 430,
	StageInstar2: 700,
	StageInstar3: 1070,
	StagePupa:    2280,
	StageAdult:   4370,
}

const defaultBaseTempC = 10.0

// PMIService estimates the post-mortem interval from the oldest detected
// life stage and the ambient scene temperature, using the accumulated
// degree hours model: hours = ADH(stage) / (ambient - base).
type PMIService struct {
	baseTempC float64
}

// NewPMIService creates a PMI estimator. A non-positive base temperature
// selects the default 10 degree Celsius development threshold.
func NewPMIService(baseTempC float64) *PMIService {
	if baseTempC <= 0 {
		baseTempC = defaultBaseTempC
	}
	return &PMIService{baseTempC: baseTempC}
}

// EstimateHours returns the estimated PMI in hours, or nil when no estimate
// is possible: unknown ambient temperature, or ambient at or below the base
// temperature (development effectively halts).
func (s *PMIService) EstimateHours(oldestStage string, ambientTempC *float64) *float64 {
	if ambientTempC == nil {
		return nil
	}
	effective := *ambientTempC - s.baseTempC
	if effective <= 0 {
		return nil
	}

	// unrecognized labels rank as the least developed stage, matching the
	// stage hierarchy fallback
	adh, ok := stageADH[oldestStage]
	if !ok {
		adh = stageADH[StageOrder[StageRank(oldestStage)]]
	}

	hours := adh / effective
	return &hours
}
