package workers

import (
	"log"
	"sync"

	"github.com/avery-dunn/entomosysbackend/models"
	"github.com/avery-dunn/entomosysbackend/realtime"
	"github.com/avery-dunn/entomosysbackend/repository"
	"github.com/avery-dunn/entomosysbackend/services"
)

// PMIJob asks for one case's analysis result to be recomputed.
type PMIJob struct {
	CaseID uint
}

// PMIWorker is the PMI recalculation pool. It consumes case IDs flagged by
// the reconciler, recomputes the oldest detected stage and the PMI estimate,
// writes the case's analysis result and clears the recalculation flag.
type PMIWorker struct {
	JobQueue      chan PMIJob
	CaseRepo      repository.CaseRepositoryInterface
	DetectionRepo repository.DetectionRepositoryInterface
	ResultRepo    repository.AnalysisResultRepositoryInterface
	PMI           *services.PMIService
	Hub           *realtime.Hub
	Wg            sync.WaitGroup
	Pending       map[uint]bool
	Mutex         sync.Mutex
}

// NewPMIWorker starts the recalculation pool
func NewPMIWorker(
	caseRepo repository.CaseRepositoryInterface,
	detectionRepo repository.DetectionRepositoryInterface,
	resultRepo repository.AnalysisResultRepositoryInterface,
	pmi *services.PMIService,
	hub *realtime.Hub,
	queueSize, numWorkers int,
) *PMIWorker {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	w := &PMIWorker{
		JobQueue:      make(chan PMIJob, queueSize),
		CaseRepo:      caseRepo,
		DetectionRepo: detectionRepo,
		ResultRepo:    resultRepo,
		PMI:           pmi,
		Hub:           hub,
		Pending:       make(map[uint]bool),
	}
	w.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go w.worker(i)
	}
	log.Printf("Started %d PMI recalculation worker(s) with queue size %d", numWorkers, queueSize)
	return w
}

// Enqueue queues a case for recalculation. Cases already pending are not
// queued twice; a full queue drops the job, the flag on the case keeps it
// eligible for the next sweep.
func (w *PMIWorker) Enqueue(caseID uint) {
	w.Mutex.Lock()
	if w.Pending[caseID] {
		w.Mutex.Unlock()
		return
	}
	w.Pending[caseID] = true
	w.Mutex.Unlock()

	select {
	case w.JobQueue <- PMIJob{CaseID: caseID}:
	default:
		log.Printf("PMI worker: queue full, deferring case %d to next sweep", caseID)
		w.Mutex.Lock()
		delete(w.Pending, caseID)
		w.Mutex.Unlock()
	}
}

// EnqueuePending sweeps the database for cases whose recalculation flag is
// still set and queues them. Called at startup to pick up work left over
// from a previous run.
func (w *PMIWorker) EnqueuePending() {
	cases, err := w.CaseRepo.ListRecalculationNeeded()
	if err != nil {
		log.Printf("PMI worker: failed to sweep flagged cases: %v", err)
		return
	}
	for i := range cases {
		w.Enqueue(cases[i].ID)
	}
	if len(cases) > 0 {
		log.Printf("PMI worker: queued %d case(s) from startup sweep", len(cases))
	}
}

func (w *PMIWorker) worker(id int) {
	defer w.Wg.Done()

	log.Printf("PMI worker %d started", id)
	for job := range w.JobQueue {
		// drop the pending entry before recomputing: a reconcile that lands
		// mid-recompute must be able to queue a follow-up job, otherwise its
		// flag is erased by the unconditional clear in processCase and the
		// stale result survives until the next startup sweep
		w.Mutex.Lock()
		delete(w.Pending, job.CaseID)
		w.Mutex.Unlock()

		w.processCase(id, job.CaseID)
	}
	log.Printf("PMI worker %d stopping: job queue closed", id)
}

// processCase recomputes a single case's analysis result. A failure leaves
// the recalculation flag set so the case is retried on a later sweep.
func (w *PMIWorker) processCase(workerID int, caseID uint) {
	c, err := w.CaseRepo.GetByID(caseID)
	if err != nil {
		log.Printf("PMI worker %d: failed to load case %d: %v", workerID, caseID, err)
		return
	}

	detections, err := w.DetectionRepo.ListByCase(caseID)
	if err != nil {
		log.Printf("PMI worker %d: failed to load detections for case %d: %v", workerID, caseID, err)
		return
	}

	labels := make([]string, 0, len(detections))
	for i := range detections {
		labels = append(labels, detections[i].Label)
	}

	result := models.AnalysisResult{CaseID: caseID}
	if oldest, ok := services.OldestStage(labels); ok {
		result.OldestStageDetected = &oldest
		result.PMIHours = w.PMI.EstimateHours(oldest, c.AmbientTempC)
	}

	if err := w.ResultRepo.Upsert(&result); err != nil {
		log.Printf("PMI worker %d: failed to save analysis result for case %d: %v", workerID, caseID, err)
		return
	}
	if err := w.CaseRepo.SetRecalculationNeeded(caseID, false); err != nil {
		log.Printf("PMI worker %d: failed to clear recalculation flag for case %d: %v", workerID, caseID, err)
		return
	}

	if w.Hub != nil {
		w.Hub.Broadcast(realtime.Event{
			Type:   realtime.EventAnalysisCompleted,
			CaseID: caseID,
		})
	}
}

// Stop closes the queue and waits for in-flight jobs to finish
func (w *PMIWorker) Stop() {
	close(w.JobQueue)
	w.Wg.Wait()
}
