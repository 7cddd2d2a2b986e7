package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"qzone-service/internal/domain"
	"qzone-service/internal/idgen"
	"qzone-service/internal/keylock"
	"qzone-service/internal/scoring"
	"qzone-service/internal/stats"
)

// sheet is the in-process staging area for one (quiz, participant) pair.
// Staged answers live only here until Submit persists them.
type sheet struct {
	quizID        int64
	participantID int64

	mu        sync.Mutex
	staged    map[int64]int64 // questionID -> chosen optionID
	submitted bool
	resultID  int64
}

func newSheet(quizID, participantID int64) *sheet {
	return &sheet{
		quizID:        quizID,
		participantID: participantID,
		staged:        make(map[int64]int64),
	}
}

// SheetView is a read snapshot of an answer sheet.
type SheetView struct {
	QuizID        int64           `json:"quizId"`
	ParticipantID int64           `json:"participantId"`
	Staged        map[int64]int64 `json:"staged,omitempty"`
	Submitted     bool            `json:"submitted"`
	ResultID      int64           `json:"resultId,omitempty"`
}

// SubmitListener is notified after a submission lands, with the fresh quiz
// statistics. Used to push rank list updates.
type SubmitListener interface {
	ResultRecorded(ctx context.Context, result domain.Result, participants, average int)
}

// SheetService runs the answer-submission pipeline: staging, the one-shot
// Submit, scoring, and the statistics update. Sheets are keyed per
// (quiz, participant); submissions for the same pair are serialized through a
// named critical section so a second Result can never be created.
type SheetService struct {
	store    Store
	alloc    *idgen.Allocator
	agg      *stats.Aggregator
	scheme   scoring.Scheme
	clock    func() time.Time
	locks    *keylock.Registry
	listener SubmitListener

	mu     sync.Mutex
	sheets map[string]*sheet
}

func NewSheetService(store Store, alloc *idgen.Allocator, agg *stats.Aggregator, scheme scoring.Scheme) *SheetService {
	return &SheetService{
		store:  store,
		alloc:  alloc,
		agg:    agg,
		scheme: scheme,
		clock:  time.Now,
		locks:  keylock.New(),
		sheets: make(map[string]*sheet),
	}
}

// WithClock is test-only, for deterministic lifecycle checks.
func (s *SheetService) WithClock(clock func() time.Time) *SheetService {
	s.clock = clock
	return s
}

// SetListener registers the single submit listener. Call during wiring,
// before traffic.
func (s *SheetService) SetListener(l SubmitListener) {
	s.listener = l
}

// Open returns the caller's sheet for the quiz, creating it if needed. A
// sheet for an already-submitted quiz opens in the Submitted state. Drafts
// are invisible to participants.
func (s *SheetService) Open(ctx context.Context, callerID, quizID int64) (SheetView, error) {
	sh, _, err := s.open(ctx, callerID, quizID)
	if err != nil {
		return SheetView{}, err
	}
	return s.view(sh), nil
}

// GiveAnswer stages the chosen option for a question of the quiz, or clears
// the staged answer when optionText is empty. Permitted only for the sheet's
// owner, on an open sheet, while the quiz is running.
func (s *SheetService) GiveAnswer(ctx context.Context, callerID, quizID, questionID int64, optionText string) error {
	sh, quiz, err := s.open(ctx, callerID, quizID)
	if err != nil {
		return err
	}
	if err := s.writable(sh, quiz); err != nil {
		return err
	}

	inQuiz := false
	for _, id := range quiz.QuestionIDs {
		if id == questionID {
			inQuiz = true
			break
		}
	}
	if !inQuiz {
		return fmt.Errorf("%w: question %d not in quiz %d", domain.ErrNotFound, questionID, quizID)
	}

	if optionText == "" {
		sh.mu.Lock()
		delete(sh.staged, questionID)
		sh.mu.Unlock()
		return nil
	}

	question, err := s.store.Question(ctx, questionID)
	if err != nil {
		return err
	}
	optionID, ok := question.OptionIDByText(optionText)
	if !ok {
		// Rejected without touching previously staged state.
		return fmt.Errorf("%w: option %q does not belong to question %d", domain.ErrValidation, optionText, questionID)
	}

	sh.mu.Lock()
	sh.staged[questionID] = optionID
	sh.mu.Unlock()
	return nil
}

// Submit scores the sheet exactly once. The Result row is created first and
// anchors the one-submission invariant; staged answers are persisted after
// it. A failed answer write does not roll anything back: the sheet stays
// Submitted, the persisted subset is what gets scored, and the failure
// surfaces wrapped in the returned error alongside the standing Result.
func (s *SheetService) Submit(ctx context.Context, callerID, quizID int64) (domain.Result, error) {
	sh, quiz, err := s.open(ctx, callerID, quizID)
	if err != nil {
		return domain.Result{}, err
	}
	if err := s.writable(sh, quiz); err != nil {
		return domain.Result{}, err
	}

	unlock := s.locks.Lock(fmt.Sprintf("submit:%d:%d", quizID, callerID))
	defer unlock()

	// Re-check under the lock: a concurrent Submit may have won the race.
	if existing, err := s.store.ResultByQuizParticipant(ctx, quizID, callerID); err == nil {
		s.markSubmitted(sh, existing.ID)
		return domain.Result{}, fmt.Errorf("%w: sheet for quiz %d already submitted", domain.ErrConflict, quizID)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Result{}, err
	}

	result := domain.Result{QuizID: quizID, ParticipantID: callerID}
	resultID, err := s.alloc.Allocate(ctx, TableResult, func(ctx context.Context, id int64) error {
		result.ID = id
		return s.store.InsertResult(ctx, result)
	})
	if err != nil {
		return domain.Result{}, err
	}
	result.ID = resultID

	sh.mu.Lock()
	staged := make(map[int64]int64, len(sh.staged))
	for q, o := range sh.staged {
		staged[q] = o
	}
	sh.mu.Unlock()

	persisted := make(map[int64]int64, len(staged))
	var writeErr error
	for questionID, optionID := range staged {
		questionID, optionID := questionID, optionID
		_, err := s.alloc.Allocate(ctx, TableSheetAnswer, func(ctx context.Context, id int64) error {
			return s.store.InsertSheetAnswer(ctx, id, resultID, questionID, optionID)
		})
		if err != nil {
			if writeErr == nil {
				writeErr = err
			}
			continue
		}
		persisted[questionID] = optionID
	}

	key := make(map[int64]int64, len(quiz.QuestionIDs))
	for _, questionID := range quiz.QuestionIDs {
		question, err := s.store.Question(ctx, questionID)
		if err != nil {
			return result, err
		}
		key[questionID] = question.CorrectOptionID
	}

	outcome := s.scheme.Score(key, persisted)
	if err := s.store.SetResultMarks(ctx, resultID, outcome.ObtainedMarks, outcome.Percentage); err != nil {
		return result, err
	}
	result.ObtainedMarks = outcome.ObtainedMarks
	result.Percentage = outcome.Percentage

	participants, average, err := s.agg.Record(ctx, quizID, outcome.ObtainedMarks)
	if err != nil {
		return result, err
	}

	s.markSubmitted(sh, resultID)

	if s.listener != nil {
		s.listener.ResultRecorded(ctx, result, participants, average)
	}

	if writeErr != nil {
		return result, fmt.Errorf("submission recorded with dropped answers: %w", writeErr)
	}
	return result, nil
}

// GivenAnswer returns the persisted answer text for one question of the
// caller's submitted sheet.
func (s *SheetService) GivenAnswer(ctx context.Context, callerID, quizID, questionID int64) (string, error) {
	sh, _, err := s.open(ctx, callerID, quizID)
	if err != nil {
		return "", err
	}
	sh.mu.Lock()
	submitted, resultID := sh.submitted, sh.resultID
	sh.mu.Unlock()
	if !submitted {
		return "", fmt.Errorf("%w: sheet for quiz %d not submitted", domain.ErrConflict, quizID)
	}

	optionID, err := s.store.SheetAnswerOption(ctx, resultID, questionID)
	if err != nil {
		return "", err
	}
	question, err := s.store.Question(ctx, questionID)
	if err != nil {
		return "", err
	}
	text, ok := question.OptionTextByID(optionID)
	if !ok {
		return "", fmt.Errorf("%w: option %d missing on question %d", domain.ErrNotFound, optionID, questionID)
	}
	return text, nil
}

// open authenticates the caller, loads the quiz, and returns the pair's
// sheet, creating it on first touch. An existing Result marks the sheet
// Submitted immediately.
func (s *SheetService) open(ctx context.Context, callerID, quizID int64) (*sheet, domain.Quiz, error) {
	if callerID == 0 {
		return nil, domain.Quiz{}, fmt.Errorf("%w: caller required", domain.ErrUnauthorized)
	}
	quiz, err := s.store.Quiz(ctx, quizID)
	if err != nil {
		return nil, domain.Quiz{}, err
	}
	if !quiz.IsPublic {
		// Drafts do not exist from a participant's point of view.
		return nil, domain.Quiz{}, fmt.Errorf("%w: quiz %d", domain.ErrNotFound, quizID)
	}

	key := fmt.Sprintf("%d:%d", quizID, callerID)
	s.mu.Lock()
	sh, ok := s.sheets[key]
	if !ok {
		sh = newSheet(quizID, callerID)
		s.sheets[key] = sh
	}
	s.mu.Unlock()

	if !ok {
		if existing, err := s.store.ResultByQuizParticipant(ctx, quizID, callerID); err == nil {
			s.markSubmitted(sh, existing.ID)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Quiz{}, err
		}
	}
	return sh, quiz, nil
}

// writable applies the staging gate: open sheet, running quiz.
func (s *SheetService) writable(sh *sheet, quiz domain.Quiz) error {
	sh.mu.Lock()
	submitted := sh.submitted
	sh.mu.Unlock()
	if submitted {
		return fmt.Errorf("%w: sheet for quiz %d already submitted", domain.ErrConflict, quiz.ID)
	}
	if state := quiz.State(s.clock()); state != domain.QuizRunning {
		return fmt.Errorf("%w: quiz %d is %s, not running", domain.ErrConflict, quiz.ID, state)
	}
	return nil
}

func (s *SheetService) markSubmitted(sh *sheet, resultID int64) {
	sh.mu.Lock()
	sh.submitted = true
	sh.resultID = resultID
	sh.staged = make(map[int64]int64)
	sh.mu.Unlock()
}

func (s *SheetService) view(sh *sheet) SheetView {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	staged := make(map[int64]int64, len(sh.staged))
	for q, o := range sh.staged {
		staged[q] = o
	}
	return SheetView{
		QuizID:        sh.quizID,
		ParticipantID: sh.participantID,
		Staged:        staged,
		Submitted:     sh.submitted,
		ResultID:      sh.resultID,
	}
}
