// Package postgres implements app.Store on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"qzone-service/internal/app"
	"qzone-service/internal/domain"
)

// maxIDQueries whitelists the logical table names the id allocator may touch.
var maxIDQueries = map[string]string{
	app.TableTopic:       `SELECT COALESCE(MAX(id), 0) FROM topics`,
	app.TableQuestion:    `SELECT COALESCE(MAX(id), 0) FROM questions`,
	app.TableOption:      `SELECT COALESCE(MAX(id), 0) FROM answer_options`,
	app.TableQuiz:        `SELECT COALESCE(MAX(id), 0) FROM quizzes`,
	app.TableResult:      `SELECT COALESCE(MAX(id), 0) FROM quiz_results`,
	app.TableSheetAnswer: `SELECT COALESCE(MAX(id), 0) FROM sheet_answers`,
}

// Store runs one parameterized statement per call. Serialization of
// read-then-write sequences is the caller's job, the same contract the
// in-memory store carries.
type Store struct {
	pool *pgxpool.Pool
}

var _ app.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) MaxID(ctx context.Context, table string) (int64, error) {
	query, ok := maxIDQueries[table]
	if !ok {
		return 0, fmt.Errorf("%w: unknown table %q", domain.ErrStorage, table)
	}
	var max int64
	if err := s.pool.QueryRow(ctx, query).Scan(&max); err != nil {
		return 0, fmt.Errorf("%w: max id of %s: %v", domain.ErrStorage, table, err)
	}
	return max, nil
}

func (s *Store) QuizStats(ctx context.Context, quizID int64) (int, int, error) {
	var participants, average int
	err := s.pool.QueryRow(ctx,
		`SELECT total_participants, average_marks FROM quizzes WHERE id = $1`, quizID).
		Scan(&participants, &average)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, fmt.Errorf("%w: quiz %d", domain.ErrNotFound, quizID)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("%w: read stats of quiz %d: %v", domain.ErrStorage, quizID, err)
	}
	return participants, average, nil
}

func (s *Store) SetQuizStats(ctx context.Context, quizID int64, participants, average int) error {
	return s.exec(ctx, fmt.Sprintf("quiz %d", quizID),
		`UPDATE quizzes SET total_participants = $2, average_marks = $3 WHERE id = $1`,
		quizID, participants, average)
}

func (s *Store) InsertTopic(ctx context.Context, t domain.Topic) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO topics (id, owner_id, name, question_count) VALUES ($1, $2, $3, $4)`,
		t.ID, t.OwnerID, t.Name, t.QuestionCount)
	if err != nil {
		return fmt.Errorf("%w: insert topic %d: %v", domain.ErrStorage, t.ID, err)
	}
	return nil
}

func (s *Store) Topic(ctx context.Context, id int64) (domain.Topic, error) {
	var t domain.Topic
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, question_count FROM topics WHERE id = $1`, id).
		Scan(&t.ID, &t.OwnerID, &t.Name, &t.QuestionCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Topic{}, fmt.Errorf("%w: topic %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Topic{}, fmt.Errorf("%w: load topic %d: %v", domain.ErrStorage, id, err)
	}
	return t, nil
}

func (s *Store) UpdateTopicName(ctx context.Context, id int64, name string) error {
	return s.exec(ctx, fmt.Sprintf("topic %d", id),
		`UPDATE topics SET name = $2 WHERE id = $1`, id, name)
}

func (s *Store) AddTopicQuestionCount(ctx context.Context, id int64, delta int) error {
	return s.exec(ctx, fmt.Sprintf("topic %d", id),
		`UPDATE topics SET question_count = question_count + $2 WHERE id = $1`, id, delta)
}

func (s *Store) TopicsByOwner(ctx context.Context, ownerID int64) ([]domain.Topic, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, name, question_count FROM topics WHERE owner_id = $1 ORDER BY id`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list topics of owner %d: %v", domain.ErrStorage, ownerID, err)
	}
	defer rows.Close()
	var topics []domain.Topic
	for rows.Next() {
		var t domain.Topic
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Name, &t.QuestionCount); err != nil {
			return nil, fmt.Errorf("%w: scan topic: %v", domain.ErrStorage, err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func (s *Store) DeleteTopic(ctx context.Context, id int64) error {
	return s.exec(ctx, fmt.Sprintf("topic %d", id), `DELETE FROM topics WHERE id = $1`, id)
}

func (s *Store) InsertQuestion(ctx context.Context, q domain.Question) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO questions (id, topic_id, owner_id, text, difficulty, correct_option_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		q.ID, q.TopicID, q.OwnerID, q.Text, int(q.Difficulty), q.CorrectOptionID)
	if err != nil {
		return fmt.Errorf("%w: insert question %d: %v", domain.ErrStorage, q.ID, err)
	}
	return nil
}

func (s *Store) InsertOption(ctx context.Context, id, questionID int64, text string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO answer_options (id, question_id, text) VALUES ($1, $2, $3)`,
		id, questionID, text)
	if err != nil {
		return fmt.Errorf("%w: insert option %d of question %d: %v", domain.ErrStorage, id, questionID, err)
	}
	return nil
}

func (s *Store) SetQuestionCorrectOption(ctx context.Context, questionID, optionID int64) error {
	return s.exec(ctx, fmt.Sprintf("question %d", questionID),
		`UPDATE questions SET correct_option_id = $2 WHERE id = $1`, questionID, optionID)
}

func (s *Store) Question(ctx context.Context, id int64) (domain.Question, error) {
	var q domain.Question
	var difficulty int
	err := s.pool.QueryRow(ctx,
		`SELECT id, topic_id, owner_id, text, difficulty, correct_option_id
		 FROM questions WHERE id = $1`, id).
		Scan(&q.ID, &q.TopicID, &q.OwnerID, &q.Text, &difficulty, &q.CorrectOptionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, fmt.Errorf("%w: question %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("%w: load question %d: %v", domain.ErrStorage, id, err)
	}
	q.Difficulty = domain.Difficulty(difficulty)
	q.Options, err = s.optionsOf(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

func (s *Store) optionsOf(ctx context.Context, questionID int64) ([]domain.Option, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, text FROM answer_options WHERE question_id = $1 ORDER BY id`, questionID)
	if err != nil {
		return nil, fmt.Errorf("%w: load options of question %d: %v", domain.ErrStorage, questionID, err)
	}
	defer rows.Close()
	var options []domain.Option
	for rows.Next() {
		var opt domain.Option
		if err := rows.Scan(&opt.ID, &opt.Text); err != nil {
			return nil, fmt.Errorf("%w: scan option: %v", domain.ErrStorage, err)
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}

func (s *Store) QuestionsByTopic(ctx context.Context, topicID int64, phrase string, difficulty domain.Difficulty) ([]domain.Question, error) {
	query := `SELECT id, topic_id, owner_id, text, difficulty, correct_option_id
	          FROM questions WHERE topic_id = $1`
	args := []interface{}{topicID}
	if phrase != "" {
		args = append(args, "%"+phrase+"%")
		query += fmt.Sprintf(` AND text ILIKE $%d`, len(args))
	}
	if difficulty != domain.DifficultyNone {
		args = append(args, int(difficulty))
		query += fmt.Sprintf(` AND difficulty = $%d`, len(args))
	}
	query += ` ORDER BY text`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list questions of topic %d: %v", domain.ErrStorage, topicID, err)
	}
	defer rows.Close()
	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		var d int
		if err := rows.Scan(&q.ID, &q.TopicID, &q.OwnerID, &q.Text, &d, &q.CorrectOptionID); err != nil {
			return nil, fmt.Errorf("%w: scan question: %v", domain.ErrStorage, err)
		}
		q.Difficulty = domain.Difficulty(d)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list questions of topic %d: %v", domain.ErrStorage, topicID, err)
	}
	for i := range questions {
		questions[i].Options, err = s.optionsOf(ctx, questions[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return questions, nil
}

func (s *Store) UpdateQuestionText(ctx context.Context, id int64, text string) error {
	return s.exec(ctx, fmt.Sprintf("question %d", id),
		`UPDATE questions SET text = $2 WHERE id = $1`, id, text)
}

func (s *Store) UpdateQuestionDifficulty(ctx context.Context, id int64, difficulty domain.Difficulty) error {
	return s.exec(ctx, fmt.Sprintf("question %d", id),
		`UPDATE questions SET difficulty = $2 WHERE id = $1`, id, int(difficulty))
}

func (s *Store) UpdateOptionText(ctx context.Context, optionID int64, text string) error {
	return s.exec(ctx, fmt.Sprintf("option %d", optionID),
		`UPDATE answer_options SET text = $2 WHERE id = $1`, optionID, text)
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	return s.exec(ctx, fmt.Sprintf("question %d", id), `DELETE FROM questions WHERE id = $1`, id)
}

func (s *Store) InsertQuiz(ctx context.Context, q domain.Quiz) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, topic_id, owner_id, name, start_at, duration_sec, is_public, total_participants, average_marks)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		q.ID, q.TopicID, q.OwnerID, q.Name, q.StartAt, q.DurationSec, q.IsPublic, q.TotalParticipants, q.AverageMarks)
	if err != nil {
		return fmt.Errorf("%w: insert quiz %d: %v", domain.ErrStorage, q.ID, err)
	}
	if len(q.QuestionIDs) > 0 {
		return s.SetQuizQuestions(ctx, q.ID, q.QuestionIDs)
	}
	return nil
}

func (s *Store) Quiz(ctx context.Context, id int64) (domain.Quiz, error) {
	var q domain.Quiz
	err := s.pool.QueryRow(ctx,
		`SELECT id, topic_id, owner_id, name, start_at, duration_sec, is_public, total_participants, average_marks
		 FROM quizzes WHERE id = $1`, id).
		Scan(&q.ID, &q.TopicID, &q.OwnerID, &q.Name, &q.StartAt, &q.DurationSec, &q.IsPublic, &q.TotalParticipants, &q.AverageMarks)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, fmt.Errorf("%w: quiz %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: load quiz %d: %v", domain.ErrStorage, id, err)
	}
	q.QuestionIDs, err = s.quizQuestionIDs(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	return q, nil
}

func (s *Store) quizQuestionIDs(ctx context.Context, quizID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT question_id FROM quiz_questions WHERE quiz_id = $1 ORDER BY position`, quizID)
	if err != nil {
		return nil, fmt.Errorf("%w: load questions of quiz %d: %v", domain.ErrStorage, quizID, err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan quiz question: %v", domain.ErrStorage, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) UpdateQuizName(ctx context.Context, id int64, name string) error {
	return s.exec(ctx, fmt.Sprintf("quiz %d", id),
		`UPDATE quizzes SET name = $2 WHERE id = $1`, id, name)
}

func (s *Store) UpdateQuizStart(ctx context.Context, id int64, startAt time.Time) error {
	return s.exec(ctx, fmt.Sprintf("quiz %d", id),
		`UPDATE quizzes SET start_at = $2 WHERE id = $1`, id, startAt)
}

func (s *Store) UpdateQuizDuration(ctx context.Context, id int64, durationSec int) error {
	return s.exec(ctx, fmt.Sprintf("quiz %d", id),
		`UPDATE quizzes SET duration_sec = $2 WHERE id = $1`, id, durationSec)
}

func (s *Store) UpdateQuizVisibility(ctx context.Context, id int64, public bool) error {
	return s.exec(ctx, fmt.Sprintf("quiz %d", id),
		`UPDATE quizzes SET is_public = $2 WHERE id = $1`, id, public)
}

// SetQuizQuestions rewrites the ordered membership rows in one transaction.
func (s *Store) SetQuizQuestions(ctx context.Context, quizID int64, questionIDs []int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin set questions of quiz %d: %v", domain.ErrStorage, quizID, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM quiz_questions WHERE quiz_id = $1`, quizID); err != nil {
		return fmt.Errorf("%w: clear questions of quiz %d: %v", domain.ErrStorage, quizID, err)
	}
	for pos, questionID := range questionIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO quiz_questions (quiz_id, question_id, position) VALUES ($1, $2, $3)`,
			quizID, questionID, pos)
		if err != nil {
			return fmt.Errorf("%w: add question %d to quiz %d: %v", domain.ErrStorage, questionID, quizID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: set questions of quiz %d: %v", domain.ErrStorage, quizID, err)
	}
	return nil
}

func (s *Store) QuizzesByOwner(ctx context.Context, ownerID int64) ([]domain.Quiz, error) {
	return s.quizList(ctx,
		`SELECT id, topic_id, owner_id, name, start_at, duration_sec, is_public, total_participants, average_marks
		 FROM quizzes WHERE owner_id = $1 ORDER BY id`, ownerID)
}

func (s *Store) PublicQuizzes(ctx context.Context, filter app.QuizFilter) ([]domain.Quiz, error) {
	query := `SELECT id, topic_id, owner_id, name, start_at, duration_sec, is_public, total_participants, average_marks
	          FROM quizzes WHERE is_public`
	var args []interface{}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		query += fmt.Sprintf(clause, len(args))
	}
	if filter.TopicID != 0 {
		add(` AND topic_id = $%d`, filter.TopicID)
	}
	if filter.NamePhrase != "" {
		add(` AND name ILIKE $%d`, "%"+filter.NamePhrase+"%")
	}
	if !filter.StartAfter.IsZero() {
		add(` AND start_at >= $%d`, filter.StartAfter)
	}
	if !filter.StartBefore.IsZero() {
		add(` AND start_at <= $%d`, filter.StartBefore)
	}
	if filter.MinDurationSec > 0 {
		add(` AND duration_sec >= $%d`, filter.MinDurationSec)
	}
	if filter.MaxDurationSec > 0 {
		add(` AND duration_sec <= $%d`, filter.MaxDurationSec)
	}
	query += ` ORDER BY start_at DESC`
	return s.quizList(ctx, query, args...)
}

func (s *Store) quizList(ctx context.Context, query string, args ...interface{}) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list quizzes: %v", domain.ErrStorage, err)
	}
	defer rows.Close()
	var quizzes []domain.Quiz
	for rows.Next() {
		var q domain.Quiz
		if err := rows.Scan(&q.ID, &q.TopicID, &q.OwnerID, &q.Name, &q.StartAt, &q.DurationSec, &q.IsPublic, &q.TotalParticipants, &q.AverageMarks); err != nil {
			return nil, fmt.Errorf("%w: scan quiz: %v", domain.ErrStorage, err)
		}
		quizzes = append(quizzes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list quizzes: %v", domain.ErrStorage, err)
	}
	for i := range quizzes {
		quizzes[i].QuestionIDs, err = s.quizQuestionIDs(ctx, quizzes[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return quizzes, nil
}

func (s *Store) DeleteQuiz(ctx context.Context, id int64) error {
	return s.exec(ctx, fmt.Sprintf("quiz %d", id), `DELETE FROM quizzes WHERE id = $1`, id)
}

func (s *Store) InsertResult(ctx context.Context, r domain.Result) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_results (id, quiz_id, participant_id, obtained_marks, percentage)
		 VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.QuizID, r.ParticipantID, r.ObtainedMarks, r.Percentage)
	if err != nil {
		return fmt.Errorf("%w: insert result %d: %v", domain.ErrStorage, r.ID, err)
	}
	return nil
}

func (s *Store) SetResultMarks(ctx context.Context, resultID int64, marks, percentage int) error {
	return s.exec(ctx, fmt.Sprintf("result %d", resultID),
		`UPDATE quiz_results SET obtained_marks = $2, percentage = $3 WHERE id = $1`,
		resultID, marks, percentage)
}

func (s *Store) Result(ctx context.Context, id int64) (domain.Result, error) {
	return s.resultRow(ctx,
		`SELECT id, quiz_id, participant_id, obtained_marks, percentage
		 FROM quiz_results WHERE id = $1`,
		fmt.Sprintf("result %d", id), id)
}

func (s *Store) ResultByQuizParticipant(ctx context.Context, quizID, participantID int64) (domain.Result, error) {
	return s.resultRow(ctx,
		`SELECT id, quiz_id, participant_id, obtained_marks, percentage
		 FROM quiz_results WHERE quiz_id = $1 AND participant_id = $2`,
		fmt.Sprintf("result for quiz %d participant %d", quizID, participantID),
		quizID, participantID)
}

func (s *Store) resultRow(ctx context.Context, query, what string, args ...interface{}) (domain.Result, error) {
	var r domain.Result
	err := s.pool.QueryRow(ctx, query, args...).
		Scan(&r.ID, &r.QuizID, &r.ParticipantID, &r.ObtainedMarks, &r.Percentage)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("%w: load %s: %v", domain.ErrStorage, what, err)
	}
	return r, nil
}

func (s *Store) ResultsByQuiz(ctx context.Context, quizID int64) ([]domain.Result, error) {
	return s.resultList(ctx,
		`SELECT id, quiz_id, participant_id, obtained_marks, percentage
		 FROM quiz_results WHERE quiz_id = $1 ORDER BY obtained_marks DESC, id`, quizID)
}

func (s *Store) ResultsByParticipant(ctx context.Context, participantID int64) ([]domain.Result, error) {
	return s.resultList(ctx,
		`SELECT id, quiz_id, participant_id, obtained_marks, percentage
		 FROM quiz_results WHERE participant_id = $1 ORDER BY id`, participantID)
}

func (s *Store) resultList(ctx context.Context, query string, arg int64) ([]domain.Result, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("%w: list results: %v", domain.ErrStorage, err)
	}
	defer rows.Close()
	var results []domain.Result
	for rows.Next() {
		var r domain.Result
		if err := rows.Scan(&r.ID, &r.QuizID, &r.ParticipantID, &r.ObtainedMarks, &r.Percentage); err != nil {
			return nil, fmt.Errorf("%w: scan result: %v", domain.ErrStorage, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Store) InsertSheetAnswer(ctx context.Context, id, resultID, questionID, optionID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sheet_answers (id, result_id, question_id, option_id) VALUES ($1, $2, $3, $4)`,
		id, resultID, questionID, optionID)
	if err != nil {
		return fmt.Errorf("%w: insert answer %d of result %d: %v", domain.ErrStorage, id, resultID, err)
	}
	return nil
}

func (s *Store) SheetAnswerOption(ctx context.Context, resultID, questionID int64) (int64, error) {
	var optionID int64
	err := s.pool.QueryRow(ctx,
		`SELECT option_id FROM sheet_answers WHERE result_id = $1 AND question_id = $2`,
		resultID, questionID).Scan(&optionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: no answer for result %d question %d", domain.ErrNotFound, resultID, questionID)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: load answer of result %d: %v", domain.ErrStorage, resultID, err)
	}
	return optionID, nil
}

// exec runs one statement and maps a zero-row update to ErrNotFound.
func (s *Store) exec(ctx context.Context, what, query string, args ...interface{}) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: update %s: %v", domain.ErrStorage, what, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	return nil
}
