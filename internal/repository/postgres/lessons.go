package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/lessonbook/internal/domain"
	"github.com/kirinyoku/lessonbook/internal/repository"
)

const lessonColumns = `record_id, id, subject, location, price, image_path, spaces`

type LessonRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *LessonRepo) With(db DB) *LessonRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *LessonRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func scanLesson(row pgx.Row, l *domain.Lesson) error {
	return row.Scan(
		&l.RecordID,
		&l.ID,
		&l.Subject,
		&l.Location,
		&l.Price,
		&l.ImagePath,
		&l.Spaces,
	)
}

func collectLessons(rows pgx.Rows) ([]domain.Lesson, error) {
	defer rows.Close()

	out := []domain.Lesson{}
	for rows.Next() {
		var l domain.Lesson
		if err := scanLesson(rows, &l); err != nil {
			return nil, translateDBErr(err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, translateDBErr(err)
	}

	return out, nil
}

// GetByID retrieves a lesson by its public ID.
//
// Returns:
//   - *domain.Lesson: the lesson when found.
//   - error: repository.ErrNotFound if the lesson is not found.
func (r *LessonRepo) GetByID(ctx context.Context, id int64) (*domain.Lesson, error) {
	const op = "postgres.LessonRepo.GetByID"

	var l domain.Lesson
	err := scanLesson(r.handle().QueryRow(ctx,
		`SELECT `+lessonColumns+`
		 FROM lessons WHERE id = $1`,
		id,
	), &l)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &l, nil
}

func (r *LessonRepo) ListByIDs(ctx context.Context, ids []int64) ([]domain.Lesson, error) {
	const op = "postgres.LessonRepo.ListByIDs"

	rows, err := r.handle().Query(ctx,
		`SELECT `+lessonColumns+`
		 FROM lessons
		 WHERE id = ANY($1)
		 ORDER BY id`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := collectLessons(rows)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (r *LessonRepo) List(ctx context.Context) ([]domain.Lesson, error) {
	const op = "postgres.LessonRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT `+lessonColumns+`
		 FROM lessons
		 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := collectLessons(rows)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// SearchBySubject lists lessons whose subject contains substr, ignoring case.
// strpos is used instead of ILIKE so that % and _ in substr match literally.
func (r *LessonRepo) SearchBySubject(ctx context.Context, substr string) ([]domain.Lesson, error) {
	const op = "postgres.LessonRepo.SearchBySubject"

	rows, err := r.handle().Query(ctx,
		`SELECT `+lessonColumns+`
		 FROM lessons
		 WHERE strpos(lower(subject), lower($1)) > 0
		 ORDER BY id`,
		substr,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := collectLessons(rows)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (r *LessonRepo) DecrementSpaces(ctx context.Context, id int64, amount int) (*domain.Lesson, error) {
	const op = "postgres.LessonRepo.DecrementSpaces"

	db := r.handle()

	var l domain.Lesson
	err := scanLesson(db.QueryRow(ctx,
		`UPDATE lessons
		 SET spaces = spaces - $2, updated_at = now()
		 WHERE id = $1 AND spaces >= $2
		 RETURNING `+lessonColumns,
		id, amount,
	), &l)
	if err == nil {
		return &l, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	// The guard rejected the update or the lesson is missing; tell them apart.
	var subject string
	var spaces int
	err = db.QueryRow(ctx,
		`SELECT subject, spaces FROM lessons WHERE id = $1`,
		id,
	).Scan(&subject, &spaces)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil, fmt.Errorf("%s:%w", op, &repository.InsufficientSpacesError{
		LessonID:  id,
		Subject:   subject,
		Available: spaces,
		Requested: amount,
	})
}

func (r *LessonRepo) IncrementSpaces(ctx context.Context, id int64, amount int) (*domain.Lesson, error) {
	const op = "postgres.LessonRepo.IncrementSpaces"

	var l domain.Lesson
	err := scanLesson(r.handle().QueryRow(ctx,
		`UPDATE lessons
		 SET spaces = spaces + $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+lessonColumns,
		id, amount,
	), &l)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &l, nil
}

// LockByIDs row-locks the given lessons. Rows are locked in id order so that
// transactions touching overlapping lessons wait on each other instead of
// deadlocking.
func (r *LessonRepo) LockByIDs(ctx context.Context, ids []int64) error {
	const op = "postgres.LessonRepo.LockByIDs"

	rows, err := r.handle().Query(ctx,
		`SELECT id
		 FROM lessons
		 WHERE id = ANY($1)
		 ORDER BY id
		 FOR UPDATE`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}
	defer rows.Close()

	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// Update merges the non-nil fields of patch into the stored lesson.
//
// Returns:
//   - *domain.Lesson: the lesson after the update.
//   - error: repository.ErrNotFound if the lesson is not found.
func (r *LessonRepo) Update(ctx context.Context, id int64, patch domain.LessonPatch) (*domain.Lesson, error) {
	const op = "postgres.LessonRepo.Update"

	var l domain.Lesson
	err := scanLesson(r.handle().QueryRow(ctx,
		`UPDATE lessons
		 SET subject    = COALESCE($2, subject),
		     location   = COALESCE($3, location),
		     price      = COALESCE($4, price),
		     image_path = COALESCE($5, image_path),
		     spaces     = COALESCE($6, spaces),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+lessonColumns,
		id, patch.Subject, patch.Location, patch.Price, patch.ImagePath, patch.Spaces,
	), &l)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &l, nil
}

// BatchCreate inserts lessons in one batch. A duplicate public ID fails the
// whole batch with repository.ErrConflict.
func (r *LessonRepo) BatchCreate(ctx context.Context, lessons []domain.Lesson) error {
	const op = "postgres.LessonRepo.BatchCreate"

	batch := &pgx.Batch{}
	for _, l := range lessons {
		batch.Queue(
			`INSERT INTO lessons(id, subject, location, price, image_path, spaces)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			l.ID, l.Subject, l.Location, l.Price, l.ImagePath, l.Spaces,
		)
	}
	if err := r.handle().SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}
