package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-presensi-api/internal/models"
)

// EnrollmentRepository reads the enrolled audience for a class.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListParticipants returns the active students of a class, the audience
// scored and reminded for every session of the class's meetings.
func (r *EnrollmentRepository) ListParticipants(ctx context.Context, classID string) ([]models.Participant, error) {
	query := `SELECT e.student_id, s.full_name, s.phone
FROM enrollments e
JOIN students s ON s.id = e.student_id
WHERE e.class_id = $1 AND e.status = 'active'
ORDER BY s.full_name ASC`
	var participants []models.Participant
	if err := r.db.SelectContext(ctx, &participants, query, classID); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return participants, nil
}
