package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/scrud-api/internal/models"
	"github.com/noah-isme/scrud-api/pkg/live"
)

const (
	gradeCachePrefix     = "grades:"
	invalidationDeadline = 2 * time.Second
)

func gradeCacheKey(studentID int64, level models.Level) string {
	return fmt.Sprintf("grades:student:%d:%s", studentID, level)
}

func studentGradePattern(studentID int64) string {
	return fmt.Sprintf("grades:student:%d:*", studentID)
}

// ComputeWeightedAverage folds enrollment rows, in the order given, into the
// ECTS-weighted average for level. Ungraded rows and rows of other levels are
// left out of both the sums and the details. The average is nil when no credits
// at the level are graded.
func ComputeWeightedAverage(rows []models.GradeCourse, level models.Level) (*float64, float64, []models.GradeDetail) {
	details := make([]models.GradeDetail, 0, len(rows))
	var weightedSum, totalECTS float64
	for _, row := range rows {
		points, graded := row.Score.Points()
		if !graded || row.Level != level {
			continue
		}
		weighted := points * row.ECTS
		weightedSum += weighted
		totalECTS += row.ECTS
		details = append(details, models.GradeDetail{
			CourseID:      row.CourseID,
			CourseName:    row.CourseName,
			ECTS:          row.ECTS,
			Score:         points,
			WeightedScore: weighted,
		})
	}
	if totalECTS <= 0 {
		return nil, 0, details
	}
	average := weightedSum / totalECTS
	return &average, totalECTS, details
}

// GradeService computes grade aggregates and keeps their cache coherent.
type GradeService struct {
	source       gradeSource
	cache        *CacheService
	ttl          time.Duration
	hub          *live.Hub
	subscription string
	logger       *zap.Logger

	// fills holds a read lock while it checks the generation and writes the
	// cache; invalidate bumps generations under the write lock.
	fillMu      sync.RWMutex
	epoch       uint64
	generations map[int64]uint64
}

type fillToken struct {
	epoch      uint64
	generation uint64
}

// NewGradeService constructs a GradeService. When hub is set, cached averages
// are invalidated synchronously on committed enrollment and course changes.
func NewGradeService(source gradeSource, cache *CacheService, ttl time.Duration, hub *live.Hub, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &GradeService{source: source, cache: cache, ttl: ttl, hub: hub, logger: logger, generations: map[int64]uint64{}}
	if hub != nil && cache.Enabled() {
		s.subscription = hub.Subscribe(s.invalidate, live.TableSubscribes, live.TableCourses)
	}
	return s
}

// Close stops cache invalidation.
func (s *GradeService) Close() {
	if s.subscription != "" {
		s.hub.Unsubscribe(s.subscription)
		s.subscription = ""
	}
}

// WeightedAverage returns the ECTS-weighted average of a student's graded
// enrollments at level together with the contributing courses.
func (s *GradeService) WeightedAverage(ctx context.Context, studentID int64, level models.Level) (*models.WeightedAverage, error) {
	level, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	key := gradeCacheKey(studentID, level)
	var cached models.WeightedAverage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	token := s.fillToken(studentID)
	rows, err := s.source.GradeCourses(ctx, studentID)
	if err != nil {
		return nil, storeError(err, "student not found", "load grades")
	}
	average, totalECTS, details := ComputeWeightedAverage(rows, level)
	result := &models.WeightedAverage{
		StudentID: studentID,
		Level:     level,
		LevelName: level.DisplayName(),
		Average:   average,
		TotalECTS: totalECTS,
		Details:   details,
	}
	s.fill(ctx, studentID, token, key, result)
	return result, nil
}

func (s *GradeService) fillToken(studentID int64) fillToken {
	s.fillMu.RLock()
	defer s.fillMu.RUnlock()
	return fillToken{epoch: s.epoch, generation: s.generations[studentID]}
}

// fill caches result unless the student's grades were invalidated after
// token was taken.
func (s *GradeService) fill(ctx context.Context, studentID int64, token fillToken, key string, result *models.WeightedAverage) {
	s.fillMu.RLock()
	defer s.fillMu.RUnlock()
	if s.epoch != token.epoch || s.generations[studentID] != token.generation {
		return
	}
	_ = s.cache.Set(ctx, key, result, s.ttl)
}

// Summary returns the unweighted mean and pass count across every level.
func (s *GradeService) Summary(ctx context.Context, studentID int64) (*models.GradeSummary, error) {
	rows, err := s.source.GradeCourses(ctx, studentID)
	if err != nil {
		return nil, storeError(err, "student not found", "load grades")
	}
	summary := &models.GradeSummary{StudentID: studentID, EnrolledCount: len(rows)}
	var total float64
	for _, row := range rows {
		points, graded := row.Score.Points()
		if !graded {
			continue
		}
		summary.GradedCount++
		total += points
		if row.Score.Passed() {
			summary.PassedCount++
		}
	}
	if summary.GradedCount > 0 {
		mean := total / float64(summary.GradedCount)
		summary.Mean = &mean
	}
	return summary, nil
}

func (s *GradeService) invalidate(change live.Change) {
	pattern := gradeCachePrefix + "*"
	s.fillMu.Lock()
	if change.Table == live.TableSubscribes && change.StudentID != 0 {
		pattern = studentGradePattern(change.StudentID)
		s.generations[change.StudentID]++
	} else {
		s.epoch++
	}
	s.fillMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), invalidationDeadline)
	defer cancel()
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.logger.Warn("grade cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}
