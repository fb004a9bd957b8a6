package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/brightpath-app/scheduling-api/internal/dto"
	"github.com/brightpath-app/scheduling-api/internal/models"
	appErrors "github.com/brightpath-app/scheduling-api/pkg/errors"
)

const (
	generationMethodGreedy = "greedy_v1"
	weekDays               = 5
)

type childReader interface {
	FindByID(ctx context.Context, id string) (*models.ChildProfile, error)
}

type featureSource interface {
	FeaturesFor(ctx context.Context, child *models.ChildProfile) (dto.FeatureVector, error)
}

type constraintCollector interface {
	Collect(ctx context.Context, child *models.ChildProfile, weekStart time.Time) (*ConstraintSet, error)
}

type scheduleStore interface {
	SupersedeActive(ctx context.Context, exec sqlx.ExtContext, childID string, weekStart time.Time) (int64, error)
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error
	InsertItems(ctx context.Context, exec sqlx.ExtContext, items []models.ScheduleItem) error
	FindActive(ctx context.Context, childID string, weekStart time.Time) (*models.Schedule, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	ListItems(ctx context.Context, scheduleID string) ([]models.ScheduleItem, error)
}

type activeModelReader interface {
	FindActive(ctx context.Context) (*models.EvaluatorModel, error)
}

type scheduleCache interface {
	Get(ctx context.Context, childID, weekStart string, dest any) error
	Set(ctx context.Context, childID, weekStart string, value any) error
	Invalidate(ctx context.Context, childID, weekStart string) error
}

type uniqueViolationChecker func(error) bool

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type generationObserver interface {
	ObserveGeneration(duration time.Duration, unscheduled int)
	ObserveRegenerationRace()
	ObserveCacheLookup(hit bool)
}

// GeneratorService builds one child's week with greedy slot filling and
// persists it under the single-active-schedule invariant.
type GeneratorService struct {
	children    childReader
	features    featureSource
	constraints constraintCollector
	schedules   scheduleStore
	modelReader activeModelReader
	cache       scheduleCache
	tx          txProvider
	isUnique    uniqueViolationChecker
	metrics     generationObserver
	defaults    models.GeneratorParams
	logger      *zap.Logger
}

// NewGeneratorService wires generator dependencies. The defaults are the
// tuning set used until a trained evaluator model supplies its own; a
// zero-value set falls back to the built-in defaults.
func NewGeneratorService(
	children childReader,
	features featureSource,
	constraints constraintCollector,
	schedules scheduleStore,
	modelReader activeModelReader,
	cache scheduleCache,
	tx txProvider,
	isUnique uniqueViolationChecker,
	metrics generationObserver,
	defaults models.GeneratorParams,
	logger *zap.Logger,
) *GeneratorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if isUnique == nil {
		isUnique = func(error) bool { return false }
	}
	if defaults.MaxBlockMinutes == 0 {
		defaults = models.DefaultGeneratorParams()
	}
	return &GeneratorService{
		children:    children,
		features:    features,
		constraints: constraints,
		schedules:   schedules,
		modelReader: modelReader,
		cache:       cache,
		tx:          tx,
		isUnique:    isUnique,
		metrics:     metrics,
		defaults:    defaults,
		logger:      logger,
	}
}

// Generate builds and persists a new active schedule for (child, week). Any
// previous active schedule is superseded in the same transaction; losing a
// concurrent regeneration race fails cleanly with REGENERATION_RACE.
func (s *GeneratorService) Generate(ctx context.Context, childID string, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	started := time.Now()

	weekStart, err := parseWeekStart(req.WeekStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid weekStart")
	}

	child, err := s.children.FindByID(ctx, childID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}

	features, err := s.features.FeaturesFor(ctx, child)
	if err != nil {
		return nil, err
	}
	constraints, err := s.constraints.Collect(ctx, child, weekStart)
	if err != nil {
		return nil, err
	}

	params, paramsVersion := s.activeParams(ctx)
	items, meta := buildWeek(features, constraints, child, params)

	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule metadata")
	}
	schedule := &models.Schedule{
		ChildID:          child.ID,
		WeekStart:        weekStart,
		GenerationMethod: generationMethodGreedy,
		ParamsVersion:    paramsVersion,
		Meta:             types.JSONText(metaBytes),
	}

	if err := s.persist(ctx, schedule, items, weekStart); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, child.ID, req.WeekStart); err != nil {
			s.logger.Warn("failed to invalidate schedule cache", zap.Error(err))
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveGeneration(time.Since(started), len(meta.UnscheduledSubjects))
	}
	if len(meta.UnscheduledSubjects) > 0 {
		s.logger.Info("generation exceeded weekly capacity",
			zap.String("childId", child.ID),
			zap.Int("unscheduledSubjects", len(meta.UnscheduledSubjects)))
	}

	return &dto.GenerateScheduleResponse{
		Schedule:            *schedule,
		Items:               items,
		UnscheduledSubjects: meta.UnscheduledSubjects,
	}, nil
}

func (s *GeneratorService) persist(ctx context.Context, schedule *models.Schedule, items []models.ScheduleItem, weekStart time.Time) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = s.schedules.SupersedeActive(ctx, tx, schedule.ChildID, weekStart); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to supersede active schedule")
		return err
	}
	if err = s.schedules.CreateVersioned(ctx, tx, schedule); err != nil {
		if s.isUnique(err) {
			if s.metrics != nil {
				s.metrics.ObserveRegenerationRace()
			}
			err = appErrors.Clone(appErrors.ErrRegenerationRace, "")
			return err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
		return err
	}
	for i := range items {
		items[i].ScheduleID = schedule.ID
	}
	if err = s.schedules.InsertItems(ctx, tx, items); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule items")
		return err
	}
	if err = tx.Commit(); err != nil {
		if s.isUnique(err) {
			if s.metrics != nil {
				s.metrics.ObserveRegenerationRace()
			}
			err = appErrors.Clone(appErrors.ErrRegenerationRace, "")
			return err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule transaction")
		return err
	}
	return nil
}

// Active returns the active schedule plus items for (child, week), cached.
func (s *GeneratorService) Active(ctx context.Context, childID, weekStartRaw string) (*dto.ActiveScheduleResponse, error) {
	weekStart, err := parseWeekStart(weekStartRaw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid weekStart")
	}

	if s.cache != nil {
		var cached dto.ActiveScheduleResponse
		if err := s.cache.Get(ctx, childID, weekStartRaw, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.ObserveCacheLookup(true)
			}
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("schedule cache read failed", zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.ObserveCacheLookup(false)
		}
	}

	schedule, err := s.schedules.FindActive(ctx, childID, weekStart)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active schedule for this week")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	items, err := s.schedules.ListItems(ctx, schedule.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule items")
	}

	resp := &dto.ActiveScheduleResponse{Schedule: *schedule, Items: items}
	if s.cache != nil {
		if err := s.cache.Set(ctx, childID, weekStartRaw, resp); err != nil {
			s.logger.Warn("schedule cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}

// Items returns one schedule version with its items, active or superseded.
func (s *GeneratorService) Items(ctx context.Context, scheduleID string) (*dto.ActiveScheduleResponse, error) {
	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	items, err := s.schedules.ListItems(ctx, schedule.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule items")
	}
	return &dto.ActiveScheduleResponse{Schedule: *schedule, Items: items}, nil
}

// activeParams loads the tuning set of the active evaluator model, falling
// back to the configured defaults when no model has been trained yet.
func (s *GeneratorService) activeParams(ctx context.Context) (models.GeneratorParams, int) {
	params := s.defaults
	if s.modelReader == nil {
		return params, 0
	}
	model, err := s.modelReader.FindActive(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to load active evaluator model, using default params", zap.Error(err))
		}
		return params, 0
	}
	var tuned models.GeneratorParams
	if err := json.Unmarshal(model.GeneratorParams, &tuned); err != nil || tuned.MaxBlockMinutes == 0 {
		return params, model.Version
	}
	return tuned, model.Version
}

// --- Greedy week construction ---

// buildWeek is a pure function of its inputs: identical features, constraints,
// profile and params always produce the identical item list.
func buildWeek(features dto.FeatureVector, constraints *ConstraintSet, child *models.ChildProfile, params models.GeneratorParams) ([]models.ScheduleItem, models.ScheduleMeta) {
	blockMinutes := deriveBlockMinutes(features, params)
	breaksFrequency := deriveBreaksFrequency(features.StructureScore)
	dayStartHour := deriveDayStartHour(features.StructureScore, params)

	dayStart := dayStartHour * 60
	if dayStart < child.HoursStartMinute {
		dayStart = child.HoursStartMinute
	}
	dayEnd := child.HoursEndMinute
	segments := learningSegments(child, dayStart, dayEnd)

	remaining := make(map[string]int, len(constraints.Subjects))
	rotation := make([]models.Subject, 0, len(constraints.Subjects))
	for _, subject := range constraints.Subjects {
		if subject.FixedDay != nil && subject.FixedStartMinute != nil {
			continue // already a fixed block
		}
		remaining[subject.ID] = subject.Frequency.WeeklySessions()
		rotation = append(rotation, subject)
	}

	fixedByDay := make(map[int][]FixedBlock, weekDays)
	for _, block := range constraints.FixedBlocks {
		fixedByDay[block.Day] = append(fixedByDay[block.Day], block)
	}

	var items []models.ScheduleItem
	pointer := 0

	for day := 1; day <= weekDays; day++ {
		dayFixed := fixedByDay[day]
		sort.Slice(dayFixed, func(i, j int) bool { return dayFixed[i].StartMinute < dayFixed[j].StartMinute })

		// fixed blocks land verbatim, even when they fall outside the
		// homeschooling window
		for _, block := range dayFixed {
			items = append(items, models.ScheduleItem{
				Day:          block.Day,
				ItemType:     block.ItemType,
				StartMinute:  block.StartMinute,
				EndMinute:    block.EndMinute,
				Label:        block.Label,
				SubjectID:    block.SubjectID,
				CommitmentID: block.CommitmentID,
			})
		}

		// the pointer carries over from the previous day, advanced one extra
		// step so any one subject does not always land last in the week
		if day > 1 {
			pointer++
		}
		cursor := dayStart
		consecutive := 0
		placedToday := make(map[string]bool, len(rotation))

		for {
			subjectIdx, ok := nextSubject(rotation, remaining, placedToday, pointer)
			if !ok {
				break
			}
			subject := rotation[subjectIdx]
			duration := sessionDuration(subject, blockMinutes, params)

			start, placed := placeInSegments(cursor, duration, segments, dayFixed)
			if !placed {
				break
			}
			id := subject.ID
			items = append(items, models.ScheduleItem{
				Day:         day,
				ItemType:    models.ItemTypeSubject,
				StartMinute: start,
				EndMinute:   start + duration,
				Label:       subject.Name,
				SubjectID:   &id,
			})
			remaining[subject.ID]--
			placedToday[subject.ID] = true
			pointer = subjectIdx + 1
			cursor = start + duration
			consecutive++

			if consecutive >= breaksFrequency {
				breakStart, ok := placeInSegments(cursor, params.BreakMinutes, segments, dayFixed)
				if ok {
					items = append(items, models.ScheduleItem{
						Day:         day,
						ItemType:    models.ItemTypeBreak,
						StartMinute: breakStart,
						EndMinute:   breakStart + params.BreakMinutes,
						Label:       "Break",
					})
					cursor = breakStart + params.BreakMinutes
				}
				consecutive = 0
			}
		}
	}

	meta := models.ScheduleMeta{
		BlockMinutes:    blockMinutes,
		BreaksFrequency: breaksFrequency,
		DayStartHour:    dayStartHour,
		LowConfidence:   features.LowConfidence,
	}
	for _, subject := range rotation {
		if left := remaining[subject.ID]; left > 0 {
			meta.UnscheduledSubjects = append(meta.UnscheduledSubjects, models.UnscheduledSubject{
				SubjectID:         subject.ID,
				Name:              subject.Name,
				RemainingSessions: left,
				RemainingMinutes:  left * sessionDuration(subject, blockMinutes, params),
			})
		}
	}
	sort.Slice(meta.UnscheduledSubjects, func(i, j int) bool {
		return meta.UnscheduledSubjects[i].Name < meta.UnscheduledSubjects[j].Name
	})

	return items, meta
}

// deriveBlockMinutes scales the child's attention span by the tuned factor and
// the rotation preference: children of rotation-minded families get shorter,
// more varied blocks. Low-confidence derivation widens blocks as a hedge.
func deriveBlockMinutes(features dto.FeatureVector, params models.GeneratorParams) int {
	scale := params.BlockScale * (1.2 - 0.4*features.RotationScore)
	block := int(math.Round(float64(features.AttentionSpan) * scale))
	if len(features.LowConfidence) > 0 {
		block += 10
	}
	if block < params.MinBlockMinutes {
		block = params.MinBlockMinutes
	}
	if block > params.MaxBlockMinutes {
		block = params.MaxBlockMinutes
	}
	return block
}

// deriveBreaksFrequency maps structure preference onto how many consecutive
// subject blocks run before a break: 2 for highly structured families up to 5
// for very flexible ones.
func deriveBreaksFrequency(structure float64) int {
	frequency := 5 - int(math.Round(structure*3))
	if frequency < 2 {
		frequency = 2
	}
	if frequency > 5 {
		frequency = 5
	}
	return frequency
}

func deriveDayStartHour(structure float64, params models.GeneratorParams) int {
	switch {
	case structure >= params.StructureEarly:
		return 8
	case structure >= params.StructureBalanced:
		return 9
	default:
		return 10
	}
}

func sessionDuration(subject models.Subject, blockMinutes int, params models.GeneratorParams) int {
	duration := subject.SessionMinutes
	if duration <= 0 {
		duration = blockMinutes
	}
	if duration > blockMinutes {
		duration = blockMinutes
	}
	if duration < params.MinBlockMinutes {
		duration = params.MinBlockMinutes
	}
	return duration
}

// nextSubject scans the rotation list from the pointer for the first subject
// with weekly quota left that has not yet been placed today. One placement per
// subject per day keeps daily subjects from draining their weekly quota on
// Monday.
func nextSubject(rotation []models.Subject, remaining map[string]int, placedToday map[string]bool, pointer int) (int, bool) {
	if len(rotation) == 0 {
		return 0, false
	}
	for offset := 0; offset < len(rotation); offset++ {
		idx := (pointer + offset) % len(rotation)
		id := rotation[idx].ID
		if remaining[id] > 0 && !placedToday[id] {
			return idx, true
		}
	}
	return 0, false
}

type minuteRange struct {
	start int
	end   int
}

var dayPartRanges = map[models.DayPart]minuteRange{
	models.DayPartEarlyMorning: {6 * 60, 9 * 60},
	models.DayPartMorning:      {9 * 60, 12 * 60},
	models.DayPartMidday:       {11 * 60, 14 * 60},
	models.DayPartAfternoon:    {12 * 60, 18 * 60},
}

// learningSegments intersects the child's best-learning-time windows with the
// [dayStart, dayEnd) bounds, merged and sorted. A child with no declared
// windows learns across the whole day; declared windows that fall entirely
// outside the homeschooling hours leave nothing schedulable, which surfaces
// through the unscheduled-subjects report.
func learningSegments(child *models.ChildProfile, dayStart, dayEnd int) []minuteRange {
	var parts []models.DayPart
	if len(child.LearningWindows) > 0 {
		_ = json.Unmarshal(child.LearningWindows, &parts)
	}
	if len(parts) == 0 {
		return []minuteRange{{dayStart, dayEnd}}
	}

	segments := make([]minuteRange, 0, len(parts))
	for _, part := range parts {
		window, ok := dayPartRanges[part]
		if !ok {
			continue
		}
		if window.start < dayStart {
			window.start = dayStart
		}
		if window.end > dayEnd {
			window.end = dayEnd
		}
		if window.start < window.end {
			segments = append(segments, window)
		}
	}
	if len(segments) == 0 {
		return nil
	}

	sort.Slice(segments, func(i, j int) bool { return segments[i].start < segments[j].start })
	merged := segments[:1]
	for _, segment := range segments[1:] {
		last := &merged[len(merged)-1]
		if segment.start <= last.end {
			if segment.end > last.end {
				last.end = segment.end
			}
			continue
		}
		merged = append(merged, segment)
	}
	return merged
}

// placeInSegments finds the earliest start at or after cursor where a block of
// the given duration fits inside one learning segment without intersecting a
// fixed block.
func placeInSegments(cursor, duration int, segments []minuteRange, fixed []FixedBlock) (int, bool) {
	for _, segment := range segments {
		start := cursor
		if start < segment.start {
			start = segment.start
		}
		for start+duration <= segment.end {
			moved := false
			for _, block := range fixed {
				if start < block.EndMinute && block.StartMinute < start+duration {
					start = block.EndMinute
					moved = true
				}
			}
			if !moved {
				return start, true
			}
		}
	}
	return 0, false
}
