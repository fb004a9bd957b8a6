package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/brightpath-app/scheduling-api/internal/models"
	appErrors "github.com/brightpath-app/scheduling-api/pkg/errors"
)

// FixedBlock is a concrete interval the generator must not schedule over.
// Day is the ISO weekday index within the target week (1=Monday .. 5=Friday).
type FixedBlock struct {
	Day          int
	StartMinute  int
	EndMinute    int
	Label        string
	ItemType     models.ScheduleItemType
	SubjectID    *string
	CommitmentID *string
}

// ConstraintSet is everything the generator needs besides preferences: the
// week's immovable intervals and the subjects awaiting placement.
type ConstraintSet struct {
	FixedBlocks []FixedBlock
	Subjects    []models.Subject
}

type commitmentLister interface {
	ListForChild(ctx context.Context, familyID, childID string) ([]models.Commitment, error)
}

type subjectLister interface {
	ListByChild(ctx context.Context, childID string) ([]models.Subject, error)
}

// ConstraintService expands commitments and fixed-time subjects into the
// concrete fixed blocks of one target week.
type ConstraintService struct {
	commitments commitmentLister
	subjects    subjectLister
	logger      *zap.Logger
}

// NewConstraintService wires constraint dependencies.
func NewConstraintService(commitments commitmentLister, subjects subjectLister, logger *zap.Logger) *ConstraintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConstraintService{commitments: commitments, subjects: subjects, logger: logger}
}

// Collect expands recurring commitments into the target week, resolves
// fixed-time subjects into additional fixed blocks, and rejects contradictory
// inputs. Two overlapping fixed blocks are a data-quality error the generator
// cannot resolve, so they are surfaced here before generation proceeds.
func (s *ConstraintService) Collect(ctx context.Context, child *models.ChildProfile, weekStart time.Time) (*ConstraintSet, error) {
	if child == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "child profile is required")
	}

	commitments, err := s.commitments.ListForChild(ctx, child.FamilyID, child.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load commitments")
	}
	subjects, err := s.subjects.ListByChild(ctx, child.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}

	set := &ConstraintSet{Subjects: subjects}

	for i := range commitments {
		blocks, err := expandCommitment(&commitments[i], weekStart)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed commitment")
		}
		set.FixedBlocks = append(set.FixedBlocks, blocks...)
	}

	for i := range subjects {
		subject := subjects[i]
		if subject.FixedDay == nil || subject.FixedStartMinute == nil {
			continue
		}
		day := *subject.FixedDay
		if day < 1 || day > 5 {
			continue
		}
		id := subject.ID
		set.FixedBlocks = append(set.FixedBlocks, FixedBlock{
			Day:         day,
			StartMinute: *subject.FixedStartMinute,
			EndMinute:   *subject.FixedStartMinute + subject.SessionMinutes,
			Label:       subject.Name,
			ItemType:    models.ItemTypeSubject,
			SubjectID:   &id,
		})
	}

	sort.Slice(set.FixedBlocks, func(i, j int) bool {
		if set.FixedBlocks[i].Day == set.FixedBlocks[j].Day {
			return set.FixedBlocks[i].StartMinute < set.FixedBlocks[j].StartMinute
		}
		return set.FixedBlocks[i].Day < set.FixedBlocks[j].Day
	})

	if a, b, ok := firstOverlap(set.FixedBlocks); ok {
		return nil, appErrors.Clone(appErrors.ErrConstraintConflict,
			fmt.Sprintf("%q and %q overlap on day %d (%s-%s vs %s-%s)",
				a.Label, b.Label, a.Day,
				formatClock(a.StartMinute), formatClock(a.EndMinute),
				formatClock(b.StartMinute), formatClock(b.EndMinute)))
	}
	return set, nil
}

// expandCommitment turns one recurrence rule into the concrete blocks it
// occupies during the target week. One-time commitments contribute only when
// their date falls inside the week; monthly ones when the week contains the
// matching weekday occurrence.
func expandCommitment(c *models.Commitment, weekStart time.Time) ([]FixedBlock, error) {
	if c.EndMinute <= c.StartMinute {
		return nil, fmt.Errorf("commitment %q ends before it starts", c.Name)
	}
	id := c.ID
	block := func(day int) FixedBlock {
		return FixedBlock{
			Day:          day,
			StartMinute:  c.StartMinute,
			EndMinute:    c.EndMinute,
			Label:        c.Name,
			ItemType:     models.ItemTypeCommitment,
			CommitmentID: &id,
		}
	}

	switch c.Recurrence {
	case models.RecurrenceDaily:
		blocks := make([]FixedBlock, 0, 5)
		for day := 1; day <= 5; day++ {
			blocks = append(blocks, block(day))
		}
		return blocks, nil

	case models.RecurrenceWeekly:
		days, err := commitmentDays(c)
		if err != nil {
			return nil, err
		}
		var blocks []FixedBlock
		for _, day := range days {
			if day >= 1 && day <= 5 {
				blocks = append(blocks, block(day))
			}
		}
		return blocks, nil

	case models.RecurrenceMonthly:
		days, err := commitmentDays(c)
		if err != nil {
			return nil, err
		}
		var blocks []FixedBlock
		for _, day := range days {
			if day < 1 || day > 5 {
				continue
			}
			date := weekStart.AddDate(0, 0, day-1)
			// first matching weekday of the month
			if date.Day() <= 7 {
				blocks = append(blocks, block(day))
			}
		}
		return blocks, nil

	case models.RecurrenceOneTime:
		if c.Date == nil {
			return nil, fmt.Errorf("one-time commitment %q has no date", c.Name)
		}
		offset := int(c.Date.Sub(weekStart).Hours() / 24)
		if offset < 0 || offset > 4 {
			return nil, nil
		}
		return []FixedBlock{block(offset + 1)}, nil

	default:
		return nil, fmt.Errorf("commitment %q has unknown recurrence %q", c.Name, c.Recurrence)
	}
}

func commitmentDays(c *models.Commitment) ([]int, error) {
	if len(c.Days) == 0 {
		return nil, fmt.Errorf("commitment %q has no weekday set", c.Name)
	}
	var days []int
	if err := json.Unmarshal(c.Days, &days); err != nil {
		return nil, fmt.Errorf("commitment %q has a malformed weekday set: %w", c.Name, err)
	}
	return days, nil
}

func firstOverlap(blocks []FixedBlock) (FixedBlock, FixedBlock, bool) {
	// blocks are sorted by (day, start); adjacent comparison suffices
	for i := 1; i < len(blocks); i++ {
		prev, cur := blocks[i-1], blocks[i]
		if prev.Day == cur.Day && cur.StartMinute < prev.EndMinute {
			return prev, cur, true
		}
	}
	return FixedBlock{}, FixedBlock{}, false
}
