package services

import (
	"context"
	"fmt"
	"math"

	"finsight/internal/baseline"
	"finsight/internal/core"
	"finsight/internal/storage"
)

// MilestoneOutlook is a milestone enriched with progress and, when a
// baseline exists, an estimate of how many months the goal still needs at
// the user's historical savings rate.
type MilestoneOutlook struct {
	Milestone      storage.Milestone
	AchievedPct    float64
	RemainingUnits float64
	// MonthsToGoal is -1 when no estimate is possible: no baseline, or an
	// average savings rate of zero or below.
	MonthsToGoal int
}

// MilestoneService manages savings goals and relates them to the trained
// baseline.
type MilestoneService struct {
	storage   *storage.SQLiteRepository
	baselines *baseline.Store
}

func NewMilestoneService(storage *storage.SQLiteRepository, baselines *baseline.Store) *MilestoneService {
	return &MilestoneService{storage: storage, baselines: baselines}
}

func (s *MilestoneService) Create(ctx context.Context, m storage.Milestone) (int64, error) {
	return s.storage.CreateMilestone(ctx, m)
}

func (s *MilestoneService) List(ctx context.Context, userID string) ([]storage.Milestone, error) {
	return s.storage.ListMilestones(ctx, userID)
}

func (s *MilestoneService) Update(ctx context.Context, m storage.Milestone) error {
	return s.storage.UpdateMilestone(ctx, m)
}

func (s *MilestoneService) Delete(ctx context.Context, id int64) error {
	return s.storage.DeleteMilestone(ctx, id)
}

// Outlook computes progress toward one milestone. The months-to-goal
// estimate divides the remaining amount by the baseline's average monthly
// savings, rounded up; it degrades to "no estimate" rather than producing
// a nonsensical figure when the savings average is zero or negative.
func (s *MilestoneService) Outlook(ctx context.Context, id int64) (MilestoneOutlook, error) {
	m, err := s.storage.GetMilestone(ctx, id)
	if err != nil {
		return MilestoneOutlook{}, fmt.Errorf("load milestone: %w", err)
	}

	out := MilestoneOutlook{
		Milestone:      m,
		RemainingUnits: core.Round2(float64(m.GoalCents-m.SavedCents) / 100),
		MonthsToGoal:   -1,
	}
	if m.GoalCents > 0 {
		out.AchievedPct = core.Round1(float64(m.SavedCents) / float64(m.GoalCents) * 100)
	}
	if m.SavedCents >= m.GoalCents {
		out.RemainingUnits = 0
		out.MonthsToGoal = 0
		return out, nil
	}

	b, ok := s.baselines.Get(m.UserID)
	if !ok || b.Averages.Savings <= 0 {
		return out, nil
	}
	remaining := float64(m.GoalCents-m.SavedCents) / 100
	out.MonthsToGoal = int(math.Ceil(remaining / b.Averages.Savings))
	return out, nil
}
